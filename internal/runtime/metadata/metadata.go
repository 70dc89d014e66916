// Package metadata holds the header map carried next to every product event
// and the reserved header keys the pipeline relies on.
package metadata

import "github.com/ThreeDotsLabs/watermill/message"

// Reserved header keys.
const (
	// KeyPartition carries the stringified product id. Kafka hashes it to pick
	// a partition so every event of one product lands on the same stream.
	KeyPartition = "catalogsync_partition_key"

	// KeyEventKind duplicates the envelope kind so operators can filter
	// without decoding payloads.
	KeyEventKind = "catalogsync_event_kind"

	// KeyProductID mirrors the envelope id.
	KeyProductID = "catalogsync_product_id"

	// KeyCorrelationID tracks related messages across services.
	KeyCorrelationID = "correlation_id"

	// KeyContentType describes the payload encoding.
	KeyContentType = "content_type"
)

// ContentTypeJSON is the only payload encoding produced by the emitter.
const ContentTypeJSON = "application/json"

// Metadata represents the headers carried alongside an event.
type Metadata map[string]string

func (m Metadata) cloneWithExtra(extra int) Metadata {
	cloned := make(Metadata, len(m)+extra)
	for k, v := range m {
		cloned[k] = v
	}
	return cloned
}

// Clone returns a shallow copy of the metadata map.
func (m Metadata) Clone() Metadata {
	return m.cloneWithExtra(0)
}

// With returns a cloned metadata map containing the provided key/value pair.
func (m Metadata) With(key, value string) Metadata {
	cloned := m.cloneWithExtra(1)
	cloned[key] = value
	return cloned
}

// Get returns the value for key, or "" when absent.
func (m Metadata) Get(key string) string {
	return m[key]
}

// New constructs a Metadata map from alternating key/value pairs. A trailing
// key without a value is ignored.
func New(pairs ...string) Metadata {
	md := make(Metadata, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		md[pairs[i]] = pairs[i+1]
	}
	return md
}

// FromWatermill copies Watermill metadata into a Metadata map.
func FromWatermill(md message.Metadata) Metadata {
	return Metadata(md).Clone()
}

// ToWatermill copies the headers into a fresh Watermill map.
func (m Metadata) ToWatermill() message.Metadata {
	return message.Metadata(m.Clone())
}
