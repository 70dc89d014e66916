package runtime

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/drblury/catalogsync/internal/runtime/errors"
	idspkg "github.com/drblury/catalogsync/internal/runtime/ids"
	metadatapkg "github.com/drblury/catalogsync/internal/runtime/metadata"
)

// NewMessage wraps an encoded payload in a Watermill message with a ULID and
// the JSON content type header. A correlation id is generated when md lacks one.
func NewMessage(payload []byte, md metadatapkg.Metadata) (*message.Message, error) {
	if len(payload) == 0 {
		return nil, errspkg.ErrEventPayloadRequired
	}

	msg := message.NewMessage(idspkg.CreateULID(), payload)
	msg.Metadata = md.ToWatermill()
	msg.Metadata.Set(metadatapkg.KeyContentType, metadatapkg.ContentTypeJSON)
	if msg.Metadata.Get(metadatapkg.KeyCorrelationID) == "" {
		msg.Metadata.Set(metadatapkg.KeyCorrelationID, msg.UUID)
	}
	return msg, nil
}

// Publish sends msg to topic, attaching ctx to the message.
func Publish(ctx context.Context, publisher message.Publisher, topic string, msg *message.Message) error {
	if publisher == nil {
		return errspkg.ErrPublisherRequired
	}
	if topic == "" {
		return errspkg.ErrTopicRequired
	}
	if ctx != nil {
		msg.SetContext(ctx)
	}
	return publisher.Publish(topic, msg)
}
