// Package envelope defines the wire format of a product change event.
package envelope

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/drblury/catalogsync/internal/catalog"
	errspkg "github.com/drblury/catalogsync/internal/runtime/errors"
	jsoncodec "github.com/drblury/catalogsync/internal/runtime/jsoncodec"
)

// EventKind says what happened to a product.
type EventKind string

const (
	KindCreated     EventKind = "PRODUCT_CREATED"
	KindUpdated     EventKind = "PRODUCT_UPDATED"
	KindDeleted     EventKind = "PRODUCT_DELETED"
	KindInitialLoad EventKind = "INITIAL_LOAD"
)

// Kinds returns the closed set of event kinds.
func Kinds() []EventKind {
	return []EventKind{KindCreated, KindUpdated, KindDeleted, KindInitialLoad}
}

// Valid reports whether k is one of the four known kinds.
func (k EventKind) Valid() bool {
	switch k {
	case KindCreated, KindUpdated, KindDeleted, KindInitialLoad:
		return true
	}
	return false
}

// Upsert reports whether k carries a product snapshot.
func (k EventKind) Upsert() bool {
	return k == KindCreated || k == KindUpdated || k == KindInitialLoad
}

func (k EventKind) String() string { return string(k) }

// ErrUnknownKind is returned by ParseKind and Validate.
var ErrUnknownKind = errors.New("envelope: unknown event kind")

// ParseKind maps s onto a known kind.
func ParseKind(s string) (EventKind, error) {
	k := EventKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Envelope is one product change event. For deletes only ID, Kind and
// EmittedAt are set; the other kinds carry the full snapshot. Unset optional
// fields encode as null.
type Envelope struct {
	ID        int64     `json:"id"`
	Name      *string   `json:"name"`
	Price     *float64  `json:"price"`
	Category  *string   `json:"category"`
	ImageURL  *string   `json:"imageUrl"`
	Stock     *int      `json:"stock"`
	Brand     *string   `json:"brand"`
	Kind      EventKind `json:"eventType"`
	EmittedAt time.Time `json:"timestamp"`
}

// FromProduct snapshots p for an upsert kind.
func FromProduct(p catalog.Product, kind EventKind, now time.Time) (Envelope, error) {
	if !kind.Upsert() {
		return Envelope{}, fmt.Errorf("envelope: kind %q does not carry a product", kind)
	}
	env := Envelope{
		ID:        p.ID,
		Name:      ptr(p.Name),
		Price:     ptr(p.Price),
		Category:  ptr(p.Category),
		ImageURL:  ptr(p.ImageURL),
		Stock:     ptr(p.Stock),
		Kind:      kind,
		EmittedAt: now.UTC(),
	}
	if brand, ok := p.Brand(); ok {
		env.Brand = &brand
	}
	return env, env.Validate()
}

// Deleted builds a delete event carrying only the id.
func Deleted(id int64, now time.Time) (Envelope, error) {
	env := Envelope{ID: id, Kind: KindDeleted, EmittedAt: now.UTC()}
	return env, env.Validate()
}

// Validate checks the kind, the id and the non-negativity of price and stock.
func (e Envelope) Validate() error {
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
	if e.ID <= 0 {
		return fmt.Errorf("envelope: id must be positive, got %d", e.ID)
	}
	if e.Kind == KindDeleted {
		return nil
	}
	if e.Price != nil && *e.Price < 0 {
		return fmt.Errorf("envelope: price must not be negative, got %g", *e.Price)
	}
	if e.Stock != nil && *e.Stock < 0 {
		return fmt.Errorf("envelope: stock must not be negative, got %d", *e.Stock)
	}
	return nil
}

// Key is the partition key: the decimal product id.
func (e Envelope) Key() string {
	return strconv.FormatInt(e.ID, 10)
}

// Encode serialises e as JSON.
func (e Envelope) Encode() ([]byte, error) {
	b, err := jsoncodec.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode envelope %d: %w", e.ID, err)
	}
	return b, nil
}

// Decode parses a payload. Syntax and type errors are non-retryable. The kind
// is not checked so that consumers can tolerate kinds they do not know.
func Decode(payload []byte) (Envelope, error) {
	var e Envelope
	if err := jsoncodec.Unmarshal(payload, &e); err != nil {
		return Envelope{}, errspkg.MarkNonRetryable("decode envelope", err)
	}
	return e, nil
}

// localDateTime is an ISO-8601 timestamp without a zone offset, as written by
// producers that serialise local date-times. It is read as UTC.
const localDateTime = "2006-01-02T15:04:05.999999999"

// UnmarshalJSON accepts timestamps with or without a zone offset. A null or
// missing timestamp leaves EmittedAt zero.
func (e *Envelope) UnmarshalJSON(b []byte) error {
	type plain Envelope
	var aux struct {
		plain
		Timestamp *string `json:"timestamp"`
	}
	if err := jsoncodec.Unmarshal(b, &aux); err != nil {
		return err
	}
	*e = Envelope(aux.plain)
	if aux.Timestamp == nil || *aux.Timestamp == "" {
		return nil
	}
	ts, err := parseTimestamp(*aux.Timestamp)
	if err != nil {
		return err
	}
	e.EmittedAt = ts
	return nil
}

func parseTimestamp(v string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return ts, nil
	}
	ts, err := time.ParseInLocation(localDateTime, v, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: %w", v, err)
	}
	return ts, nil
}

func ptr[T any](v T) *T { return &v }
