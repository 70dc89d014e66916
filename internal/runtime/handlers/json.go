package handlers

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/drblury/catalogsync/internal/runtime/errors"
	jsoncodec "github.com/drblury/catalogsync/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/catalogsync/internal/runtime/logging"
	metadatapkg "github.com/drblury/catalogsync/internal/runtime/metadata"
)

// Decoder turns a raw payload into T.
type Decoder[T any] func(payload []byte) (T, error)

// ConsumerFunc processes one decoded message.
type ConsumerFunc[T any] func(ctx context.Context, msg MessageContext[T]) error

// JSONDecoder decodes payloads into a fresh T using the shared JSON codec.
func JSONDecoder[T any]() Decoder[T] {
	return func(payload []byte) (T, error) {
		var out T
		err := jsoncodec.Unmarshal(payload, &out)
		return out, err
	}
}

// BuildConsumer converts a typed consumer into a Watermill handler that
// publishes nothing. Payloads that fail to decode are reported as
// non-retryable so the retry middleware leaves them alone.
func BuildConsumer[T any](decode Decoder[T], consume ConsumerFunc[T], logger loggingpkg.ServiceLogger) (message.NoPublishHandlerFunc, error) {
	if consume == nil {
		return nil, errspkg.ErrHandlerRequired
	}
	if logger == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if decode == nil {
		decode = JSONDecoder[T]()
	}

	return func(msg *message.Message) error {
		payload, err := decode(msg.Payload)
		if err != nil {
			if errspkg.IsNonRetryable(err) {
				return err
			}
			return errspkg.MarkNonRetryable("decode payload", err)
		}

		return consume(msg.Context(), MessageContext[T]{
			Payload:  payload,
			UUID:     msg.UUID,
			Metadata: metadatapkg.FromWatermill(msg.Metadata),
			Logger:   logger,
		})
	}, nil
}
