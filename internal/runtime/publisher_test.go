package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/drblury/catalogsync/internal/runtime/errors"
	idspkg "github.com/drblury/catalogsync/internal/runtime/ids"
	metadatapkg "github.com/drblury/catalogsync/internal/runtime/metadata"
)

func TestNewMessageSetsHeaders(t *testing.T) {
	md := metadatapkg.New(metadatapkg.KeyPartition, "42")
	msg, err := NewMessage([]byte(`{"id":42}`), md)
	require.NoError(t, err)

	_, ok := idspkg.Timestamp(msg.UUID)
	assert.True(t, ok, "uuid should be a ULID")
	assert.Equal(t, "42", msg.Metadata.Get(metadatapkg.KeyPartition))
	assert.Equal(t, metadatapkg.ContentTypeJSON, msg.Metadata.Get(metadatapkg.KeyContentType))
	assert.Equal(t, msg.UUID, msg.Metadata.Get(metadatapkg.KeyCorrelationID))

	msg.Metadata.Set("extra", "x")
	assert.Empty(t, md.Get("extra"), "source metadata must not be aliased")
}

func TestNewMessageKeepsCorrelationID(t *testing.T) {
	msg, err := NewMessage([]byte("{}"), metadatapkg.New(metadatapkg.KeyCorrelationID, "req-1"))
	require.NoError(t, err)
	assert.Equal(t, "req-1", msg.Metadata.Get(metadatapkg.KeyCorrelationID))
}

func TestNewMessageRejectsEmptyPayload(t *testing.T) {
	_, err := NewMessage(nil, nil)
	assert.ErrorIs(t, err, errspkg.ErrEventPayloadRequired)
}

func TestPublish(t *testing.T) {
	pub := &testPublisher{}
	msg, err := NewMessage([]byte("{}"), nil)
	require.NoError(t, err)

	require.NoError(t, Publish(context.Background(), pub, "product-sync", msg))
	assert.Len(t, pub.messages("product-sync"), 1)

	assert.ErrorIs(t, Publish(context.Background(), nil, "product-sync", msg), errspkg.ErrPublisherRequired)
	assert.ErrorIs(t, Publish(context.Background(), pub, "", msg), errspkg.ErrTopicRequired)

	pub.err = errors.New("broker down")
	assert.EqualError(t, Publish(context.Background(), pub, "product-sync", msg), "broker down")
}
