package runtime

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/drblury/catalogsync/internal/runtime/errors"
)

func noopConsumer(*message.Message) error { return nil }

func TestRegisterConsumerValidation(t *testing.T) {
	svc, _ := newTestService(t, newTestConfig())
	defer svc.Close()

	assert.ErrorIs(t, RegisterConsumer(nil, ConsumerRegistration{}), errspkg.ErrServiceRequired)
	assert.ErrorIs(t, RegisterConsumer(svc, ConsumerRegistration{Name: "n", ConsumeQueue: "q"}), errspkg.ErrHandlerRequired)
	assert.ErrorIs(t, RegisterConsumer(svc, ConsumerRegistration{Name: "n", Handler: noopConsumer}), errspkg.ErrConsumeQueueRequired)
	assert.ErrorIs(t, RegisterConsumer(svc, ConsumerRegistration{ConsumeQueue: "q", Handler: noopConsumer}), errspkg.ErrHandlerNameRequired)
	assert.Empty(t, svc.Handlers())
}

func TestRegisterConsumerRecordsHandler(t *testing.T) {
	svc, _ := newTestService(t, newTestConfig())
	defer svc.Close()

	require.NoError(t, RegisterConsumer(svc, ConsumerRegistration{
		Name:         "replica-reconciler",
		ConsumeQueue: "product-sync",
		Handler:      noopConsumer,
	}))
	assert.Equal(t, []string{"replica-reconciler"}, svc.Handlers())
}
