package transport

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	closeErr error
}

func (m *mockPublisher) Publish(string, ...*message.Message) error { return nil }
func (m *mockPublisher) Close() error                              { return m.closeErr }

type mockSubscriber struct {
	closeErr error
}

func (m *mockSubscriber) Subscribe(context.Context, string) (<-chan *message.Message, error) {
	ch := make(chan *message.Message)
	close(ch)
	return ch, nil
}

func (m *mockSubscriber) Close() error { return m.closeErr }

func okBuilder(context.Context, Config, watermill.LoggerAdapter) (Transport, error) {
	return Transport{Publisher: &mockPublisher{}, Subscriber: &mockSubscriber{}}, nil
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	assert.Empty(t, reg.Names())
}

func TestRegistryRegisterIsCaseInsensitive(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterWithCapabilities("Kafka", okBuilder, KafkaCapabilities)

	assert.True(t, reg.Has("kafka"))
	assert.True(t, reg.Has(" KAFKA "))
	assert.Equal(t, []string{"kafka"}, reg.Names())
	assert.True(t, reg.GetCapabilities("KAFKA").SupportsPartitioning)
}

func TestRegistryAlias(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterWithCapabilities("channel", okBuilder, ChannelCapabilities)
	reg.Alias("gochannel", "channel")
	reg.Alias("ghost", "missing")

	assert.True(t, reg.Has("gochannel"))
	assert.False(t, reg.Has("ghost"))
	assert.Equal(t, "channel", reg.GetCapabilities("gochannel").Name)
}

func TestRegistryGetCapabilitiesUnknown(t *testing.T) {
	caps := NewRegistry().GetCapabilities("unknown")
	assert.Equal(t, "unknown", caps.Name)
	assert.False(t, caps.PreservesKeyOrder())
}

func TestRegistryBuild(t *testing.T) {
	reg := NewRegistry()
	reg.Register("test-transport", okBuilder)

	tr, err := reg.Build(context.Background(), StaticConfig{PubSubSystem: "Test-Transport"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, tr.Publisher)
	assert.NotNil(t, tr.Subscriber)
}

func TestRegistryBuildErrors(t *testing.T) {
	reg := NewRegistry()
	expected := errors.New("builder error")
	reg.Register("failing", func(context.Context, Config, watermill.LoggerAdapter) (Transport, error) {
		return Transport{}, expected
	})

	_, err := reg.Build(context.Background(), nil, nil)
	assert.ErrorContains(t, err, "config is required")

	_, err = reg.Build(context.Background(), StaticConfig{PubSubSystem: "sqs"}, nil)
	assert.ErrorIs(t, err, ErrUnknownTransport)
	assert.ErrorContains(t, err, `"sqs"`)

	_, err = reg.Build(context.Background(), StaticConfig{PubSubSystem: "failing"}, nil)
	assert.Same(t, expected, err)
}

func TestRegistryNamesSorted(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"rabbitmq", "channel", "kafka"} {
		reg.Register(name, okBuilder)
	}
	assert.Equal(t, []string{"channel", "kafka", "rabbitmq"}, reg.Names())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				reg.Register("transport", okBuilder)
				reg.Has("transport")
				reg.Names()
				reg.GetCapabilities("transport")
			}
		}()
	}
	wg.Wait()

	assert.True(t, reg.Has("transport"))
}

func TestPackageLevelHelpers(t *testing.T) {
	original := DefaultRegistry
	defer func() { DefaultRegistry = original }()
	DefaultRegistry = NewRegistry()

	Register("plain", okBuilder)
	RegisterWithCapabilities("ordered", okBuilder, Capabilities{Name: "ordered", SupportsOrdering: true})

	assert.True(t, DefaultRegistry.Has("plain"))
	assert.True(t, GetCapabilities("ordered").PreservesKeyOrder())

	_, err := Build(context.Background(), StaticConfig{PubSubSystem: "plain"}, nil)
	assert.NoError(t, err)
}
