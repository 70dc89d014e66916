package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapabilitiesKeyOrder(t *testing.T) {
	tests := []struct {
		name string
		caps Capabilities
		want bool
	}{
		{"channel", ChannelCapabilities, true},
		{"kafka", KafkaCapabilities, true},
		{"rabbitmq", RabbitMQCapabilities, true},
		{"nats", NATSCapabilities, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.caps.PreservesKeyOrder())
			assert.Equal(t, tt.name, tt.caps.Name)
		})
	}
}

func TestCapabilitiesReliableDelivery(t *testing.T) {
	assert.True(t, Capabilities{SupportsAck: true, SupportsNack: true}.SupportsReliableDelivery())
	assert.False(t, KafkaCapabilities.SupportsReliableDelivery())
	assert.False(t, NATSCapabilities.SupportsReliableDelivery())
}
