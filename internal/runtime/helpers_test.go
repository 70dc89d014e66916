package runtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/require"

	configpkg "github.com/drblury/catalogsync/internal/runtime/config"
	loggingpkg "github.com/drblury/catalogsync/internal/runtime/logging"
)

func newTestConfig() *configpkg.Config {
	cfg := configpkg.Config{
		PubSubSystem:    "channel",
		RetryMaxRetries: 2,
		RetryInterval:   5 * time.Millisecond,
	}.WithDefaults()
	return &cfg
}

func newTestService(t *testing.T, cfg *configpkg.Config) (*Service, *loggingpkg.CaptureLogger) {
	t.Helper()
	capture := loggingpkg.NewCaptureLogger()
	svc, err := NewService(context.Background(), cfg, capture, ServiceDependencies{})
	require.NoError(t, err)
	return svc, capture
}

// runService starts svc and waits until the router is running. The service is
// stopped when the test ends.
func runService(t *testing.T, svc *Service) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	select {
	case <-svc.Running():
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("router did not start")
	}

	t.Cleanup(func() {
		cancel()
		<-done
		_ = svc.Close()
	})
}

type testPublisher struct {
	mu        sync.Mutex
	published map[string][]*message.Message
	err       error
	closed    bool
}

func (p *testPublisher) Publish(topic string, msgs ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if p.published == nil {
		p.published = make(map[string][]*message.Message)
	}
	p.published[topic] = append(p.published[topic], msgs...)
	return nil
}

func (p *testPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *testPublisher) messages(topic string) []*message.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*message.Message(nil), p.published[topic]...)
}

type testSubscriber struct {
	closed bool
}

func (s *testSubscriber) Subscribe(context.Context, string) (<-chan *message.Message, error) {
	return make(chan *message.Message), nil
}

func (s *testSubscriber) Close() error {
	s.closed = true
	return nil
}
