package mocks

import (
	"context"
	"sync"

	"github.com/absmach/dpsshare/pkg/mqtt"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/mock"
)

// PubSub is a testify mock of the PubSub interface.
type PubSub struct {
	mock.Mock
}

func (m *PubSub) Publish(ctx context.Context, topic string, msg any) error {
	args := m.Called(ctx, topic, msg)

	return args.Error(0)
}

func (m *PubSub) Subscribe(ctx context.Context, topic string, handler mqtt.Handler) error {
	args := m.Called(ctx, topic, handler)

	return args.Error(0)
}

func (m *PubSub) Unsubscribe(ctx context.Context, topic string) error {
	args := m.Called(ctx, topic)

	return args.Error(0)
}

func (m *PubSub) Disconnect(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

// Broker is an in-process loopback PubSub for integration tests: published
// messages are CBOR-encoded and delivered synchronously to subscribers, so
// a whole round can run without an external MQTT broker.
type Broker struct {
	mu       sync.Mutex
	handlers map[string][]mqtt.Handler
}

func NewBroker() *Broker {
	return &Broker{handlers: make(map[string][]mqtt.Handler)}
}

func (b *Broker) Publish(_ context.Context, topic string, msg any) error {
	data, err := cbor.Marshal(msg)
	if err != nil {
		return err
	}

	b.mu.Lock()
	handlers := append([]mqtt.Handler(nil), b.handlers[topic]...)
	b.mu.Unlock()

	for _, h := range handlers {
		if err := h(topic, data); err != nil {
			return err
		}
	}

	return nil
}

func (b *Broker) Subscribe(_ context.Context, topic string, handler mqtt.Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)

	return nil
}

func (b *Broker) Unsubscribe(_ context.Context, topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, topic)

	return nil
}

func (b *Broker) Disconnect(context.Context) error {
	return nil
}
