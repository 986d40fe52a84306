package talespin

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type mockClient struct {
	mock.Mock

	tapSend func(i Intent)
}

func (m *mockClient) Open(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockClient) Send(i Intent) {
	if m.tapSend != nil {
		m.tapSend(i)
	}
	m.Called(i)
}

func (m *mockClient) AddHandler(h Handler) Subscription {
	args := m.Called(h)
	return args.Get(0).(Subscription)
}

func (m *mockClient) OnDisconnect(cb func()) {
	m.Called(cb)
}

func (m *mockClient) Close() {
	m.Called()
}

func (m *mockClient) CloseChan() CloseChan {
	args := m.Called()
	return args.Get(0).(CloseChan)
}
