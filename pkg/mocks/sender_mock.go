package mocks

import (
	"context"

	"github.com/estatedesk/partnerflow/pkg/notification"
	"github.com/stretchr/testify/mock"
)

// MockSender is a mock implementation of notification.Sender interface.
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg notification.Message) error {
	args := m.Called(ctx, msg)

	return args.Error(0)
}

func (m *MockSender) Close() error {
	args := m.Called()

	return args.Error(0)
}
