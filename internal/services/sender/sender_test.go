package sender

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/article-insights/internal/lib/smtp"
	"github.com/magabrotheeeer/article-insights/internal/models"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Connect() (smtp.Client, error) {
	args := m.Called()
	c, _ := args.Get(0).(smtp.Client)
	return c, args.Error(1)
}

func (m *MockTransport) From() string {
	args := m.Called()
	return args.String(0)
}

type MockSMTPClient struct {
	mock.Mock
}

func (m *MockSMTPClient) Mail(from string) error {
	return m.Called(from).Error(0)
}

func (m *MockSMTPClient) Rcpt(to string) error {
	return m.Called(to).Error(0)
}

func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	w, _ := args.Get(0).(io.WriteCloser)
	return w, args.Error(1)
}

func (m *MockSMTPClient) Quit() error {
	return m.Called().Error(0)
}

func (m *MockSMTPClient) Close() error {
	return m.Called().Error(0)
}

type bufferWriter struct {
	bytes.Buffer
	closed bool
}

func (w *bufferWriter) Close() error {
	w.closed = true
	return nil
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func setupDelivery(tr *MockTransport, c *MockSMTPClient, w *bufferWriter, rcpt string) {
	tr.On("From").Return("noreply@example.com")
	tr.On("Connect").Return(c, nil).Once()
	c.On("Mail", "noreply@example.com").Return(nil).Once()
	c.On("Rcpt", rcpt).Return(nil).Once()
	c.On("Data").Return(w, nil).Once()
	c.On("Quit").Return(nil).Once()
	c.On("Close").Return(nil).Once()
}

func TestSenderService_HandleNotification(t *testing.T) {
	tests := []struct {
		name         string
		notification models.Notification
		wantRcpt     string
		wantContains []string
	}{
		{
			name: "billing notification",
			notification: models.Notification{
				Kind:    models.NotificationUpgraded,
				Email:   "reader@example.com",
				Name:    "Reader",
				Subject: "Your subscription is active",
				Message: "Your account now has 1000000 tokens per billing period.",
			},
			wantRcpt:     "reader@example.com",
			wantContains: []string{"Subject: Your subscription is active", "Hello, Reader!", "1000000 tokens"},
		},
		{
			name:         "default subject",
			notification: models.Notification{Kind: models.NotificationPaymentFailed, Email: "reader@example.com"},
			wantRcpt:     "reader@example.com",
			wantContains: []string{"Subject: Payment failed", "Hello,"},
		},
		{
			name: "support request goes to support mailbox",
			notification: models.Notification{
				Kind:      models.NotificationSupport,
				AccountID: "acc-1",
				Email:     "reader@example.com",
				Name:      "Reader",
				Subject:   "Billing question",
				Message:   "I was charged twice",
			},
			wantRcpt:     "support@example.com",
			wantContains: []string{"To: support@example.com", "Reply-To: reader@example.com", "[Support] Billing question", "Account: acc-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := new(MockTransport)
			c := new(MockSMTPClient)
			w := &bufferWriter{}
			setupDelivery(tr, c, w, tt.wantRcpt)

			svc := NewSenderService(tr, "support@example.com", newNoopLogger())
			require.NoError(t, svc.HandleNotification(mustJSON(t, tt.notification)))

			for _, s := range tt.wantContains {
				assert.Contains(t, w.String(), s)
			}
			assert.True(t, w.closed)
			tr.AssertExpectations(t)
			c.AssertExpectations(t)
		})
	}
}

func TestSenderService_HandleNotificationErrors(t *testing.T) {
	t.Run("invalid json", func(t *testing.T) {
		svc := NewSenderService(new(MockTransport), "support@example.com", newNoopLogger())
		err := svc.HandleNotification([]byte("{"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error unmarshalling message")
	})

	t.Run("missing recipient is dropped", func(t *testing.T) {
		tr := new(MockTransport)
		svc := NewSenderService(tr, "support@example.com", newNoopLogger())
		err := svc.HandleNotification(mustJSON(t, models.Notification{Kind: models.NotificationRenewed}))
		require.NoError(t, err)
		tr.AssertNotCalled(t, "Connect")
	})

	t.Run("connect failure", func(t *testing.T) {
		tr := new(MockTransport)
		tr.On("From").Return("noreply@example.com")
		tr.On("Connect").Return(nil, errors.New("dial tcp: refused")).Once()

		svc := NewSenderService(tr, "support@example.com", newNoopLogger())
		err := svc.HandleNotification(mustJSON(t, models.Notification{Kind: models.NotificationRenewed, Email: "reader@example.com"}))
		require.Error(t, err)
	})

	t.Run("rcpt failure closes client", func(t *testing.T) {
		tr := new(MockTransport)
		c := new(MockSMTPClient)
		tr.On("From").Return("noreply@example.com")
		tr.On("Connect").Return(c, nil).Once()
		c.On("Mail", "noreply@example.com").Return(nil).Once()
		c.On("Rcpt", "reader@example.com").Return(errors.New("mailbox unavailable")).Once()
		c.On("Close").Return(nil).Once()

		svc := NewSenderService(tr, "support@example.com", newNoopLogger())
		err := svc.HandleNotification(mustJSON(t, models.Notification{Kind: models.NotificationRenewed, Email: "reader@example.com"}))
		require.Error(t, err)
		c.AssertExpectations(t)
	})
}
