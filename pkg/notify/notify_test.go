package notify_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/biolink/pkg/billing"
	"github.com/dmitrymomot/biolink/pkg/email"
	"github.com/dmitrymomot/biolink/pkg/gateway"
	"github.com/dmitrymomot/biolink/pkg/notify"
)

type senderMock struct {
	mock.Mock
}

func (s *senderMock) Send(ctx context.Context, msg email.Message) error {
	return s.Called(ctx, msg).Error(0)
}

func TestPaymentReceived(t *testing.T) {
	t.Parallel()
	sender := &senderMock{}
	var sent email.Message
	sender.On("Send", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(1).(email.Message)
	}).Return(nil).Once()

	at := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)
	m := notify.New(sender, "ops@example.com")
	err := m.PaymentReceived(context.Background(), billing.Receipt{
		Email:    "ana@example.com",
		Name:     "Ana <script>",
		PlanName: "Business",
		Payment: billing.Payment{
			ID:            uuid.New(),
			Amount:        4990,
			Currency:      "BRL",
			Method:        gateway.MethodPIX,
			TransactionID: "pay_123",
			ProcessedAt:   &at,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "ana@example.com", sent.To)
	assert.Contains(t, sent.Subject, "Business")
	assert.Contains(t, sent.HTMLBody, "R$")
	assert.Contains(t, sent.HTMLBody, "49")
	assert.Contains(t, sent.HTMLBody, "pay_123")
	assert.Contains(t, sent.HTMLBody, "10/03/2025 15:30")
	assert.NotContains(t, sent.HTMLBody, "<script>")
	sender.AssertExpectations(t)
}

func TestOperatorAlert(t *testing.T) {
	t.Parallel()

	t.Run("sent to operators", func(t *testing.T) {
		t.Parallel()
		sender := &senderMock{}
		sender.On("Send", mock.Anything, mock.MatchedBy(func(msg email.Message) bool {
			return msg.To == "ops@example.com" && msg.Tag == "billing-alert" && msg.HTMLBody != ""
		})).Return(nil).Once()

		err := notify.New(sender, "ops@example.com").OperatorAlert(context.Background(), billing.Alert{
			Provider:      "asaas",
			EventID:       "evt_1",
			TransactionID: "pay_1",
			Reason:        billing.ReasonInternalError,
			Err:           errors.New("connection refused"),
		})
		require.NoError(t, err)
		sender.AssertExpectations(t)
	})

	t.Run("dropped without recipient", func(t *testing.T) {
		t.Parallel()
		sender := &senderMock{}
		err := notify.New(sender, "").OperatorAlert(context.Background(), billing.Alert{Reason: billing.ReasonUnknownPayment})
		require.NoError(t, err)
		sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("sender errors are returned", func(t *testing.T) {
		t.Parallel()
		sender := &senderMock{}
		sender.On("Send", mock.Anything, mock.Anything).Return(email.ErrFailedToSend).Once()
		err := notify.New(sender, "ops@example.com").OperatorAlert(context.Background(), billing.Alert{Reason: billing.ReasonAmountMismatch})
		assert.ErrorIs(t, err, email.ErrFailedToSend)
	})
}

func TestRender(t *testing.T) {
	t.Parallel()

	out, err := notify.Render(context.Background(), templ.Raw("<p>ok</p>"))
	require.NoError(t, err)
	assert.Equal(t, "<p>ok</p>", out)

	_, err = notify.Render(context.Background(), templ.ComponentFunc(func(context.Context, io.Writer) error {
		return errors.New("boom")
	}))
	assert.ErrorIs(t, err, notify.ErrRender)
}
