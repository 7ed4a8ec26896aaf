package email_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/biolink/pkg/email"
	"github.com/dmitrymomot/biolink/pkg/logger"
)

func TestMessageValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		msg     email.Message
		wantErr bool
	}{
		{name: "valid", msg: email.Message{To: "ana@example.com", Subject: "Receipt", HTMLBody: "<p>ok</p>"}},
		{name: "bad recipient", msg: email.Message{To: "nope", Subject: "Receipt", HTMLBody: "<p>ok</p>"}, wantErr: true},
		{name: "no subject", msg: email.Message{To: "ana@example.com", HTMLBody: "<p>ok</p>"}, wantErr: true},
		{name: "no body", msg: email.Message{To: "ana@example.com", Subject: "Receipt"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.msg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, email.ErrInvalidMessage)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewFallsBackToLogSender(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	sender, err := email.New(email.Config{}, logger.New(logger.WithOutput(buf)))
	require.NoError(t, err)

	err = sender.Send(context.Background(), email.Message{To: "ana@example.com", Subject: "Receipt", HTMLBody: "<p>ok</p>", Tag: "receipt"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "postmark disabled")
	assert.Contains(t, buf.String(), "receipt")
}

func TestNewPostmarkSenderValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := email.NewPostmarkSender(email.Config{})
	assert.ErrorIs(t, err, email.ErrInvalidConfig)

	_, err = email.NewPostmarkSender(email.Config{PostmarkServerToken: "tok", From: "not-an-email"})
	assert.ErrorIs(t, err, email.ErrInvalidConfig)

	s, err := email.NewPostmarkSender(email.Config{PostmarkServerToken: "tok", From: "billing@example.com"})
	require.NoError(t, err)
	assert.NotNil(t, s)
}
