package webhook_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/biolink/pkg/webhook"
)

func TestSignAndVerify(t *testing.T) {
	t.Parallel()

	const secret = "whsec_test"
	body := []byte(`{"event":"PAYMENT_CONFIRMED","payment":{"id":"pay_1","status":"CONFIRMED"}}`)

	sig, err := webhook.Sign(secret, body)
	require.NoError(t, err)
	assert.Len(t, sig, 64)

	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	b64 := base64.StdEncoding.EncodeToString(h.Sum(nil))

	tests := []struct {
		name    string
		secret  string
		body    []byte
		sig     string
		wantErr error
	}{
		{name: "hex", secret: secret, body: body, sig: sig},
		{name: "prefixed hex", secret: secret, body: body, sig: "sha256=" + sig},
		{name: "base64", secret: secret, body: body, sig: b64},
		{name: "tampered body", secret: secret, body: append([]byte{' '}, body...), sig: sig, wantErr: webhook.ErrSignatureMismatch},
		{name: "wrong secret", secret: "other", body: body, sig: sig, wantErr: webhook.ErrSignatureMismatch},
		{name: "missing signature", secret: secret, body: body, sig: "  ", wantErr: webhook.ErrMissingSignature},
		{name: "garbage signature", secret: secret, body: body, sig: "%%%", wantErr: webhook.ErrMalformedSignature},
		{name: "no secret", secret: "", body: body, sig: sig, wantErr: webhook.ErrMissingSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := webhook.Verify(tt.secret, tt.body, tt.sig)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSignRequiresSecret(t *testing.T) {
	t.Parallel()
	_, err := webhook.Sign("", []byte("x"))
	assert.ErrorIs(t, err, webhook.ErrMissingSecret)
}
