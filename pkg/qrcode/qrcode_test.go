package qrcode_test

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/biolink/pkg/qrcode"
)

const pixPayload = "00020101021226820014br.gov.bcb.pix2560qrpix.example.com/qr/v2/cobv/9d36b84f5204000053039865406149.905802BR5905Teste6009Sao Paulo62070503***6304E1F4"

func TestPNG(t *testing.T) {
	t.Parallel()

	png, err := qrcode.PNG(pixPayload, 0)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	_, err = qrcode.PNG("   ", 128)
	assert.ErrorIs(t, err, qrcode.ErrEmptyContent)
}

func TestDataURI(t *testing.T) {
	t.Parallel()

	uri, err := qrcode.DataURI(pixPayload, 128)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/png;base64,"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("\x89PNG")))
}
