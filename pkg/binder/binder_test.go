package binder_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/biolink/pkg/binder"
)

type checkoutBody struct {
	PlanID string   `json:"planId"`
	Amount *float64 `json:"amount,omitempty"`
}

func jsonRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	return r
}

func TestJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     func() *http.Request
		wantErr error
		want    checkoutBody
	}{
		{
			name: "valid",
			req:  func() *http.Request { return jsonRequest(`{"planId":"pro"}`) },
			want: checkoutBody{PlanID: "pro"},
		},
		{
			name:    "unknown field",
			req:     func() *http.Request { return jsonRequest(`{"planId":"pro","discount":100}`) },
			wantErr: binder.ErrFailedToParseJSON,
		},
		{
			name:    "trailing data",
			req:     func() *http.Request { return jsonRequest(`{"planId":"pro"}{"planId":"business"}`) },
			wantErr: binder.ErrFailedToParseJSON,
		},
		{
			name:    "empty body",
			req:     func() *http.Request { return jsonRequest(``) },
			wantErr: binder.ErrFailedToParseJSON,
		},
		{
			name: "missing content type",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
			},
			wantErr: binder.ErrMissingContentType,
		},
		{
			name: "wrong content type",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
				r.Header.Set("Content-Type", "text/plain")
				return r
			},
			wantErr: binder.ErrUnsupportedMediaType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got checkoutBody
			err := binder.JSON()(tt.req(), &got)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJSONWithLimit(t *testing.T) {
	t.Parallel()
	var got checkoutBody
	err := binder.JSONWithLimit(8)(jsonRequest(`{"planId":"business"}`), &got)
	assert.ErrorIs(t, err, binder.ErrFailedToParseJSON)
	assert.Contains(t, err.Error(), "too large")
}

func TestJSONCanceledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var got checkoutBody
	err := binder.JSON()(jsonRequest(`{"planId":"pro"}`).WithContext(ctx), &got)
	assert.ErrorIs(t, err, context.Canceled)
}

type reportQuery struct {
	Status   []string      `query:"status"`
	From     time.Time     `query:"from"`
	To       *time.Time    `query:"to"`
	Payment  uuid.UUID     `query:"paymentId"`
	Limit    int           `query:"limit"`
	Window   time.Duration `query:"window"`
	Verbose  bool          `query:"verbose"`
	Ignored  string        `query:"-"`
	Untagged string
}

func TestQuery(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	r := httptest.NewRequest(http.MethodGet,
		"/admin/payments?status=paid,refunded&from=2026-01-01&to=2026-02-01T10:00:00Z&paymentId="+id.String()+
			"&limit=50&window=1h&verbose=yes&Ignored=x&Untagged=y", nil)

	var q reportQuery
	require.NoError(t, binder.Query()(r, &q))

	assert.Equal(t, []string{"paid", "refunded"}, q.Status)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), q.From)
	require.NotNil(t, q.To)
	assert.Equal(t, time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC), *q.To)
	assert.Equal(t, id, q.Payment)
	assert.Equal(t, 50, q.Limit)
	assert.Equal(t, time.Hour, q.Window)
	assert.True(t, q.Verbose)
	assert.Empty(t, q.Ignored)
	assert.Empty(t, q.Untagged)
}

func TestQueryErrors(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"paymentId=nope", "from=yesterday", "limit=ten"} {
		r := httptest.NewRequest(http.MethodGet, "/?"+raw, nil)
		var q reportQuery
		assert.ErrorIs(t, binder.Query()(r, &q), binder.ErrFailedToParseQuery, raw)
	}

	var notStruct string
	assert.ErrorIs(t, binder.Query()(httptest.NewRequest(http.MethodGet, "/", nil), &notStruct), binder.ErrInvalidTarget)
}

func TestPath(t *testing.T) {
	t.Parallel()

	type req struct {
		PlanID string `path:"planId"`
		Other  string `query:"other"`
	}
	extract := func(_ *http.Request, name string) string {
		if name == "planId" {
			return "pro"
		}
		return ""
	}

	var got req
	require.NoError(t, binder.Path(extract)(httptest.NewRequest(http.MethodPut, "/", nil), &got))
	assert.Equal(t, "pro", got.PlanID)
	assert.Empty(t, got.Other)
}
