package common

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorResponse(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	WriteErrorResponse(rr, "boom", http.StatusTeapot)

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "boom", body["error"])
}

type noteBody struct {
	Store string `json:"store" validate:"required"`
	Note  string `json:"note" validate:"max=5"`
}

func TestDecodeBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		optional bool
		want     noteBody
		wantErr  string
	}{
		{name: "valid", body: `{"store":"PG","note":"ok"}`, want: noteBody{Store: "PG", Note: "ok"}},
		{name: "missing required", body: `{"note":"ok"}`, wantErr: "required"},
		{name: "too long", body: `{"store":"PG","note":"way too long"}`, wantErr: "max"},
		{name: "unknown field", body: `{"store":"PG","extra":1}`, wantErr: "unknown field"},
		{name: "malformed", body: `{`, wantErr: "invalid request body"},
		{name: "empty body required", body: ``, wantErr: "EOF"},
		{name: "empty body optional still validated", body: ``, optional: true, wantErr: "required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var got noteBody
			err := DecodeBody(req, &got, tt.optional)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQueryParams(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet,
		"/?limit=5&bad=x&big=500&open=true&from=2024-06-01&to=2024-06-02&at=2024-06-01T10:00:00Z&when=yesterday", nil)

	n, err := QueryInt(req, "limit", 20, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = QueryInt(req, "absent", 20, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	_, err = QueryInt(req, "bad", 20, 1, 100)
	assert.EqualError(t, err, "bad must be an integer")
	_, err = QueryInt(req, "big", 20, 1, 100)
	assert.EqualError(t, err, "big must be between 1 and 100")

	b, err := QueryBool(req, "open")
	require.NoError(t, err)
	assert.True(t, b)
	_, err = QueryBool(req, "bad")
	require.Error(t, err)

	from, err := QueryTime(req, "from", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), *from)

	to, err := QueryTime(req, "to", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 2, 23, 59, 59, 999999999, time.UTC), *to)

	at, err := QueryTime(req, "at", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), at.UTC())

	absent, err := QueryTime(req, "absent", false)
	require.NoError(t, err)
	assert.Nil(t, absent)

	_, err = QueryTime(req, "when", false)
	require.Error(t, err)
}
