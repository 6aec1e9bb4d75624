package common

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		paramValue string
		wantValue  string
		wantErrMsg string
	}{
		{name: "uuid", paramValue: "6f1c2a9e-0b7d-4a53-9f0e-2d6c1b8e4a77", wantValue: "6f1c2a9e-0b7d-4a53-9f0e-2d6c1b8e4a77"},
		{name: "numeric id", paramValue: "1024", wantValue: "1024"},
		{name: "url-encoded slash", paramValue: "a%2Fb", wantValue: "a/b"},
		{name: "url-encoded colon", paramValue: "a%3Ab", wantValue: "a:b"},
		{name: "empty", paramValue: "", wantErrMsg: "id cannot be empty"},
		{name: "space only", paramValue: "%20", wantErrMsg: "id cannot be empty"},
		{name: "tab only", paramValue: "%09", wantErrMsg: "id cannot be empty"},
		{name: "space in middle", paramValue: "a%20b", wantErrMsg: "id cannot contain whitespace"},
		{name: "newline at end", paramValue: "ab%0A", wantErrMsg: "id cannot contain whitespace"},
		{name: "longest accepted", paramValue: strings.Repeat("a", MaxIDLength), wantValue: strings.Repeat("a", MaxIDLength)},
		{name: "too long", paramValue: strings.Repeat("a", MaxIDLength+1), wantErrMsg: "id is too long"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			called := false
			router := chi.NewRouter()
			router.Get("/{id}", func(_ http.ResponseWriter, r *http.Request) {
				called = true
				value, err := PathID(r)
				if tt.wantErrMsg != "" {
					require.Error(t, err)
					assert.Equal(t, tt.wantErrMsg, err.Error())
					return
				}
				require.NoError(t, err)
				assert.Equal(t, tt.wantValue, value)
			})
			router.Get("/", func(_ http.ResponseWriter, r *http.Request) {
				called = true
				_, err := PathID(r)
				assert.EqualError(t, err, tt.wantErrMsg)
			})

			req, err := http.NewRequest(http.MethodGet, "/"+tt.paramValue, nil)
			require.NoError(t, err)
			router.ServeHTTP(httptest.NewRecorder(), req)
			assert.True(t, called)
		})
	}

	for _, raw := range []string{"a%2", "a%ZZ", "a%"} {
		t.Run("invalid encoding "+raw, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", raw)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			_, err := PathID(req)
			assert.EqualError(t, err, "invalid URL encoding in id")
		})
	}
}
