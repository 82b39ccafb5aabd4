package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestExtractClientIP_xForwardedFor(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{
			name:     "single IP",
			header:   "192.168.1.1",
			expected: "192.168.1.1",
		},
		{
			name:     "multiple IPs (take first)",
			header:   "203.0.113.1, 198.51.100.1",
			expected: "203.0.113.1",
		},
		{
			name:     "multiple IPs with extra spaces",
			header:   " 203.0.113.1  ,  198.51.100.1",
			expected: "203.0.113.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("X-Forwarded-For", tt.header)

			require.Equal(t, tt.expected, ExtractClientIP(r))
		})
	}
}

func TestExtractClientIP_xRealIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Real-IP", "192.168.1.100")

	require.Equal(t, "192.168.1.100", ExtractClientIP(r))
}

func TestExtractClientIP_remoteAddr(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "[::1]:51234"
	require.Equal(t, "::1", ExtractClientIP(r))

	r.RemoteAddr = "10.0.0.1"
	require.Equal(t, "10.0.0.1", ExtractClientIP(r))
}

func TestRequestLogger(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := zerolog.New(buf).Level(zerolog.DebugLevel)

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotNil(t, zerolog.Ctx(r.Context()))
		http.Error(w, "nope", http.StatusTeapot)
	}))

	r := httptest.NewRequest(http.MethodGet, "/dist/bundle.js", nil)
	r.RemoteAddr = "127.0.0.1:4000"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusTeapot, w.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	require.Equal(t, "http request", entry["message"])
	require.Equal(t, "/dist/bundle.js", entry["path"])
	require.Equal(t, "127.0.0.1", entry["client_ip"])
	require.EqualValues(t, http.StatusTeapot, entry["status"])
}

func TestStatusRecorder_Unwrap(t *testing.T) {
	w := httptest.NewRecorder()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	require.NoError(t, http.NewResponseController(rec).Flush())
	require.True(t, w.Flushed)
}
