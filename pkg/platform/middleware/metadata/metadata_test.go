package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIPFromRequest(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{
			name:       "remote addr with port",
			remoteAddr: "203.0.113.7:51234",
			want:       "203.0.113.7",
		},
		{
			name:       "ipv6 remote addr",
			remoteAddr: "[2001:db8::1]:443",
			want:       "2001:db8::1",
		},
		{
			name:       "forwarded-for trusted",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"},
			trustProxy: true,
			want:       "203.0.113.7",
		},
		{
			name:       "real-ip trusted",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Real-IP": "203.0.113.7"},
			trustProxy: true,
			want:       "203.0.113.7",
		},
		{
			name:       "forwarded-for ignored without proxy trust",
			remoteAddr: "203.0.113.7:51234",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.99"},
			want:       "203.0.113.7",
		},
		{
			name:       "real-ip ignored without proxy trust",
			remoteAddr: "203.0.113.7:51234",
			headers:    map[string]string{"X-Real-IP": "198.51.100.99"},
			want:       "203.0.113.7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for name, value := range tt.headers {
				req.Header.Set(name, value)
			}
			assert.Equal(t, tt.want, ClientIPFromRequest(req, tt.trustProxy))
		})
	}
}
