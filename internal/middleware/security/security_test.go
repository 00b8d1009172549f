package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		realIP     string
		want       string
	}{
		{
			name:       "direct public client",
			remoteAddr: "203.0.113.9:4312",
			want:       "203.0.113.9",
		},
		{
			name:       "public client cannot spoof via header",
			remoteAddr: "203.0.113.9:4312",
			forwarded:  "1.2.3.4",
			want:       "203.0.113.9",
		},
		{
			name:       "trusted proxy forwards client",
			remoteAddr: "127.0.0.1:8080",
			forwarded:  "203.0.113.9",
			want:       "203.0.113.9",
		},
		{
			name:       "forwarded chain uses first address",
			remoteAddr: "192.168.1.10:9000",
			forwarded:  "203.0.113.9, 10.0.0.5",
			want:       "203.0.113.9",
		},
		{
			name:       "real ip fallback behind proxy",
			remoteAddr: "10.1.2.3:1234",
			realIP:     "203.0.113.9",
			want:       "203.0.113.9",
		},
		{
			name:       "garbage forwarded header falls back to peer",
			remoteAddr: "127.0.0.1:8080",
			forwarded:  "not-an-ip",
			want:       "127.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}

			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHeadersApply(t *testing.T) {
	h := NewHeaders(DefaultHeadersConfig())
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	h.Apply(w, r)

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want %q", got, "nosniff")
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want %q", got, "DENY")
	}
	if got := w.Header().Get("Content-Security-Policy"); got == "" {
		t.Error("Content-Security-Policy header missing")
	}
	if got := w.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("Strict-Transport-Security = %q over plain HTTP, want empty", got)
	}
}
