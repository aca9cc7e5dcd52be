package utils

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func TestSignWebhook_Verify(t *testing.T) {
	body := []byte(`{"status":"completed"}`)
	sig := SignWebhook("s3cret", "1700000000", body)
	if !VerifyWebhookSign("s3cret", "1700000000", body, sig) {
		t.Fatal("valid signature rejected")
	}
	if VerifyWebhookSign("s3cret", "1700000000", []byte(`{"status":"failed"}`), sig) {
		t.Fatal("tampered body accepted")
	}
	if VerifyWebhookSign("s3cret", "1700000001", body, sig) {
		t.Fatal("different timestamp accepted")
	}
	if VerifyWebhookSign("", "1700000000", body, sig) {
		t.Fatal("empty secret must never verify")
	}
}

func TestIsTimestampValidAt(t *testing.T) {
	now := time.Unix(1700000000, 0)
	window := 300 * time.Second
	cases := []struct {
		name string
		ts   time.Time
		want bool
	}{
		{"fresh", now.Add(-10 * time.Second), true},
		{"edge", now.Add(-300 * time.Second), true},
		{"ten minutes old", now.Add(-10 * time.Minute), false},
		{"far future", now.Add(10 * time.Minute), false},
	}
	for _, c := range cases {
		if got := IsTimestampValidAt(c.ts, now, window); got != c.want {
			t.Errorf("%s: got %v want %v", c.name, got, c.want)
		}
	}
}

func TestBaseUnits(t *testing.T) {
	units, err := ToBaseUnits(decimal.RequireFromString("50.1234567"), 6)
	if err != nil || units != 50123456 {
		t.Fatalf("ToBaseUnits = %d, %v", units, err)
	}
	if _, err := ToBaseUnits(decimal.RequireFromString("-1"), 6); err == nil {
		t.Fatal("negative amount accepted")
	}
	if got := FromBaseUnits(150000000, 8).String(); got != "1.5" {
		t.Fatalf("FromBaseUnits = %s", got)
	}
}

func TestDoWithRetry(t *testing.T) {
	calls := 0
	err := DoWithRetry(context.Background(), 3, time.Millisecond, func(attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("boom")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}

	calls = 0
	err = DoWithRetry(context.Background(), 2, time.Millisecond, func(int) error {
		calls++
		return errors.New("always")
	})
	if err == nil || calls != 2 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}

	calls = 0
	stop := errors.New("bad request")
	err = DoWithRetry(context.Background(), 5, time.Millisecond, func(int) error {
		calls++
		return Permanent(stop)
	})
	if err != stop || calls != 1 {
		t.Fatalf("permanent: err=%v calls=%d", err, calls)
	}
}

func TestDoJSON_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	_, err := DoJSON(context.Background(), srv.Client(), http.MethodGet, srv.URL, nil, nil, nil)
	var se *HTTPStatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
}

func TestGetClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"cloudflare header", map[string]string{"CF-Connecting-IP": "203.0.113.7"}, "10.0.0.1:1234", "203.0.113.7"},
		{"real ip header", map[string]string{"X-Real-IP": " 2001:db8::1 "}, "10.0.0.1:1234", "2001:db8::1"},
		{"garbage header falls back", map[string]string{"X-Real-IP": "nope"}, "198.51.100.2:80", "198.51.100.2"},
		{"remote addr", nil, "198.51.100.3:80", "198.51.100.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Request.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}
			if got := GetClientIP(c); got != tt.want {
				t.Errorf("GetClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
