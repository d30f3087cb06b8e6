package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoRequest(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantErr   bool
		wantCalls int32
	}{
		{"ok", []int{http.StatusOK}, false, 1},
		{"retry on 503", []int{http.StatusServiceUnavailable, http.StatusOK}, false, 2},
		{"retry on 429", []int{http.StatusTooManyRequests, http.StatusOK}, false, 2},
		{"no retry on 404", []int{http.StatusNotFound, http.StatusOK}, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.statuses[int(n)-1])
			}))
			defer srv.Close()

			c := NewClient(ClientOptions{RequestsPerSec: 100, MaxRetryTimeout: 5 * time.Second})
			req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

			resp, err := c.DoRequest(context.Background(), req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DoRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if resp != nil {
				resp.Body.Close()
			}
			if got := atomic.LoadInt32(&calls); got != tt.wantCalls {
				t.Errorf("server called %d times, want %d", got, tt.wantCalls)
			}
			var statusErr *HTTPStatusError
			if tt.wantErr && !errors.As(err, &statusErr) {
				t.Errorf("error %v is not an HTTPStatusError", err)
			}
		})
	}
}

func TestDoRequestCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	c := NewClient(ClientOptions{RequestsPerSec: 100, MaxRetryTimeout: time.Minute})
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	start := time.Now()
	if _, err := c.DoRequest(ctx, req); err == nil {
		t.Fatal("expected an error")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("retries did not stop when the context expired")
	}
}
