package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(retries int) *Client {
	return New(Options{
		Timeout:         time.Second,
		MaxRetries:      retries,
		InitialInterval: time.Millisecond,
		Policy:          NoDelay(),
	})
}

func TestClient_Get(t *testing.T) {
	var agent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		w.Write([]byte("<html>Built in 1871</html>"))
	}))
	defer server.Close()

	body, err := newTestClient(1).Get(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(body) != "<html>Built in 1871</html>" {
		t.Errorf("Get() body = %q", body)
	}
	if agent != UserAgents[0] {
		t.Errorf("User-Agent = %q, want first rotation entry", agent)
	}
}

func TestClient_Retry(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		retries   int
		wantCalls int32
		wantErr   bool
		wantCode  int
	}{
		{
			name:      "5xx then success",
			statuses:  []int{http.StatusBadGateway, http.StatusOK},
			retries:   1,
			wantCalls: 2,
		},
		{
			name:      "429 retried until budget exhausted",
			statuses:  []int{http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusOK},
			retries:   1,
			wantCalls: 2,
			wantErr:   true,
			wantCode:  http.StatusTooManyRequests,
		},
		{
			name:      "404 is permanent",
			statuses:  []int{http.StatusNotFound, http.StatusOK},
			retries:   3,
			wantCalls: 1,
			wantErr:   true,
			wantCode:  http.StatusNotFound,
		},
		{
			name:      "no retries configured",
			statuses:  []int{http.StatusServiceUnavailable, http.StatusOK},
			retries:   0,
			wantCalls: 1,
			wantErr:   true,
			wantCode:  http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := calls.Add(1) - 1
				w.WriteHeader(tt.statuses[n])
			}))
			defer server.Close()

			_, err := newTestClient(tt.retries).Get(context.Background(), server.URL, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Get() error = %v, wantErr %v", err, tt.wantErr)
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls.Load(), tt.wantCalls)
			}
			if tt.wantErr {
				var se *StatusError
				if !errors.As(err, &se) || se.Code != tt.wantCode {
					t.Errorf("Get() error = %v, want status %d", err, tt.wantCode)
				}
				if !errors.Is(err, ErrStatus) {
					t.Error("error should wrap ErrStatus")
				}
			}
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c := New(Options{Timeout: 20 * time.Millisecond, Policy: NoDelay(), InitialInterval: time.Millisecond})
	if _, err := c.Get(context.Background(), server.URL, nil); err == nil {
		t.Error("Get() should time out")
	}
}

func TestClient_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(2).Get(ctx, server.URL, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v, want context.Canceled", err)
	}
}

func TestClient_UserAgentRotation(t *testing.T) {
	c := New(Options{UserAgents: []string{"a", "b"}})
	got := []string{c.UserAgent(), c.UserAgent(), c.UserAgent()}
	if got[0] != "a" || got[1] != "b" || got[2] != "a" {
		t.Errorf("rotation = %v", got)
	}
}

func TestPolicy_Wait(t *testing.T) {
	p := NewPolicy(0, 10*time.Millisecond, 20*time.Millisecond)
	start := time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("Wait() returned after %v, want >= 10ms", elapsed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewPolicy(0, time.Hour, time.Hour).Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() on cancelled context = %v", err)
	}
}

func TestToken(t *testing.T) {
	var tok Token
	if tok.Cancelled() {
		t.Fatal("new token is cancelled")
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok.Cancel()
		}()
	}
	wg.Wait()
	if !tok.Cancelled() {
		t.Error("Cancel() had no effect")
	}
}
