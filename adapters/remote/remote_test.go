package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// Client Tests
// =============================================================================

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "k1", Timeout: 2 * time.Second})
}

func TestClient_Snapshot(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/skyblock/bazaar/WHEAT" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "k1" {
			t.Errorf("key = %q, want k1", r.URL.Query().Get("key"))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"product_id":"WHEAT","timestamp":7,"quick_status":{"sellPrice":1.5}}`)
	})

	snap, err := c.Snapshot(context.Background(), "WHEAT")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.ProductID != "WHEAT" || snap.Timestamp != 7 {
		t.Errorf("snapshot = %+v", snap)
	}
	if string(snap.QuickStatus["sellPrice"]) != "1.5" {
		t.Errorf("sellPrice = %s, want 1.5", snap.QuickStatus["sellPrice"])
	}
}

func TestClient_Field(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/skyblock/bazaar/WHEAT/buyPrice" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"value":12.25}`)
	})

	v, err := c.Field(context.Background(), "WHEAT", "buyPrice")
	if err != nil {
		t.Fatalf("Field failed: %v", err)
	}
	if string(v) != "12.25" {
		t.Errorf("value = %s, want 12.25", v)
	}
}

func TestClient_History(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/skyblock/bazaar/WHEAT/sellVolume/3" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"value":[5,4,3]}`)
	})

	vals, err := c.History(context.Background(), "WHEAT", "sellVolume", 3)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(vals) != 3 || string(vals[0]) != "5" || string(vals[2]) != "3" {
		t.Errorf("values = %s", vals)
	}
}

func TestClient_ErrorResponses(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantMsg   string
		notFound  bool
		exhausted bool
	}{
		{"key not found", 404, `{"error":"Key Not Found"}`, "Key Not Found", true, false},
		{"limit exceeded", 429, `{"error":"API Limit Exceeded"}`, "API Limit Exceeded", false, true},
		{"bad request", 400, `{"error":"invalid field"}`, "invalid field", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := c.Field(context.Background(), "WHEAT", "buyPrice")
			var re *RemoteError
			if !errors.As(err, &re) {
				t.Fatalf("err = %v, want *RemoteError", err)
			}
			if re.StatusCode != tt.status || re.Message != tt.wantMsg {
				t.Errorf("RemoteError = %d %q, want %d %q", re.StatusCode, re.Message, tt.status, tt.wantMsg)
			}
			if IsNotFound(err) != tt.notFound {
				t.Errorf("IsNotFound = %v, want %v", IsNotFound(err), tt.notFound)
			}
			if IsLimitExceeded(err) != tt.exhausted {
				t.Errorf("IsLimitExceeded = %v, want %v", IsLimitExceeded(err), tt.exhausted)
			}
		})
	}
}

func TestClient_DoesNotRetryServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"Internal Server Error"}`)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, RetryCount: 2})
	_, err := c.Field(context.Background(), "WHEAT", "buyOrders")

	var re *RemoteError
	if !errors.As(err, &re) || re.StatusCode != 500 {
		t.Fatalf("err = %v, want remote error 500", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestClient_RetriesTransportErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"value":1}`)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, RetryCount: 2})
	if _, err := c.Field(context.Background(), "WHEAT", "buyOrders"); err != nil {
		t.Fatalf("Field failed: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestIsNotFound_OtherErrors(t *testing.T) {
	if IsNotFound(errors.New("boom")) {
		t.Error("plain error reported as not found")
	}
	if IsNotFound(nil) {
		t.Error("nil reported as not found")
	}
}
