package rpcclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fakeNode serves a fixed set of JSON-RPC results keyed by method.
func fakeNode(t *testing.T, results map[string]interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			ID     uint64 `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		resp := map[string]interface{}{"id": req.ID}
		if res, ok := results[req.Method]; ok {
			resp["result"] = res
		} else {
			resp["error"] = map[string]interface{}{"code": -32601, "message": "Method not found"}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGetBlockchainInfo(t *testing.T) {
	srv := fakeNode(t, map[string]interface{}{
		"getblockchaininfo": map[string]interface{}{
			"chain":           "regtest",
			"blocks":          1200,
			"headers":         1250,
			"estimatedheight": 1300,
		},
	})
	info, err := New(srv.URL).GetBlockchainInfo(context.Background())
	if err != nil {
		t.Fatalf("GetBlockchainInfo() error: %v", err)
	}
	if info.Blocks != 1200 || info.Headers != 1250 || info.EstimatedHeight != 1300 {
		t.Errorf("info = %+v", info)
	}
	if info.TargetHeight() != 1300 {
		t.Errorf("TargetHeight() = %d, want 1300", info.TargetHeight())
	}
}

func TestTargetHeight(t *testing.T) {
	tests := []struct {
		name string
		info BlockchainInfo
		want uint64
	}{
		{"synced", BlockchainInfo{Blocks: 10, Headers: 10}, 10},
		{"headers ahead", BlockchainInfo{Blocks: 10, Headers: 15}, 15},
		{"estimate ahead", BlockchainInfo{Blocks: 10, Headers: 12, EstimatedHeight: 20}, 20},
		{"estimate missing", BlockchainInfo{Blocks: 7}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.TargetHeight(); got != tt.want {
				t.Errorf("TargetHeight() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCall_RPCError(t *testing.T) {
	srv := fakeNode(t, nil)
	err := New(srv.URL).Call(context.Background(), "nosuchmethod", nil, nil)
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("Call() error = %v, want *RPCError", err)
	}
	if rpcErr.Code != -32601 {
		t.Errorf("code = %d, want -32601", rpcErr.Code)
	}
}

func TestCall_BasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "rpcuser" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"result":7,"error":null,"id":1}`))
	}))
	defer srv.Close()

	var n int
	if err := New(srv.URL, WithBasicAuth("rpcuser", "secret")).Call(context.Background(), "x", nil, &n); err != nil {
		t.Fatalf("Call() with auth error: %v", err)
	}
	if n != 7 {
		t.Errorf("result = %d, want 7", n)
	}

	err := New(srv.URL).Call(context.Background(), "x", nil, &n)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("Call() without auth error = %v, want 401 HTTPError", err)
	}
}

func TestCall_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := New(srv.URL).Call(ctx, "getblockchaininfo", nil, nil)
	if err == nil {
		t.Fatal("Call() should fail after the deadline")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Call() error = %v, want DeadlineExceeded", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("Call() took %v", time.Since(start))
	}
}

func TestCall_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if err := New(url, WithTimeout(time.Second)).Call(context.Background(), "getblockcount", nil, nil); err == nil {
		t.Error("Call() to a closed server should fail")
	}
}

func TestCall_GarbageResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	if err := New(srv.URL).Call(context.Background(), "getblockcount", nil, nil); err == nil {
		t.Error("Call() should fail on a non-JSON body")
	}
}

func TestCall_IncrementingIDs(t *testing.T) {
	var ids []uint64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID uint64 `json:"id"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		ids = append(ids, req.ID)
		w.Write([]byte(`{"result":null}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	for i := 0; i < 3; i++ {
		if err := c.Call(context.Background(), "ping", nil, nil); err != nil {
			t.Fatal(err)
		}
	}
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Errorf("ids = %v, want [1 2 3]", ids)
	}
}
