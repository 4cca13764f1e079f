package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fastClient(endpoint string) *Client {
	c := NewClient(endpoint, WithMaxRetries(2))
	c.retryDelay = time.Millisecond
	c.maxDelay = 5 * time.Millisecond
	return c
}

func rpcResult(t *testing.T, w http.ResponseWriter, result string) {
	t.Helper()
	if _, err := w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":` + result + `}`)); err != nil {
		t.Fatal(err)
	}
}

func TestCallRetriesTransportFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		rpcResult(t, w, `{"value":{"blockhash":"9sHcv6xwn9YkB8nxTUGKDwPwNnmqVp5oAXxU8Fdkm4J6"}}`)
	}))
	defer srv.Close()

	hash, err := fastClient(srv.URL).GetLatestBlockhash(context.Background())
	if err != nil {
		t.Fatalf("GetLatestBlockhash: %v", err)
	}
	if hash != "9sHcv6xwn9YkB8nxTUGKDwPwNnmqVp5oAXxU8Fdkm4J6" {
		t.Errorf("blockhash = %q", hash)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server saw %d calls, want 3", got)
	}
}

func TestCallDoesNotRetryRPCErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if _, err := w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"invalid params"}}`)); err != nil {
			t.Fatal(err)
		}
	}))
	defer srv.Close()

	_, err := fastClient(srv.URL).GetLatestBlockhash(context.Background())
	if err == nil {
		t.Fatal("expected rpc error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("rpc-level error was retried: %d calls", got)
	}
}

func TestSendTransactionSkipsPreflight(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			Params []any  `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Method != "sendTransaction" {
			t.Errorf("method = %q", req.Method)
		}
		opts, ok := req.Params[1].(map[string]any)
		if !ok || opts["skipPreflight"] != true {
			t.Errorf("skipPreflight not set: %v", req.Params)
		}
		rpcResult(t, w, `"5VERYrealSignature"`)
	}))
	defer srv.Close()

	sig, err := fastClient(srv.URL).SendTransaction(context.Background(), "AQAB")
	if err != nil {
		t.Fatalf("SendTransaction: %v", err)
	}
	if sig != "5VERYrealSignature" {
		t.Errorf("signature = %q", sig)
	}
}

func TestSimulateTransactionSurfacesFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rpcResult(t, w, `{"value":{"err":{"InstructionError":[2,"Custom"]},"logs":[]}}`)
	}))
	defer srv.Close()

	if err := fastClient(srv.URL).SimulateTransaction(context.Background(), "AQAB"); err == nil {
		t.Fatal("expected simulation failure to surface as error")
	}
}

func TestConfirmTransactionReachesConfirmations(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			rpcResult(t, w, `{"value":[{"confirmations":0,"confirmationStatus":"processed","err":null}]}`)
			return
		}
		rpcResult(t, w, `{"value":[{"confirmations":2,"confirmationStatus":"confirmed","err":null}]}`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fastClient(srv.URL).ConfirmTransaction(ctx, "sig", 1); err != nil {
		t.Fatalf("ConfirmTransaction: %v", err)
	}
	if calls.Load() < 2 {
		t.Error("expected at least two status polls")
	}
}

func TestConfirmTransactionOnChainError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rpcResult(t, w, `{"value":[{"confirmations":null,"confirmationStatus":"confirmed","err":"AccountInUse"}]}`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fastClient(srv.URL).ConfirmTransaction(ctx, "sig", 1); err == nil {
		t.Fatal("expected on-chain failure to be reported")
	}
}
