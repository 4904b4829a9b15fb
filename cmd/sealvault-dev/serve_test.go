package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sealvault/sealvault-core"
	"github.com/sealvault/sealvault-core/app"
	"github.com/sealvault/sealvault-core/eth"
	"github.com/sealvault/sealvault-core/keychain"
	"github.com/sealvault/sealvault-core/provider"
)

type stubRPCManager struct{}

func (stubRPCManager) Provider(sealvault.ChainID) eth.ChainProvider {
	return stubChainProvider{}
}

type stubChainProvider struct{}

func (stubChainProvider) ProxyRequest(context.Context, string, json.RawMessage) (json.RawMessage, error) {
	return json.RawMessage(`"0x1"`), nil
}

func (stubChainProvider) SendTransaction(context.Context, *eth.SigningKey, eth.TransactionArgs) (common.Hash, error) {
	return common.Hash{}, nil
}

func (stubChainProvider) TransferNativeToken(context.Context, *eth.SigningKey, common.Address, *eth.NativeTokenAmount) (common.Hash, error) {
	return common.Hash{}, nil
}

func newTestDevServer(t *testing.T) (*httptest.Server, *provider.MockCallbacks) {
	t.Helper()
	discard := slog.New(slog.DiscardHandler)

	pageServer := httptest.NewServer(http.NewServeMux())
	t.Cleanup(pageServer.Close)

	testCore, err := app.NewCore(context.Background(), app.CoreArgs{
		DBPath:     filepath.Join(t.TempDir(), "sealvault.db"),
		Keychain:   keychain.NewInMemory(),
		RPC:        stubRPCManager{},
		HTTPClient: pageServer.Client(),
		Logger:     discard,
	})
	if err != nil {
		t.Fatalf("NewCore() error = %v", err)
	}
	t.Cleanup(func() { testCore.Close() })

	callbacks := provider.NewMockCallbacks(true)
	devServer := httptest.NewServer(newDevHandler(testCore, callbacks, pageServer.URL, discard))
	t.Cleanup(devServer.Close)
	return devServer, callbacks
}

func postInPageRequest(t *testing.T, server *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(server.URL+"/in-page-request", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /in-page-request error = %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestDevHandlerInPageRequest(t *testing.T) {
	server, _ := newTestDevServer(t)

	resp := postInPageRequest(t, server, `{"jsonrpc":"2.0","id":1,"method":"eth_requestAccounts"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	decoded, err := hex.DecodeString(string(body))
	if err != nil {
		t.Fatalf("body is not hex: %v", err)
	}
	var rpcResp struct {
		Result []string `json:"result"`
	}
	if err := json.Unmarshal(decoded, &rpcResp); err != nil {
		t.Fatalf("decoded body is not a JSON-RPC response: %v", err)
	}
	if len(rpcResp.Result) != 1 || !common.IsHexAddress(rpcResp.Result[0]) {
		t.Errorf("result = %v, want one hex address", rpcResp.Result)
	}
}

func TestDevHandlerEvents(t *testing.T) {
	server, _ := newTestDevServer(t)

	resp := postInPageRequest(t, server, `{"jsonrpc":"2.0","id":1,"method":"eth_requestAccounts"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	eventsResp, err := http.Get(server.URL + "/events")
	if err != nil {
		t.Fatalf("GET /events error = %v", err)
	}
	defer eventsResp.Body.Close()

	var events []devEvent
	if err := json.NewDecoder(eventsResp.Body).Decode(&events); err != nil {
		t.Fatalf("events are not JSON: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Event != string(provider.EventSealVaultConnect) {
		t.Errorf("event = %q, want %q", events[0].Event, provider.EventSealVaultConnect)
	}
}

func TestDevHandlerProviderScript(t *testing.T) {
	server, _ := newTestDevServer(t)

	resp, err := http.Get(server.URL + "/in-page-provider.js")
	if err != nil {
		t.Fatalf("GET /in-page-provider.js error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/javascript") {
		t.Errorf("Content-Type = %q, want application/javascript", ct)
	}
	script, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if strings.Contains(string(script), "<SEALVAULT_") {
		t.Error("script still contains unreplaced placeholders")
	}
	if !strings.Contains(string(script), "sealVaultProvider") {
		t.Error("script does not reference the provider name")
	}
}

func TestDevHandlerEnvelopeError(t *testing.T) {
	server, _ := newTestDevServer(t)

	resp := postInPageRequest(t, server, "not json at all")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
