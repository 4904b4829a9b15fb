package app

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tyler-smith/go-bip39"

	"github.com/sealvault/sealvault-core"
	"github.com/sealvault/sealvault-core/db"
	"github.com/sealvault/sealvault-core/eth"
	"github.com/sealvault/sealvault-core/keychain"
	"github.com/sealvault/sealvault-core/provider"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// stubRPCManager keeps core tests off the network.
type stubRPCManager struct {
	provider *stubChainProvider
}

func newStubRPCManager() *stubRPCManager {
	return &stubRPCManager{provider: &stubChainProvider{}}
}

func (m *stubRPCManager) Provider(sealvault.ChainID) eth.ChainProvider {
	return m.provider
}

type stubChainProvider struct{}

func (p *stubChainProvider) ProxyRequest(_ context.Context, _ string, _ json.RawMessage) (json.RawMessage, error) {
	return json.RawMessage(`"0x1"`), nil
}

func (p *stubChainProvider) SendTransaction(_ context.Context, _ *eth.SigningKey, _ eth.TransactionArgs) (common.Hash, error) {
	return common.Hash{}, nil
}

func (p *stubChainProvider) TransferNativeToken(_ context.Context, _ *eth.SigningKey, _ common.Address, _ *eth.NativeTokenAmount) (common.Hash, error) {
	return common.Hash{}, nil
}

type coreFixture struct {
	dbPath   string
	keychain keychain.Keychain
	server   *httptest.Server
	pageURL  string
}

func newCoreFixture(t *testing.T) *coreFixture {
	t.Helper()
	server := httptest.NewServer(http.NewServeMux())
	t.Cleanup(server.Close)
	return &coreFixture{
		dbPath:   filepath.Join(t.TempDir(), "sealvault.db"),
		keychain: keychain.NewInMemory(),
		server:   server,
		pageURL:  server.URL,
	}
}

func (f *coreFixture) open(t *testing.T) *Core {
	t.Helper()
	core, err := NewCore(context.Background(), CoreArgs{
		DBPath:     f.dbPath,
		Keychain:   f.keychain,
		RPC:        newStubRPCManager(),
		HTTPClient: f.server.Client(),
		Logger:     testLogger(),
	})
	if err != nil {
		t.Fatalf("NewCore() error = %v", err)
	}
	return core
}

type coreResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int32  `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeCoreResponse(t *testing.T, responseHex string) coreResponse {
	t.Helper()
	raw, err := hex.DecodeString(responseHex)
	if err != nil {
		t.Fatalf("response is not hex: %v", err)
	}
	var resp coreResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	return resp
}

func TestNewCoreBootstrap(t *testing.T) {
	fixture := newCoreFixture(t)
	core := fixture.open(t)
	defer core.Close()

	account, err := core.ActiveAccount(context.Background())
	if err != nil {
		t.Fatalf("ActiveAccount() error = %v", err)
	}
	if account.Name != "Default" {
		t.Errorf("account name = %q, want %q", account.Name, "Default")
	}

	mnemonic := core.OnboardingMnemonic()
	if words := strings.Fields(mnemonic); len(words) != 12 {
		t.Errorf("mnemonic has %d words, want 12", len(words))
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		t.Errorf("mnemonic %q is not a valid BIP-39 phrase", mnemonic)
	}
}

func TestNewCoreRequiresKeychain(t *testing.T) {
	_, err := NewCore(context.Background(), CoreArgs{
		DBPath: filepath.Join(t.TempDir(), "sealvault.db"),
		Logger: testLogger(),
	})
	if err == nil {
		t.Fatal("NewCore() without keychain succeeded, want error")
	}
}

func TestBootstrapIdempotent(t *testing.T) {
	fixture := newCoreFixture(t)

	first := fixture.open(t)
	firstAccount, err := first.ActiveAccount(context.Background())
	if err != nil {
		t.Fatalf("ActiveAccount() error = %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	second := fixture.open(t)
	defer second.Close()

	secondAccount, err := second.ActiveAccount(context.Background())
	if err != nil {
		t.Fatalf("ActiveAccount() error = %v", err)
	}
	if secondAccount.ID != firstAccount.ID {
		t.Errorf("account id changed across opens: %s != %s", secondAccount.ID, firstAccount.ID)
	}
	if mnemonic := second.OnboardingMnemonic(); mnemonic != "" {
		t.Errorf("second open returned a mnemonic: %q", mnemonic)
	}
}

func TestBootstrapCreatesWalletAddressPerChain(t *testing.T) {
	fixture := newCoreFixture(t)
	core := fixture.open(t)

	account, err := core.ActiveAccount(context.Background())
	if err != nil {
		t.Fatalf("ActiveAccount() error = %v", err)
	}
	if err := core.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	pool, err := db.NewConnectionPool(context.Background(), fixture.dbPath, testLogger())
	if err != nil {
		t.Fatalf("NewConnectionPool() error = %v", err)
	}
	defer pool.Close()

	for _, chain := range sealvault.SupportedChains() {
		if _, err := db.FetchEthWalletAddressID(context.Background(), pool.Conn(), account.ID, chain); err != nil {
			t.Errorf("wallet address missing on %s: %v", chain.DisplayName(), err)
		}
	}
}

func TestCoreInPageRequestApproval(t *testing.T) {
	fixture := newCoreFixture(t)
	core := fixture.open(t)
	defer core.Close()

	callbacks := provider.NewMockCallbacks(true)
	reqCtx := provider.MockPageContext(fixture.pageURL, callbacks)

	responseHex, err := core.InPageRequest(context.Background(),
		reqCtx, `{"jsonrpc":"2.0","id":1,"method":"eth_requestAccounts"}`)
	if err != nil {
		t.Fatalf("InPageRequest() error = %v", err)
	}
	resp := decodeCoreResponse(t, responseHex)
	if resp.Error != nil {
		t.Fatalf("eth_requestAccounts error = %+v", resp.Error)
	}
	var addresses []string
	if err := json.Unmarshal(resp.Result, &addresses); err != nil {
		t.Fatalf("result is not an address list: %v", err)
	}
	if len(addresses) != 1 || !common.IsHexAddress(addresses[0]) {
		t.Fatalf("result = %v, want one hex address", addresses)
	}
	if approvals := callbacks.Approvals(); len(approvals) != 1 {
		t.Errorf("approvals = %d, want 1", len(approvals))
	}
}

func TestCoreSessionSurvivesRestart(t *testing.T) {
	fixture := newCoreFixture(t)

	first := fixture.open(t)
	callbacks := provider.NewMockCallbacks(true)
	reqCtx := provider.MockPageContext(fixture.pageURL, callbacks)
	responseHex, err := first.InPageRequest(context.Background(),
		reqCtx, `{"jsonrpc":"2.0","id":1,"method":"eth_requestAccounts"}`)
	if err != nil {
		t.Fatalf("InPageRequest() error = %v", err)
	}
	if resp := decodeCoreResponse(t, responseHex); resp.Error != nil {
		t.Fatalf("eth_requestAccounts error = %+v", resp.Error)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Keys sync through the database, so the dapp stays usable after a
	// restart without a second approval prompt.
	second := fixture.open(t)
	defer second.Close()

	restartCallbacks := provider.NewMockCallbacks(false)
	restartCtx := provider.MockPageContext(fixture.pageURL, restartCallbacks)
	responseHex, err = second.InPageRequest(context.Background(),
		restartCtx, `{"jsonrpc":"2.0","id":2,"method":"eth_chainId"}`)
	if err != nil {
		t.Fatalf("InPageRequest() after restart error = %v", err)
	}
	resp := decodeCoreResponse(t, responseHex)
	if resp.Error != nil {
		t.Fatalf("eth_chainId after restart error = %+v", resp.Error)
	}
	want := `"` + sealvault.DefaultDappChain().DisplayHex() + `"`
	if string(resp.Result) != want {
		t.Errorf("eth_chainId = %s, want %s", resp.Result, want)
	}
	if approvals := restartCallbacks.Approvals(); len(approvals) != 0 {
		t.Errorf("restart triggered %d approvals, want 0", len(approvals))
	}
}

func TestCoreLoadInPageProviderScript(t *testing.T) {
	fixture := newCoreFixture(t)
	core := fixture.open(t)
	defer core.Close()

	script, err := core.LoadInPageProviderScript("testProvider", "testHandler")
	if err != nil {
		t.Fatalf("LoadInPageProviderScript() error = %v", err)
	}
	if strings.Contains(script, "<SEALVAULT_") {
		t.Error("script still contains unreplaced placeholders")
	}
	if !strings.Contains(script, "testProvider") || !strings.Contains(script, "testHandler") {
		t.Error("script does not contain the injected names")
	}
}
