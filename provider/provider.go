// Package provider implements the in-page provider bridge: the JSON-RPC
// trust boundary between untrusted dapp pages and the wallet core.
//
// A dapp page talks to the wallet through an injected script (see the assets
// package) that forwards EIP-1193 requests as raw JSON strings. The bridge
// gates every sensitive method behind a persisted per-account dapp approval,
// keeps signing key material out of reach of page content, and hex encodes
// everything it sends back so response contents can never execute in the
// page context.
package provider

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sealvault/sealvault-core"
	"github.com/sealvault/sealvault-core/db"
	"github.com/sealvault/sealvault-core/eth"
	"github.com/sealvault/sealvault-core/keychain"
)

// Deps are the long-lived collaborators a Provider borrows for the duration
// of one page's requests. They are owned by the embedding application.
type Deps struct {
	Config     sealvault.Config
	Pool       *db.ConnectionPool
	Keychain   keychain.Keychain
	RPC        eth.RPCManager
	HTTPClient *http.Client
	Background *Background
	Logger     *slog.Logger
}

// Provider handles the JSON-RPC requests of one dapp page. Constructed per
// request context; all state lives in the collaborators.
type Provider struct {
	config     sealvault.Config
	pool       *db.ConnectionPool
	keychain   keychain.Keychain
	rpc        eth.RPCManager
	httpClient *http.Client
	background *Background
	logger     *slog.Logger

	pageURL   string
	callbacks CoreInPageCallbacks
}

// New creates a Provider for one page.
func New(deps Deps, reqCtx InPageRequestContext) *Provider {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Provider{
		config:     deps.Config,
		pool:       deps.Pool,
		keychain:   deps.Keychain,
		rpc:        deps.RPC,
		httpClient: httpClient,
		background: deps.Background,
		logger:     logger,
		pageURL:    reqCtx.PageURL,
		callbacks:  reqCtx.Callbacks,
	}
}

// InPageRequest handles one raw JSON-RPC request from the page and returns
// the hex encoded response. Protocol failures (bad params, unauthorized,
// declined approval) come back as hex encoded JSON-RPC error responses, not
// as Go errors. An error return means no response could be built at all:
// the envelope was unparseable or oversized, so there is no request id to
// respond with, or an internal invariant broke.
func (p *Provider) InPageRequest(ctx context.Context, rawRequest string) (response string, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("in-page request panic", slog.Any("panic", r))
			response = ""
			err = sealvault.Fatalf("in-page request panic: %v", r)
		}
	}()

	// Size ceiling applies before any parsing.
	if len(rawRequest) > p.config.MaxRequestBytes {
		return "", invalidRawRequest(fmt.Errorf("%d bytes over limit", len(rawRequest)))
	}
	req, err := parseRequest(rawRequest)
	if err != nil {
		return "", err
	}

	result, err := p.dispatch(ctx, req)
	if err != nil {
		var rpcErr *sealvault.RPCError
		if errors.As(err, &rpcErr) {
			return p.errorResponse(req.ID, rpcErr)
		}
		p.logger.Error("in-page request failed",
			slog.String("method", req.Method),
			slog.Any("error", err),
		)
		return "", err
	}
	return p.resultResponse(req.ID, result)
}

// dispatch routes a parsed request. The bootstrap methods are reachable
// without a session and may start the approval flow; everything else needs
// an existing session for the requesting page.
func (p *Provider) dispatch(ctx context.Context, req *rpcRequest) (any, error) {
	session, err := p.fetchSessionForApprovedDapp(ctx)
	if err != nil {
		return nil, err
	}

	switch req.Method {
	case "eth_requestAccounts", "eth_accounts":
		return p.ethRequestAccounts(ctx, session)
	}

	if session == nil {
		return nil, sealvault.NewRPCError(sealvault.Unauthorized)
	}
	return p.dispatchAuthorized(ctx, req, session)
}

// dispatchAuthorized routes methods that require an existing session. The
// method set is closed; anything unknown goes to the allow-listed proxy.
func (p *Provider) dispatchAuthorized(ctx context.Context, req *rpcRequest, session *db.DappSession) (any, error) {
	switch req.Method {
	case "eth_chainId":
		return p.ethChainID(session)
	case "eth_sendTransaction":
		return p.ethSendTransaction(ctx, req.Params, session)
	case "personal_sign":
		return p.personalSign(ctx, req.Params, session)
	case "wallet_addEthereumChain":
		return p.walletAddEthereumChain(req.Params)
	case "wallet_switchEthereumChain":
		return p.walletSwitchEthereumChain(ctx, req.Params, session)
	case "web3_clientVersion":
		return p.web3ClientVersion()
	case "web3_sha3":
		return p.web3SHA3(req.Params)
	default:
		return p.proxyMethod(ctx, req.Method, req.Params, session)
	}
}

// fetchSessionForApprovedDapp resolves the requesting page's session under
// the active account inside one transaction, so the account lookup, dapp
// lookup and session creation observe a consistent snapshot. Returns nil
// without error when the account has not added the dapp; the caller decides
// whether that triggers the approval flow.
func (p *Provider) fetchSessionForApprovedDapp(ctx context.Context) (*db.DappSession, error) {
	identifier, err := db.DappIdentifier(p.pageURL)
	if err != nil {
		return nil, err
	}

	var session *db.DappSession
	err = p.pool.DeferredTransaction(ctx, func(tx *sql.Tx) error {
		accountID, err := db.FetchActiveAccountID(ctx, tx)
		if err != nil {
			return err
		}
		dappID, err := db.FetchDappIDForAccount(ctx, tx, accountID, identifier)
		if errors.Is(err, db.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		// The dapp may have been added on another device: keys sync, local
		// sessions do not, so one is created here on first use.
		session, err = db.CreateEthSessionIfNotExists(ctx, tx, db.SessionParams{
			AccountID: accountID,
			DappID:    dappID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// fetchEthSigningKey unseals the session's signing key for one operation.
func (p *Provider) fetchEthSigningKey(ctx context.Context, session *db.DappSession) (*eth.SigningKey, error) {
	var key *eth.SigningKey
	err := p.pool.DeferredTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		key, err = db.FetchEthSigningKey(ctx, tx, p.keychain, session.AddressID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return key, nil
}
