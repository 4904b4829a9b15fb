// Package app assembles the wallet core: configuration, persistence, key
// encryption, chain RPC and the in-page provider bridge behind one Core
// type the embedding application owns.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sealvault/sealvault-core"
	"github.com/sealvault/sealvault-core/db"
	"github.com/sealvault/sealvault-core/encryption"
	"github.com/sealvault/sealvault-core/eth"
	"github.com/sealvault/sealvault-core/keychain"
	"github.com/sealvault/sealvault-core/provider"
)

// defaultAccountName is the name of the account created on first run.
const defaultAccountName = "Default"

// CoreArgs are the construction parameters of a Core.
type CoreArgs struct {
	// Config holds process-wide settings. The zero value means defaults.
	Config sealvault.Config

	// DBPath locates the SQLite database file, created on first run.
	DBPath string

	// Keychain stores the root key-encryption-key. Required.
	Keychain keychain.Keychain

	// RPC hands out chain providers. Defaults to the production HTTP
	// manager with the registry's endpoints.
	RPC eth.RPCManager

	// HTTPClient is used for favicon fetches. Defaults to http.DefaultClient
	// semantics.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Core owns the long-lived state of the wallet and hands out per-request
// bridges. Safe for concurrent use.
type Core struct {
	config     sealvault.Config
	pool       *db.ConnectionPool
	keychain   keychain.Keychain
	rpc        eth.RPCManager
	httpClient *http.Client
	background *provider.Background
	logger     *slog.Logger

	onboardingMnemonic string
}

// NewCore opens the database, runs first-run bootstrap if needed and wires
// the bridge dependencies.
func NewCore(ctx context.Context, args CoreArgs) (*Core, error) {
	if args.Keychain == nil {
		return nil, fmt.Errorf("core: keychain is required")
	}
	config := args.Config
	if config == (sealvault.Config{}) {
		config = sealvault.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("core config: %w", err)
	}
	logger := args.Logger
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := args.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	rpc := args.RPC
	if rpc == nil {
		rpc = eth.NewHTTPRPCManager(httpClient, logger)
	}

	pool, err := db.NewConnectionPool(ctx, args.DBPath, logger)
	if err != nil {
		return nil, err
	}

	core := &Core{
		config:     config,
		pool:       pool,
		keychain:   args.Keychain,
		rpc:        rpc,
		httpClient: httpClient,
		background: provider.NewBackground(config.MaxConcurrentTokenTransfers, logger),
		logger:     logger,
	}
	if err := core.bootstrap(ctx); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return core, nil
}

// bootstrap prepares the wallet for use: root keys, the default account and
// its wallet key with an address on every supported chain. Opening an
// already bootstrapped database changes nothing.
func (c *Core) bootstrap(ctx context.Context) error {
	if err := c.ensureKeyEncryptionKey(); err != nil {
		return err
	}

	return c.pool.DeferredTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := db.EnsureSKDataEncryptionKey(ctx, tx, c.keychain); err != nil {
			return err
		}

		_, err := db.FetchActiveAccountID(ctx, tx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sealvault.ErrNoActiveAccount) {
			return err
		}

		accountID, err := db.CreateAccount(ctx, tx, defaultAccountName)
		if err != nil {
			return err
		}

		mnemonic, err := eth.GenerateMnemonic()
		if err != nil {
			return err
		}
		walletKey, err := eth.DeriveWalletKey(mnemonic, sealvault.DefaultDappChain())
		if err != nil {
			return err
		}
		keyID, _, err := db.InsertEthKey(ctx, tx, c.keychain, db.NewKeyParams{
			AccountID: accountID,
			Key:       walletKey,
		})
		if err != nil {
			return err
		}
		for _, chain := range sealvault.SupportedChains() {
			if _, err := db.FetchOrCreateAddressForEthChain(ctx, tx, keyID, chain); err != nil {
				return err
			}
		}

		if err := db.SetActiveAccountID(ctx, tx, accountID); err != nil {
			return err
		}

		// Held for the host to show the recovery phrase once. The derived
		// key is what persists; the phrase itself is never stored.
		c.onboardingMnemonic = mnemonic
		return nil
	})
}

// ensureKeyEncryptionKey generates the root KEK on first run.
func (c *Core) ensureKeyEncryptionKey() error {
	_, err := c.keychain.Get(keychain.SKKeyEncryptionKeyName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, keychain.ErrItemNotFound) {
		return fmt.Errorf("read key encryption key: %w", err)
	}
	kek, err := encryption.NewKey()
	if err != nil {
		return err
	}
	if err := c.keychain.Put(keychain.SKKeyEncryptionKeyName, kek); err != nil {
		return fmt.Errorf("store key encryption key: %w", err)
	}
	return nil
}

// OnboardingMnemonic returns the recovery phrase of the account created by
// this Core, or empty when the database was already bootstrapped. Hosts show
// it to the user once for backup.
func (c *Core) OnboardingMnemonic() string {
	return c.onboardingMnemonic
}

// InPageRequest runs one raw JSON-RPC request from the page identified by
// reqCtx through the bridge.
func (c *Core) InPageRequest(ctx context.Context, reqCtx provider.InPageRequestContext, rawRequest string) (string, error) {
	bridge := provider.New(provider.Deps{
		Config:     c.config,
		Pool:       c.pool,
		Keychain:   c.keychain,
		RPC:        c.rpc,
		HTTPClient: c.httpClient,
		Background: c.background,
		Logger:     c.logger,
	}, reqCtx)
	return bridge.InPageRequest(ctx, rawRequest)
}

// LoadInPageProviderScript returns the provider script for injection.
func (c *Core) LoadInPageProviderScript(rpcProviderName, requestHandlerName string) (string, error) {
	return provider.LoadInPageProviderScript(rpcProviderName, requestHandlerName)
}

// ActiveAccount returns the active account.
func (c *Core) ActiveAccount(ctx context.Context) (*db.Account, error) {
	accountID, err := db.FetchActiveAccountID(ctx, c.pool.Conn())
	if err != nil {
		return nil, err
	}
	return db.FetchAccount(ctx, c.pool.Conn(), accountID)
}

// Close drains in-flight background work and closes the database.
func (c *Core) Close() error {
	c.background.Wait()
	return c.pool.Close()
}
