package provider

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sealvault/sealvault-core"
	"github.com/sealvault/sealvault-core/db"
	"github.com/sealvault/sealvault-core/eth"
	"github.com/sealvault/sealvault-core/favicon"
	"github.com/sealvault/sealvault-core/retry"
)

// approveNewDapp runs the add-dapp flow: ask the user, create the dapp key
// and session on approval, then kick off the default allotment transfer.
// A declined prompt is a UserRejected protocol error.
func (p *Provider) approveNewDapp(ctx context.Context) (*db.DappSession, error) {
	identifier, err := db.DappIdentifier(p.pageURL)
	if err != nil {
		return nil, err
	}

	// Fetched before the prompt so the user sees the icon while deciding.
	icon := p.fetchFavicon(ctx)

	// Short-lived connection released before the blocking approval prompt.
	accountID, err := db.FetchActiveAccountID(ctx, p.pool.Conn())
	if err != nil {
		return nil, err
	}

	approval := DappApprovalParams{
		AccountID:      accountID,
		DappIdentifier: identifier,
		Favicon:        icon,
	}
	if !p.callbacks.ApproveDapp(approval) {
		return nil, sealvault.NewRPCError(sealvault.UserRejected)
	}

	// The approval pins the account id: the active account may have changed
	// while the prompt was up, and the key must go where the user approved it.
	session, err := p.addNewDapp(ctx, approval)
	if err != nil {
		return nil, err
	}
	if err := p.transferDefaultDappAllotment(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// fetchFavicon fetches the page's icon on a best effort basis. The approval
// prompt works without one.
func (p *Provider) fetchFavicon(ctx context.Context) []byte {
	ctx, cancel := context.WithTimeout(ctx, p.config.FaviconTimeout)
	defer cancel()

	icon, err := favicon.Fetch(ctx, p.httpClient, p.pageURL, p.config.MaxFaviconBytes)
	if err != nil {
		p.logger.Warn("favicon fetch failed",
			slog.String("page_url", p.pageURL),
			slog.Any("error", err),
		)
		return nil
	}
	return icon
}

// addNewDapp creates the dapp record, a fresh dapp key on the default dapp
// chain and the session in one transaction. The dapp key may already exist
// if the same dapp was approved concurrently or synced from another device
// while the prompt was up, in which case the existing key is kept.
func (p *Provider) addNewDapp(ctx context.Context, approval DappApprovalParams) (*db.DappSession, error) {
	chain := sealvault.DefaultDappChain()
	key, err := eth.GenerateKey(chain)
	if err != nil {
		return nil, err
	}

	var session *db.DappSession
	err = p.pool.DeferredTransaction(ctx, func(tx *sql.Tx) error {
		dappID, err := db.CreateDappIfNotExists(ctx, tx, approval.DappIdentifier)
		if err != nil {
			return err
		}
		_, err = db.FetchDappIDForAccount(ctx, tx, approval.AccountID, approval.DappIdentifier)
		if errors.Is(err, db.ErrNotFound) {
			_, _, err = db.InsertEthKey(ctx, tx, p.keychain, db.NewKeyParams{
				AccountID: approval.AccountID,
				DappID:    dappID,
				Key:       key,
			})
		}
		if err != nil {
			return err
		}
		session, err = db.CreateEthSessionIfNotExists(ctx, tx, db.SessionParams{
			AccountID: approval.AccountID,
			DappID:    dappID,
			Chain:     chain,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// transferDefaultDappAllotment funds the new dapp address with the chain's
// configured allotment from the account's wallet address. The database reads
// happen synchronously; the remote transfer runs in the background so the
// page gets its response without waiting on the chain. A failed transfer is
// logged and the user keeps the funds, it does not unwind the approval.
func (p *Provider) transferDefaultDappAllotment(ctx context.Context, session *db.DappSession) error {
	var (
		settings  db.ChainSettings
		walletKey *eth.SigningKey
	)
	err := p.pool.DeferredTransaction(ctx, func(tx *sql.Tx) error {
		walletAddressID, err := db.FetchEthWalletAddressID(ctx, tx, session.AccountID, session.Chain)
		if err != nil {
			return err
		}
		settings, err = db.FetchChainSettings(ctx, tx, session.Chain)
		if err != nil {
			return err
		}
		walletKey, err = db.FetchEthSigningKey(ctx, tx, p.keychain, walletAddressID)
		return err
	})
	if err != nil {
		return err
	}

	amount, err := eth.NewNativeTokenAmount(settings.DefaultDappAllotment)
	if err != nil {
		return sealvault.Fatal("invalid default dapp allotment setting", err)
	}
	if !common.IsHexAddress(session.Address) {
		return sealvault.Fatalf("stored dapp address is not an address: %q", session.Address)
	}
	dappAddress := common.HexToAddress(session.Address)
	chainProvider := p.rpc.Provider(session.Chain)

	logger := p.logger.With(
		slog.String("dapp_address", session.Address),
		slog.String("chain", session.Chain.DisplayName()),
		slog.String("amount", amount.String()),
	)
	rpcTimeout := p.config.RPCTimeout
	p.background.Go("transfer-dapp-allotment", func(ctx context.Context) {
		hash, err := retry.WithRetry(ctx, retry.DefaultConfig, retry.OnRetriable,
			func() (common.Hash, error) {
				callCtx, cancel := context.WithTimeout(ctx, rpcTimeout)
				defer cancel()
				return chainProvider.TransferNativeToken(callCtx, walletKey, dappAddress, amount)
			})
		if err != nil {
			// TODO surface the failure on the account view so the user can
			// fund the dapp address manually.
			logger.Error("default dapp allotment transfer failed", slog.Any("error", err))
			return
		}
		logger.Info("default dapp allotment transferred", slog.String("tx_hash", hash.Hex()))
	})
	return nil
}
