package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
)

// DappIdentifier derives the canonical dapp identity from the page URL: the
// registrable domain (eTLD+1) of the host. Subdomains of one registrable
// domain share an identity, so share keys and sessions. Hosts without a
// registrable domain (localhost, raw IPs) fall back to the host itself.
func DappIdentifier(pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return "", fmt.Errorf("page url %q has no host", pageURL)
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host, nil
	}
	return domain, nil
}

// CreateDappIfNotExists inserts the dapp identity and returns its id.
func CreateDappIfNotExists(ctx context.Context, q Querier, identifier string) (string, error) {
	_, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO dapps (id, identifier, created_at) VALUES (?, ?, ?)`,
		uuid.NewString(), identifier, nowString(),
	)
	if err != nil {
		return "", fmt.Errorf("create dapp: %w", err)
	}
	var id string
	err = q.QueryRowContext(ctx,
		`SELECT id FROM dapps WHERE identifier = ?`, identifier,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("fetch dapp: %w", err)
	}
	return id, nil
}

// FetchDappIDForAccount returns the dapp id if the account has added the
// dapp, meaning a key exists for the (account, dapp) pair. A dapp row created
// by another account does not count.
func FetchDappIDForAccount(ctx context.Context, q Querier, accountID, identifier string) (string, error) {
	var id string
	err := q.QueryRowContext(ctx,
		`SELECT d.id FROM dapps d
		 JOIN asymmetric_keys k ON k.dapp_id = d.id
		 WHERE d.identifier = ? AND k.account_id = ?`,
		identifier, accountID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("dapp %q for account: %w", identifier, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("fetch dapp for account: %w", err)
	}
	return id, nil
}
