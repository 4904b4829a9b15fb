package provider

import (
	"encoding/json"

	"github.com/sealvault/sealvault-core"
	"github.com/sealvault/sealvault-core/db"
)

// ProviderEvent is the name of a provider notification delivered to the
// page. The names are part of the EIP-1193 surface dapps subscribe to and
// must stay lowerCamelCase.
type ProviderEvent string

const (
	EventConnect          ProviderEvent = "connect"
	EventChainChanged     ProviderEvent = "chainChanged"
	EventAccountsChanged  ProviderEvent = "accountsChanged"
	EventNetworkChanged   ProviderEvent = "networkChanged"
	EventSealVaultConnect ProviderEvent = "sealVaultConnect"
)

// AllProviderEvents lists every notification the bridge can emit.
var AllProviderEvents = []ProviderEvent{
	EventConnect,
	EventChainChanged,
	EventAccountsChanged,
	EventNetworkChanged,
	EventSealVaultConnect,
}

// ProviderMessage is the envelope for notifications pushed to the page.
type ProviderMessage struct {
	Event ProviderEvent `json:"event"`
	Data  any           `json:"data"`
}

// SealVaultConnect is the payload of the sealVaultConnect notification. It
// carries everything the injected script needs to initialize provider state
// in one message, replacing the separate connect and accountsChanged
// notifications a standard provider would emit.
type SealVaultConnect struct {
	ChainID         string `json:"chainId"`
	NetworkVersion  string `json:"networkVersion"`
	SelectedAddress string `json:"selectedAddress"`
}

// notify pushes one notification to the page through the host callback.
// The message crosses the bridge hex encoded like responses do.
func (p *Provider) notify(event ProviderEvent, data any) error {
	message, err := json.Marshal(ProviderMessage{Event: event, Data: data})
	if err != nil {
		return sealvault.Fatal("Failed to serialize json value", err)
	}
	p.callbacks.Notify(EncodeHex(message))
	return nil
}

// notifyConnect tells the page its session is live.
func (p *Provider) notifyConnect(session *db.DappSession) error {
	return p.notify(EventSealVaultConnect, SealVaultConnect{
		ChainID:         session.Chain.DisplayHex(),
		NetworkVersion:  session.Chain.NetworkVersion(),
		SelectedAddress: session.Address,
	})
}

// notifyChainChanged tells the page the session moved to a new chain. The
// legacy networkChanged notification follows chainChanged for dapps that
// still listen to it.
func (p *Provider) notifyChainChanged(chain sealvault.ChainID) error {
	if err := p.notify(EventChainChanged, chain.DisplayHex()); err != nil {
		return err
	}
	return p.notify(EventNetworkChanged, chain.NetworkVersion())
}
