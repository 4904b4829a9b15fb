package eth

import (
	"strings"
	"testing"

	"github.com/tyler-smith/go-bip39"

	"github.com/sealvault/sealvault-core"
)

// The dev-tooling standard mnemonic with a well-known first address.
const testMnemonic = "test test test test test test test test test test test junk"

func TestDeriveWalletKeyKnownVector(t *testing.T) {
	key, err := DeriveWalletKey(testMnemonic, sealvault.EthereumMainnet)
	if err != nil {
		t.Fatalf("DeriveWalletKey() error: %v", err)
	}

	want := "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	if got := key.CheckedAddress(); got != want {
		t.Errorf("address = %s, want %s", got, want)
	}
}

// TestDeriveWalletKeySameKeyAcrossChains verifies that the key material does
// not depend on the chain; only the binding does.
func TestDeriveWalletKeySameKeyAcrossChains(t *testing.T) {
	ethKey, err := DeriveWalletKey(testMnemonic, sealvault.EthereumMainnet)
	if err != nil {
		t.Fatalf("DeriveWalletKey(ethereum) error: %v", err)
	}
	polygonKey, err := DeriveWalletKey(testMnemonic, sealvault.PolygonMainnet)
	if err != nil {
		t.Fatalf("DeriveWalletKey(polygon) error: %v", err)
	}

	if ethKey.Address != polygonKey.Address {
		t.Errorf("addresses differ across chains: %s vs %s", ethKey.Address.Hex(), polygonKey.Address.Hex())
	}
	if ethKey.ChainID == polygonKey.ChainID {
		t.Error("chain binding should differ")
	}
}

func TestDeriveWalletKeyInvalidMnemonic(t *testing.T) {
	tests := []struct {
		name     string
		mnemonic string
	}{
		{"empty", ""},
		{"garbage", "not a mnemonic at all"},
		{"bad checksum", "test test test test test test test test test test test test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DeriveWalletKey(tt.mnemonic, sealvault.EthereumMainnet); err == nil {
				t.Error("DeriveWalletKey() accepted an invalid mnemonic")
			}
		})
	}
}

func TestGenerateMnemonic(t *testing.T) {
	first, err := GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic() error: %v", err)
	}
	if words := len(strings.Fields(first)); words != 12 {
		t.Errorf("word count = %d, want 12", words)
	}
	if !bip39.IsMnemonicValid(first) {
		t.Error("generated mnemonic fails validation")
	}

	second, err := GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic() error: %v", err)
	}
	if first == second {
		t.Error("two generated mnemonics are identical")
	}
}
