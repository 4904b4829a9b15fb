package provider

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sealvault/sealvault-core"
)

func TestLoadInPageProviderScript(t *testing.T) {
	script, err := LoadInPageProviderScript("sealVaultProvider", "sealVaultRequestHandler")
	if err != nil {
		t.Fatalf("LoadInPageProviderScript() error = %v", err)
	}

	if strings.Contains(script, "<SEALVAULT_") {
		t.Error("script still contains placeholders")
	}
	for _, want := range []string{
		"window.sealVaultProvider = provider",
		"window.sealVaultRequestHandler(payload)",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q", want)
		}
	}

	// The default dapp chain state is baked in for synchronous reads.
	chain := sealvault.DefaultDappChain()
	if want := fmt.Sprintf("chainId: %q", chain.DisplayHex()); !strings.Contains(script, want) {
		t.Errorf("script missing %q", want)
	}
	if want := fmt.Sprintf("networkVersion: %q", chain.NetworkVersion()); !strings.Contains(script, want) {
		t.Errorf("script missing %q", want)
	}
}
