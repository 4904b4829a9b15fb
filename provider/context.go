package provider

// DappApprovalParams describes a pending dapp approval shown to the user.
// AccountID pins the account the approval was requested under, so a
// concurrent account switch cannot redirect the new dapp key.
type DappApprovalParams struct {
	AccountID      string `json:"accountId"`
	DappIdentifier string `json:"dappIdentifier"`
	// Favicon is the dapp's icon image, if one could be fetched.
	Favicon []byte `json:"favicon,omitempty"`
}

// CoreInPageCallbacks is implemented by the embedding application. The
// bridge calls out through it for user decisions and to push notifications
// into the page.
type CoreInPageCallbacks interface {
	// ApproveDapp presents the approval prompt and blocks until the user
	// decides. Implementations must tolerate being called from multiple
	// request goroutines at once.
	ApproveDapp(params DappApprovalParams) bool

	// Notify delivers a hex encoded ProviderMessage to the page the
	// request came from.
	Notify(messageHex string)
}

// InPageRequestContext identifies the page a request came from and carries
// the callbacks for reaching back to it.
type InPageRequestContext struct {
	// PageURL is the URL of the page executing the injected script.
	PageURL   string
	Callbacks CoreInPageCallbacks
}
