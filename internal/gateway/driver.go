package gateway

// Notification is the verified payload of an inbound gateway callback.
type Notification struct {
	Reference   string // our transaction group id
	ExternalID  string // gateway-side transaction id
	FinalAmount int64  // confirmed amount in USD cents
	Confirmed   bool
	Reason      string // populated on rejection
}

// Driver is the interface every settlement gateway driver implements. A
// driver only talks to its network and verifies callback signatures; it
// never touches the ledger.
type Driver interface {
	// SetConfig applies the driver-specific settings stored in GatewayConfig.
	SetConfig(config map[string]interface{}) error

	// InitiateDeposit registers a watch for an inbound on-chain transfer and
	// returns the gateway's watch handle.
	InitiateDeposit(reference string, expectedAmount int64) (string, error)

	// InitiateWithdrawal submits an outbound transfer and returns the
	// gateway's transaction id. Confirmation arrives later via callback.
	InitiateWithdrawal(reference string, destination string, amount int64) (string, error)

	// Notify verifies the signature of callback parameters and decodes them.
	Notify(params map[string]interface{}) (*Notification, error)
}
