package platform

// Event is a marker for session lifecycle events.
type Event interface{ sessionEvent() }

type ErrorReason int

const (
	// ReasonTransient covers timeouts, rate limits and other retryable
	// failures.
	ReasonTransient ErrorReason = iota
	// ReasonInvalidCredential means the stored token or password was
	// rejected; a fresh password is required.
	ReasonInvalidCredential
)

// AuthenticatedEvent fires once the session has an established identity and
// may issue activity declarations.
type AuthenticatedEvent struct{}

// TwoFactorRequiredEvent asks for a user-supplied code. Respond must be
// called at most once.
type TwoFactorRequiredEvent struct {
	Domain  string
	Respond func(code string)
}

type ErrorEvent struct {
	Reason  ErrorReason
	Message string
}

type DisconnectedEvent struct {
	Message string
}

// IdentityEvent carries best-effort profile metadata.
type IdentityEvent struct {
	Profile Profile
}

// CredentialTokenEvent delivers a reusable login token. Tokens may rotate;
// the latest one must be persisted immediately.
type CredentialTokenEvent struct {
	Token string
}

// DeviceArtifactEvent delivers the opaque device-authorization blob the
// platform expects back on future logins.
type DeviceArtifactEvent struct {
	Data []byte
}

func (AuthenticatedEvent) sessionEvent()     {}
func (TwoFactorRequiredEvent) sessionEvent() {}
func (ErrorEvent) sessionEvent()             {}
func (DisconnectedEvent) sessionEvent()      {}
func (IdentityEvent) sessionEvent()          {}
func (CredentialTokenEvent) sessionEvent()   {}
func (DeviceArtifactEvent) sessionEvent()    {}
