// Package platform defines the boundary to the remote gaming platform. The
// farm coordinator only ever sees these interfaces; the steam package
// provides the production implementation and tests substitute fakes.
package platform

import "context"

type Visibility int

const (
	VisibilityOnline Visibility = iota
	VisibilityOffline
)

// ConnectOptions carries everything a dial needs. Password is only set on
// the first login for an account or on an explicit re-login; afterwards the
// reusable CredentialToken takes its place.
type ConnectOptions struct {
	AccountID       string
	Password        string
	CredentialToken string
	DeviceArtifact  []byte
}

type Profile struct {
	DisplayName string
	AvatarHash  string
}

type OwnedTitle struct {
	TitleID uint32
	Name    string
}

// Conn is one live connection attempt to the platform. Events are delivered
// in the order the platform emits them and the channel closes once the
// connection is finished for good.
type Conn interface {
	Events() <-chan Event
	Disconnect()
	// DeclareActivity reports the set of titles currently being played.
	// An empty set clears the declaration.
	DeclareActivity(titleIDs []uint32) error
	SetVisibility(v Visibility) error
	RequestOwnedTitles(ctx context.Context) ([]OwnedTitle, error)
}

// Dialer opens a new Conn. Each call produces an independent connection;
// declarations never survive across Conns.
type Dialer interface {
	Dial(opts ConnectOptions) (Conn, error)
}
