// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bot

import (
	"context"
	"errors"
)

// ErrAuthExpired means the persisted session token is no longer
// accepted by the transport.
var ErrAuthExpired = errors.New("bot session authorization expired")

// Transport is the wire-level connection to the bot archive. The
// conversation state machine sits on top of this boundary; the wire
// protocol itself is an implementation detail behind it.
//
// Implementations are used single-flight: the Session guarantees no two
// exchanges are outstanding concurrently.
type Transport interface {
	// Probe is a lightweight "am I still authorized" check. It returns
	// ErrAuthExpired when the persisted session token is rejected.
	Probe(ctx context.Context) error

	// Send delivers a query message to the bot.
	Send(ctx context.Context, text string) error

	// Invoke presses an interactive action by its opaque handle.
	Invoke(ctx context.Context, handle string) error

	// Updates drains messages that arrived since the last call. An
	// empty slice with a nil error means nothing arrived yet.
	Updates(ctx context.Context) ([]Message, error)

	// Download fetches a delivered asset to destPath and returns its
	// size in bytes. Partial files must not be left behind on failure.
	Download(ctx context.Context, asset AssetRef, destPath string) (int64, error)

	// Close releases the connection.
	Close() error
}

// Authenticator runs the fresh authentication flow when the persisted
// session token is rejected. The flow itself is an external
// collaborator; it yields a new session token for the transport.
type Authenticator interface {
	Authenticate(ctx context.Context) (token string, err error)
}
