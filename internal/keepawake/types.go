// Package keepawake stops the host machine from idling into sleep or
// blanking its display while something is live on screen.
//
// A Keeper follows the presenter's state and owns at most one inhibitor.
// Inhibitors are helper processes (caffeinate on macOS, systemd-inhibit on
// Linux) tied to the host's lifetime, so a crashed host never leaves the
// machine pinned awake.
package keepawake

import (
	"context"
	"time"
)

// State says whether the display is being held awake.
type State string

const (
	// StateOff means nothing visible is live, so no inhibitor is held.
	StateOff State = "off"
	// StateAcquiring means output went live and the inhibitor is starting.
	StateAcquiring State = "acquiring"
	// StateHolding means the inhibitor is held for the live item.
	StateHolding State = "holding"
	// StateFailed means output is live but the display could not be held.
	StateFailed State = "failed"
)

// Reason explains StateFailed.
type Reason string

const (
	ReasonUnsupported   Reason = "unsupported"
	ReasonAcquireFailed Reason = "acquire_failed"
	// ReasonInhibitorLost means the inhibitor exited while output was live.
	ReasonInhibitorLost Reason = "inhibitor_lost"
)

// Status is a snapshot of the keeper.
type Status struct {
	State State `json:"state"`
	// Item is the title of the live item the display is held for.
	Item      string    `json:"item,omitempty"`
	Reason    Reason    `json:"reason,omitempty"`
	LastError string    `json:"lastError,omitempty"`
	Since     time.Time `json:"since"`
}

// Handle is an acquired inhibitor.
type Handle interface {
	// Done is closed when the inhibitor exits.
	Done() <-chan struct{}
	// Err returns the exit error once Done is closed.
	Err() error
	// Release stops the inhibitor.
	Release(ctx context.Context) error
}

// Adapter acquires platform inhibitors.
type Adapter interface {
	Acquire(ctx context.Context) (Handle, error)
}

// Options configures a Keeper.
type Options struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// ReleaseTimeout bounds how long a release waits for the inhibitor to
	// exit before it is killed. Defaults to DefaultReleaseTimeout.
	ReleaseTimeout time.Duration
}
