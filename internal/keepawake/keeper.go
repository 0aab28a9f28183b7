package keepawake

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/stagehand/remote/internal/errors"
	"github.com/stagehand/remote/internal/logging"
	"github.com/stagehand/remote/internal/protocol"
)

// DefaultReleaseTimeout is the default Options.ReleaseTimeout.
const DefaultReleaseTimeout = 2 * time.Second

// Keeper holds an inhibitor while output is live and not hidden. It is a
// presentation state sink: UpdateRemoteState only records the latest screen,
// and Run reconciles the inhibitor with it on its own goroutine, so
// publishers never wait for a helper process.
type Keeper struct {
	adapter Adapter
	now     func() time.Time
	timeout time.Duration
	log     zerolog.Logger

	mu      sync.Mutex
	screen  screen
	changed bool
	status  Status

	signal chan struct{}
}

// screen is the part of the presentation state the keeper acts on.
type screen struct {
	awake bool
	item  string
}

func screenOf(state protocol.RemoteAppState) screen {
	s := screen{awake: state.IsLive && !state.HideLive}
	if s.awake && state.CurrentItem != nil {
		s.item = state.CurrentItem.Title
	}
	return s
}

// New creates a keeper that takes inhibitors from adapter. Call Run to
// start following state.
func New(adapter Adapter, opts Options) *Keeper {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	timeout := opts.ReleaseTimeout
	if timeout <= 0 {
		timeout = DefaultReleaseTimeout
	}
	return &Keeper{
		adapter: adapter,
		now:     now,
		timeout: timeout,
		log:     logging.Component("keepawake"),
		status:  Status{State: StateOff, Since: now()},
		signal:  make(chan struct{}, 1),
	}
}

// UpdateRemoteState records what is on screen. It never blocks.
func (k *Keeper) UpdateRemoteState(state protocol.RemoteAppState) {
	k.mu.Lock()
	k.screen = screenOf(state)
	k.changed = true
	k.mu.Unlock()

	select {
	case k.signal <- struct{}{}:
	default:
	}
}

// Status returns the current status.
func (k *Keeper) Status() Status {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.status
}

// Run follows the screen until ctx is done, then releases any held
// inhibitor. Intermediate screens are skipped. Only Run touches the
// inhibitor.
func (k *Keeper) Run(ctx context.Context) {
	var (
		held Handle
		lost <-chan struct{}
		// unsupported is sticky: the host has no inhibitor to retry.
		unsupported string
	)
	defer func() {
		if held != nil {
			k.release(held)
		}
		k.setStatus(Status{State: StateOff})
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-lost:
			msg := exitMessage(held.Err())
			item := k.Status().Item
			held, lost = nil, nil
			k.log.Warn().Str("error", msg).Str("item", item).Msg("keep-awake inhibitor exited while live")
			k.setStatus(Status{State: StateFailed, Item: item, Reason: ReasonInhibitorLost, LastError: msg})
			continue
		case <-k.signal:
		}

		want, ok := k.take()
		if !ok {
			continue
		}

		switch {
		case !want.awake:
			if held != nil {
				k.release(held)
				held, lost = nil, nil
				k.log.Info().Msg("output off air, display may sleep")
			}
			k.setStatus(Status{State: StateOff})

		case held != nil:
			k.setStatus(Status{State: StateHolding, Item: want.item})

		case unsupported != "":
			k.setStatus(Status{State: StateFailed, Item: want.item, Reason: ReasonUnsupported, LastError: unsupported})

		default:
			k.setStatus(Status{State: StateAcquiring, Item: want.item})
			h, err := k.adapter.Acquire(ctx)
			if err != nil {
				reason := ReasonAcquireFailed
				if apperrors.IsCode(err, apperrors.CodeKeepAwakeUnsupported) {
					reason = ReasonUnsupported
					unsupported = err.Error()
				}
				k.log.Warn().Err(err).Str("reason", string(reason)).Msg("cannot keep display awake")
				k.setStatus(Status{State: StateFailed, Item: want.item, Reason: reason, LastError: err.Error()})
				continue
			}
			held, lost = h, h.Done()
			k.log.Info().Str("item", want.item).Msg("keeping display awake")
			k.setStatus(Status{State: StateHolding, Item: want.item})
		}
	}
}

// take returns the latest screen if it changed since the last call.
func (k *Keeper) take() (screen, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.changed {
		return screen{}, false
	}
	k.changed = false
	return k.screen, true
}

// release stops h, killing it if it outlives the release timeout.
func (k *Keeper) release(h Handle) {
	ctx, cancel := context.WithTimeout(context.Background(), k.timeout)
	defer cancel()
	if err := h.Release(ctx); err != nil {
		k.log.Warn().Err(err).Msg("keep-awake inhibitor release failed")
	}
}

// setStatus replaces the status. Since only moves when the state changes.
func (k *Keeper) setStatus(next Status) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if next.State == k.status.State {
		next.Since = k.status.Since
	} else {
		next.Since = k.now()
	}
	k.status = next
}

func exitMessage(err error) string {
	if err != nil {
		return err.Error()
	}
	return "inhibitor exited unexpectedly"
}
