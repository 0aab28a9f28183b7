package keepawake

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "github.com/stagehand/remote/internal/errors"
	"github.com/stagehand/remote/internal/protocol"
)

type fakeAdapter struct {
	mu       sync.Mutex
	acquired int
	handles  []*fakeHandle
	// fail, when set, is returned instead of a handle.
	fail error
}

func (a *fakeAdapter) Acquire(context.Context) (Handle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acquired++
	if a.fail != nil {
		return nil, a.fail
	}
	h := newFakeHandle()
	a.handles = append(a.handles, h)
	return h, nil
}

func (a *fakeAdapter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.acquired
}

func (a *fakeAdapter) setFail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fail = err
}

func (a *fakeAdapter) handle(i int) *fakeHandle {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.handles[i]
}

type fakeHandle struct {
	once     sync.Once
	done     chan struct{}
	err      error
	released chan struct{}
	// block makes Release wait for its context.
	block bool
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{done: make(chan struct{}), released: make(chan struct{}, 1)}
}

func (h *fakeHandle) Done() <-chan struct{} { return h.done }
func (h *fakeHandle) Err() error            { return h.err }

func (h *fakeHandle) Release(ctx context.Context) error {
	h.released <- struct{}{}
	if h.block {
		<-ctx.Done()
		return ctx.Err()
	}
	h.exit(nil)
	return nil
}

func (h *fakeHandle) exit(err error) {
	h.once.Do(func() {
		h.err = err
		close(h.done)
	})
}

func live(title string) protocol.RemoteAppState {
	return protocol.RemoteAppState{
		IsLive:      true,
		CurrentItem: &protocol.CurrentItem{Type: protocol.ItemSong, Title: title, TotalSlides: 3},
	}
}

// runKeeper starts k.Run and stops it with the test. The returned channel is
// closed once Run has returned.
func runKeeper(t *testing.T, k *Keeper) (context.CancelFunc, <-chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		k.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel, done
}

func waitStatus(t *testing.T, k *Keeper, desc string, cond func(Status) bool) Status {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if st := k.Status(); cond(st) {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("status never became %s, last %+v", desc, k.Status())
	return Status{}
}

func inState(state State) func(Status) bool {
	return func(st Status) bool { return st.State == state }
}

func expectReleased(t *testing.T, h *fakeHandle) {
	t.Helper()
	select {
	case <-h.released:
	case <-time.After(time.Second):
		t.Fatal("inhibitor was not released")
	}
}

func TestKeeperHoldsWhileOutputIsVisible(t *testing.T) {
	adapter := &fakeAdapter{}
	k := New(adapter, Options{})
	runKeeper(t, k)

	k.UpdateRemoteState(live("Amazing Grace"))
	st := waitStatus(t, k, "holding", inState(StateHolding))
	if st.Item != "Amazing Grace" {
		t.Errorf("item = %q", st.Item)
	}

	// Hidden output lets the display sleep.
	hidden := live("Amazing Grace")
	hidden.HideLive = true
	k.UpdateRemoteState(hidden)
	waitStatus(t, k, "off", inState(StateOff))
	expectReleased(t, adapter.handle(0))

	k.UpdateRemoteState(live("Amazing Grace"))
	waitStatus(t, k, "holding", inState(StateHolding))

	k.UpdateRemoteState(protocol.RemoteAppState{CurrentItem: live("Amazing Grace").CurrentItem})
	st = waitStatus(t, k, "off", inState(StateOff))
	if st.Item != "" {
		t.Errorf("blank screen should not name an item, got %q", st.Item)
	}
	expectReleased(t, adapter.handle(1))

	if n := adapter.count(); n != 2 {
		t.Errorf("acquired %d times, want 2", n)
	}
}

func TestKeeperFollowsItemWithoutReacquiring(t *testing.T) {
	adapter := &fakeAdapter{}
	k := New(adapter, Options{})
	runKeeper(t, k)

	k.UpdateRemoteState(live("Amazing Grace"))
	first := waitStatus(t, k, "holding", inState(StateHolding))

	k.UpdateRemoteState(live("Psalms 23 (KJV)"))
	st := waitStatus(t, k, "holding the new item", func(st Status) bool { return st.Item == "Psalms 23 (KJV)" })
	if st.State != StateHolding || !st.Since.Equal(first.Since) {
		t.Errorf("status = %+v, want holding since %v", st, first.Since)
	}
	if n := adapter.count(); n != 1 {
		t.Errorf("acquired %d times, want 1", n)
	}
}

func TestKeeperRetriesFailedAcquireOnNextChange(t *testing.T) {
	adapter := &fakeAdapter{fail: errors.New("helper crashed")}
	k := New(adapter, Options{})
	runKeeper(t, k)

	k.UpdateRemoteState(live("Amazing Grace"))
	st := waitStatus(t, k, "failed", inState(StateFailed))
	if st.Reason != ReasonAcquireFailed || st.LastError != "helper crashed" || st.Item != "Amazing Grace" {
		t.Errorf("status = %+v", st)
	}

	adapter.setFail(nil)
	k.UpdateRemoteState(live("Be Thou My Vision"))
	waitStatus(t, k, "holding", inState(StateHolding))
}

func TestKeeperDoesNotRetryUnsupportedHost(t *testing.T) {
	adapter := &fakeAdapter{fail: apperrors.New(apperrors.CodeKeepAwakeUnsupported, "keep-awake is unsupported on this host")}
	k := New(adapter, Options{})
	runKeeper(t, k)

	k.UpdateRemoteState(live("Amazing Grace"))
	waitStatus(t, k, "unsupported", func(st Status) bool { return st.Reason == ReasonUnsupported })

	k.UpdateRemoteState(protocol.RemoteAppState{})
	waitStatus(t, k, "off", inState(StateOff))

	k.UpdateRemoteState(live("Doxology"))
	st := waitStatus(t, k, "unsupported for the new item", func(st Status) bool {
		return st.Reason == ReasonUnsupported && st.Item == "Doxology"
	})
	if st.State != StateFailed {
		t.Errorf("state = %s, want failed", st.State)
	}
	if n := adapter.count(); n != 1 {
		t.Errorf("acquired %d times, want 1", n)
	}
}

func TestKeeperReportsLostInhibitor(t *testing.T) {
	adapter := &fakeAdapter{}
	k := New(adapter, Options{})
	runKeeper(t, k)

	k.UpdateRemoteState(live("Amazing Grace"))
	waitStatus(t, k, "holding", inState(StateHolding))

	adapter.handle(0).exit(errors.New("signal: killed"))
	st := waitStatus(t, k, "failed", inState(StateFailed))
	if st.Reason != ReasonInhibitorLost || st.LastError != "signal: killed" || st.Item != "Amazing Grace" {
		t.Errorf("status = %+v", st)
	}

	// The next slide change takes a fresh inhibitor.
	k.UpdateRemoteState(live("Amazing Grace"))
	waitStatus(t, k, "holding", inState(StateHolding))
	if n := adapter.count(); n != 2 {
		t.Errorf("acquired %d times, want 2", n)
	}
}

func TestKeeperReleasesOnShutdown(t *testing.T) {
	adapter := &fakeAdapter{}
	k := New(adapter, Options{})
	cancel, done := runKeeper(t, k)

	k.UpdateRemoteState(live("Amazing Grace"))
	waitStatus(t, k, "holding", inState(StateHolding))

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	expectReleased(t, adapter.handle(0))
	if st := k.Status(); st.State != StateOff {
		t.Errorf("state after shutdown = %s, want off", st.State)
	}
}

func TestKeeperShutdownBoundsStuckRelease(t *testing.T) {
	h := newFakeHandle()
	h.block = true
	adapter := &stuckAdapter{h: h}
	k := New(adapter, Options{ReleaseTimeout: 50 * time.Millisecond})
	cancel, done := runKeeper(t, k)

	k.UpdateRemoteState(live("Amazing Grace"))
	waitStatus(t, k, "holding", inState(StateHolding))

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run waited on a stuck release")
	}
}

type stuckAdapter struct{ h *fakeHandle }

func (a *stuckAdapter) Acquire(context.Context) (Handle, error) { return a.h, nil }

func TestKeeperUpdateNeverBlocks(t *testing.T) {
	k := New(&fakeAdapter{}, Options{})

	// Nobody runs the keeper; updates must still return.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			k.UpdateRemoteState(protocol.RemoteAppState{IsLive: i%2 == 0})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("UpdateRemoteState blocked")
	}
	if st := k.Status(); st.State != StateOff {
		t.Errorf("state without Run = %s, want off", st.State)
	}
}

func TestScreenOf(t *testing.T) {
	tests := []struct {
		name  string
		state protocol.RemoteAppState
		want  screen
	}{
		{"nothing", protocol.RemoteAppState{}, screen{}},
		{"live", live("Doxology"), screen{awake: true, item: "Doxology"}},
		{"live without item", protocol.RemoteAppState{IsLive: true}, screen{awake: true}},
		{"hidden", protocol.RemoteAppState{IsLive: true, HideLive: true, CurrentItem: live("Doxology").CurrentItem}, screen{}},
		{"logo over live", protocol.RemoteAppState{IsLive: true, ShowLogo: true, CurrentItem: live("Doxology").CurrentItem}, screen{awake: true, item: "Doxology"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := screenOf(tt.state); got != tt.want {
				t.Errorf("screenOf() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
