package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	apperrors "github.com/stagehand/remote/internal/errors"
	"github.com/stagehand/remote/internal/listener"
	"github.com/stagehand/remote/internal/protocol"
	"github.com/stagehand/remote/internal/protocol/clientmsg"
)

// fakeHandler is a tiny presenter: go-live and navigate publish state
// through the bridge the way a real presenter would.
type fakeHandler struct {
	mu       sync.Mutex
	bridge   *Bridge
	state    protocol.RemoteAppState
	schedule []protocol.ScheduleItem
	songsErr error
}

func (h *fakeHandler) publish() {
	h.bridge.UpdateRemoteState(h.state)
}

func (h *fakeHandler) GoLive(_ context.Context, item protocol.Item) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = protocol.RemoteAppState{
		IsLive: true,
		CurrentItem: &protocol.CurrentItem{
			Type: item.Type, Title: fmt.Sprintf("Song %d", item.SongID), SlideIndex: item.SlideIndex, TotalSlides: 3,
		},
	}
	h.publish()
	return nil
}

func (h *fakeHandler) GoBlank(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state.IsLive = false
	h.publish()
	return nil
}

func (h *fakeHandler) Navigate(_ context.Context, dir protocol.Direction) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state.CurrentItem == nil {
		return apperrors.NothingLive()
	}
	item := *h.state.CurrentItem
	if dir == protocol.DirectionNext && item.SlideIndex < item.TotalSlides-1 {
		item.SlideIndex++
	}
	if dir == protocol.DirectionPrev && item.SlideIndex > 0 {
		item.SlideIndex--
	}
	h.state.CurrentItem = &item
	h.publish()
	return nil
}

func (h *fakeHandler) AddToSchedule(_ context.Context, item protocol.Item) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.schedule = append(h.schedule, protocol.ScheduleItem{ID: int64(len(h.schedule) + 1), Position: len(h.schedule), Item: item})
	return nil
}

func (h *fakeHandler) ListSongs(context.Context) ([]protocol.Song, error) {
	if h.songsErr != nil {
		return nil, h.songsErr
	}
	return []protocol.Song{{ID: 1, Title: "Amazing Grace", Author: "John Newton"}}, nil
}

func (h *fakeHandler) SearchSongs(_ context.Context, query string) ([]protocol.Song, error) {
	return []protocol.Song{{ID: 2, Title: "Match for " + query}}, nil
}

func (h *fakeHandler) SongLyrics(_ context.Context, id int64) ([]protocol.LyricSection, error) {
	return []protocol.LyricSection{{Label: "Verse 1", Text: "line"}}, nil
}

func (h *fakeHandler) Scripture(_ context.Context, book string, chapter int, version string) (protocol.ScripturePassage, error) {
	return protocol.ScripturePassage{Version: version, Book: book, Chapter: chapter}, nil
}

func (h *fakeHandler) SearchScripture(_ context.Context, query, version string) (protocol.ScripturePassage, error) {
	return protocol.ScripturePassage{Version: version, Query: query}, nil
}

func (h *fakeHandler) Themes(context.Context) ([]protocol.Theme, error) {
	return []protocol.Theme{{ID: 1, Name: "Default", IsDefault: true}}, nil
}

func (h *fakeHandler) Schedule(context.Context) ([]protocol.ScheduleItem, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]protocol.ScheduleItem(nil), h.schedule...), nil
}

func (h *fakeHandler) Translations(context.Context) ([]protocol.Translation, error) {
	return []protocol.Translation{{ID: "kjv", Name: "King James Version", Abbreviation: "KJV"}}, nil
}

// recordingSpawner hands every spawned process to the test.
type recordingSpawner struct {
	inner Spawner
	procs chan Process
}

func (s *recordingSpawner) Spawn() (Process, error) {
	p, err := s.inner.Spawn()
	if err == nil {
		s.procs <- p
	}
	return p, err
}

func newTestBridge(t *testing.T) (*Bridge, *fakeHandler, *recordingSpawner) {
	t.Helper()
	spawner := &recordingSpawner{
		inner: InProcSpawner{Options: listener.Options{
			Addresses: func() []string { return []string{"192.0.2.10"} },
		}},
		procs: make(chan Process, 4),
	}
	h := &fakeHandler{}
	b := New(spawner, h, Options{ShutdownTimeout: 2 * time.Second})
	h.bridge = b
	t.Cleanup(func() { b.Close() })
	return b, h, spawner
}

func await(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for result")
		return nil
	}
}

func startBridge(t *testing.T, b *Bridge) int {
	t.Helper()
	if err := await(t, b.StartRemoteServer(0)); err != nil {
		t.Fatalf("StartRemoteServer() error: %v", err)
	}
	st := b.Status()
	if !st.Running || st.Port == 0 {
		t.Fatalf("status after start = %+v", st)
	}
	return st.Port
}

func waitForStatus(t *testing.T, b *Bridge, cond func(ServerStatus) bool) ServerStatus {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if st := b.Status(); cond(st) {
			return st
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("status never matched, last %+v", b.Status())
	return ServerStatus{}
}

func dialRemote(t *testing.T, port int) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://127.0.0.1:%d/ws", port), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if _, ok := readOutbound(t, conn).(*clientmsg.Connected); !ok {
		t.Fatal("first message was not connected")
	}
	return conn
}

func readOutbound(t *testing.T, conn *websocket.Conn) clientmsg.Outbound {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	msg, err := clientmsg.DecodeOutbound(data)
	if err != nil {
		t.Fatalf("decode failed: %v (%s)", err, data)
	}
	return msg
}

func expectOutbound[T clientmsg.Outbound](t *testing.T, conn *websocket.Conn) T {
	t.Helper()
	msg := readOutbound(t, conn)
	v, ok := msg.(T)
	if !ok {
		var zero T
		t.Fatalf("expected %T, got %T (%+v)", zero, msg, msg)
	}
	return v
}

func send(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func TestStartAndStop(t *testing.T) {
	b, _, _ := newTestBridge(t)

	port := startBridge(t, b)
	st := b.Status()
	if len(st.Addresses) != 1 || st.Addresses[0] != "192.0.2.10" {
		t.Errorf("addresses = %v", st.Addresses)
	}

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	resp.Body.Close()

	if err := await(t, b.StopRemoteServer()); err != nil {
		t.Fatalf("StopRemoteServer() error: %v", err)
	}
	if st := b.Status(); st.Running || st.Port != 0 || len(st.Clients) != 0 {
		t.Errorf("status after stop = %+v", st)
	}

	// Stopping again is harmless.
	if err := await(t, b.StopRemoteServer()); err != nil {
		t.Fatalf("second StopRemoteServer() error: %v", err)
	}
}

func TestStopWithoutListener(t *testing.T) {
	b, _, spawner := newTestBridge(t)
	if err := await(t, b.StopRemoteServer()); err != nil {
		t.Fatalf("StopRemoteServer() error: %v", err)
	}
	if len(spawner.procs) != 0 {
		t.Error("stop should not spawn a listener")
	}
}

func TestDoubleStartKeepsServerRunning(t *testing.T) {
	b, _, spawner := newTestBridge(t)
	port := startBridge(t, b)

	err := await(t, b.StartRemoteServer(port))
	if !apperrors.IsCode(err, apperrors.CodeServerAlreadyRunning) {
		t.Fatalf("second start error = %v, want already running", err)
	}
	if apperrors.GetMessage(err) != "Server already running" {
		t.Errorf("message = %q", apperrors.GetMessage(err))
	}
	if st := b.Status(); !st.Running || st.Port != port {
		t.Errorf("status after rejected start = %+v", st)
	}
	if len(spawner.procs) != 1 {
		t.Errorf("spawned %d listeners, want 1", len(spawner.procs))
	}
}

func TestBackToBackStartsBindOnce(t *testing.T) {
	b, _, spawner := newTestBridge(t)

	first := b.StartRemoteServer(0)
	second := b.StartRemoteServer(0)

	if err := await(t, second); !apperrors.IsCode(err, apperrors.CodeServerAlreadyRunning) {
		t.Fatalf("second start error = %v, want already running", err)
	}
	if err := await(t, first); err != nil {
		t.Fatalf("first start error = %v", err)
	}
	if st := b.Status(); !st.Running || st.Port == 0 {
		t.Errorf("status = %+v", st)
	}
	if len(spawner.procs) != 1 {
		t.Errorf("spawned %d listeners, want 1", len(spawner.procs))
	}
}

func TestStartRightAfterStop(t *testing.T) {
	b, _, _ := newTestBridge(t)
	startBridge(t, b)

	stop := b.StopRemoteServer()
	start := b.StartRemoteServer(0)
	if err := await(t, stop); err != nil {
		t.Fatalf("StopRemoteServer() error: %v", err)
	}
	if err := await(t, start); err != nil {
		t.Fatalf("StartRemoteServer() after stop error: %v", err)
	}
	if st := b.Status(); !st.Running {
		t.Errorf("status = %+v, want running", st)
	}
}

func TestBindFailureLeavesStatusStopped(t *testing.T) {
	taken, err := net.Listen("tcp", "0.0.0.0:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer taken.Close()

	b, _, _ := newTestBridge(t)
	err = await(t, b.StartRemoteServer(taken.Addr().(*net.TCPAddr).Port))
	if !apperrors.IsCode(err, apperrors.CodeServerBindFailed) {
		t.Fatalf("start error = %v, want bind failure", err)
	}
	if b.Status().Running {
		t.Error("status should stay not-running after a bind failure")
	}
}

func TestSpawnFailureSurfaces(t *testing.T) {
	b := New(ExecSpawner{Path: "/nonexistent/stagehand"}, &fakeHandler{}, Options{})
	defer b.Close()

	err := await(t, b.StartRemoteServer(0))
	if !apperrors.IsCode(err, apperrors.CodeListenerSpawnFailed) {
		t.Fatalf("start error = %v, want spawn failure", err)
	}
	if b.Status().Running {
		t.Error("status should be not-running")
	}
}

// TestGoLiveReachesRemotes drives a remote go-live through the handler and
// back out as a state broadcast.
func TestGoLiveReachesRemotes(t *testing.T) {
	b, _, _ := newTestBridge(t)
	port := startBridge(t, b)
	conn := dialRemote(t, port)

	send(t, conn, `{"type":"go-live","item":{"type":"song","songId":42,"slideIndex":0}}`)

	got := expectOutbound[*clientmsg.State](t, conn)
	if !got.State.IsLive || got.State.CurrentItem == nil {
		t.Fatalf("state = %+v", got.State)
	}
	if got.State.CurrentItem.Title != "Song 42" || got.State.CurrentItem.SlideIndex != 0 {
		t.Errorf("current item = %+v", got.State.CurrentItem)
	}
}

// TestNavigateFromOneRemoteUpdatesAll checks that a command from one remote
// produces one state broadcast seen by every remote.
func TestNavigateFromOneRemoteUpdatesAll(t *testing.T) {
	b, h, _ := newTestBridge(t)
	port := startBridge(t, b)

	h.GoLive(context.Background(), protocol.Item{Type: protocol.ItemSong, SongID: 7})

	first := dialRemote(t, port)
	expectOutbound[*clientmsg.State](t, first)
	second := dialRemote(t, port)
	expectOutbound[*clientmsg.State](t, second)

	send(t, first, `{"type":"navigate","direction":"next"}`)

	for i, conn := range []*websocket.Conn{first, second} {
		got := expectOutbound[*clientmsg.State](t, conn)
		if got.State.CurrentItem == nil || got.State.CurrentItem.SlideIndex != 1 {
			t.Errorf("remote %d state = %+v", i, got.State)
		}
	}
}

func TestFetchResultsAreBroadcast(t *testing.T) {
	b, _, _ := newTestBridge(t)
	port := startBridge(t, b)
	conn := dialRemote(t, port)
	other := dialRemote(t, port)

	tests := []struct {
		frame string
		want  string
	}{
		{`{"type":"get-songs"}`, clientmsg.TypeSongs},
		{`{"type":"search-songs","query":"grace"}`, clientmsg.TypeSongs},
		{`{"type":"get-song-lyrics","songId":1}`, clientmsg.TypeSongLyrics},
		{`{"type":"get-scripture","book":"John","chapter":3,"version":"KJV"}`, clientmsg.TypeScripture},
		{`{"type":"search-scripture","query":"love","version":"KJV"}`, clientmsg.TypeScripture},
		{`{"type":"get-themes"}`, clientmsg.TypeThemes},
		{`{"type":"get-schedule"}`, clientmsg.TypeSchedule},
		{`{"type":"get-translations"}`, clientmsg.TypeTranslations},
	}
	for _, tt := range tests {
		send(t, conn, tt.frame)
		for _, c := range []*websocket.Conn{conn, other} {
			if got := readOutbound(t, c); got.MessageType() != tt.want {
				t.Errorf("%s answered with %s, want %s", tt.frame, got.MessageType(), tt.want)
			}
		}
	}
}

func TestAddToScheduleBroadcastsNewSchedule(t *testing.T) {
	b, _, _ := newTestBridge(t)
	port := startBridge(t, b)
	conn := dialRemote(t, port)

	send(t, conn, `{"type":"add-to-schedule","item":{"type":"scripture","book":"Psalms","chapter":23}}`)
	got := expectOutbound[*clientmsg.Schedule](t, conn)
	if len(got.Items) != 1 || got.Items[0].Book != "Psalms" {
		t.Errorf("schedule = %+v", got.Items)
	}
}

func TestHandlerFailureBroadcastsError(t *testing.T) {
	b, h, _ := newTestBridge(t)
	h.songsErr = errors.New("database is locked")
	port := startBridge(t, b)
	conn := dialRemote(t, port)

	send(t, conn, `{"type":"get-songs"}`)
	got := expectOutbound[*clientmsg.Error](t, conn)
	if got.Message != "list songs failed: database is locked" {
		t.Errorf("message = %q", got.Message)
	}

	send(t, conn, `{"type":"navigate","direction":"next"}`)
	got = expectOutbound[*clientmsg.Error](t, conn)
	if !strings.Contains(got.Message, "nothing is live") {
		t.Errorf("message = %q", got.Message)
	}
}

func TestRosterTracksRemotes(t *testing.T) {
	b, _, _ := newTestBridge(t)

	updates := make(chan ServerStatus, 32)
	b.SetStatusListener(func(st ServerStatus) { updates <- st })

	port := startBridge(t, b)
	conn := dialRemote(t, port)

	st := waitForStatus(t, b, func(st ServerStatus) bool { return len(st.Clients) == 1 })
	if st.Clients[0].RemoteAddress != "127.0.0.1" || st.Clients[0].ID == "" {
		t.Errorf("client = %+v", st.Clients[0])
	}

	conn.Close()
	waitForStatus(t, b, func(st ServerStatus) bool { return len(st.Clients) == 0 })

	if len(updates) == 0 {
		t.Error("status listener was never called")
	}
}

func TestStopClearsRoster(t *testing.T) {
	b, _, _ := newTestBridge(t)
	port := startBridge(t, b)
	dialRemote(t, port)
	waitForStatus(t, b, func(st ServerStatus) bool { return len(st.Clients) == 1 })

	if err := await(t, b.StopRemoteServer()); err != nil {
		t.Fatalf("StopRemoteServer() error: %v", err)
	}
	if st := b.Status(); len(st.Clients) != 0 {
		t.Errorf("clients after stop = %+v", st.Clients)
	}
}

func TestCrashMarksNotRunningWithoutRespawn(t *testing.T) {
	b, _, spawner := newTestBridge(t)
	startBridge(t, b)
	proc := <-spawner.procs

	proc.Kill()
	waitForStatus(t, b, func(st ServerStatus) bool { return !st.Running })

	time.Sleep(100 * time.Millisecond)
	if len(spawner.procs) != 0 {
		t.Fatal("bridge respawned the listener on its own")
	}

	// An operator restart spawns a fresh listener.
	startBridge(t, b)
	if len(spawner.procs) != 1 {
		t.Errorf("restart spawned %d listeners, want 1", len(spawner.procs))
	}
}

func TestStateReplayedToNewListener(t *testing.T) {
	b, h, spawner := newTestBridge(t)
	h.GoLive(context.Background(), protocol.Item{Type: protocol.ItemSong, SongID: 5, SlideIndex: 2})

	port := startBridge(t, b)
	conn := dialRemote(t, port)
	if got := expectOutbound[*clientmsg.State](t, conn); got.State.CurrentItem == nil || got.State.CurrentItem.Title != "Song 5" {
		t.Fatalf("first listener state = %+v", got.State)
	}

	(<-spawner.procs).Kill()
	waitForStatus(t, b, func(st ServerStatus) bool { return !st.Running })

	port = startBridge(t, b)
	conn = dialRemote(t, port)
	if got := expectOutbound[*clientmsg.State](t, conn); got.State.CurrentItem == nil || got.State.CurrentItem.SlideIndex != 2 {
		t.Fatalf("replayed state = %+v", got.State)
	}
}

func TestCloseStopsListener(t *testing.T) {
	b, _, _ := newTestBridge(t)
	port := startBridge(t, b)
	conn := dialRemote(t, port)

	if err := b.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("remote socket should be closed")
	}
	if b.Status().Running {
		t.Error("status should be not-running after Close")
	}
	if err := await(t, b.StartRemoteServer(0)); !apperrors.IsCode(err, apperrors.CodeServerNotRunning) {
		t.Errorf("start after Close error = %v", err)
	}
	if err := await(t, b.StopRemoteServer()); err != nil {
		t.Errorf("stop after Close error = %v", err)
	}
	// Close is idempotent.
	b.Close()
}

func TestControlHandler(t *testing.T) {
	b, _, _ := newTestBridge(t)
	srv := httptest.NewServer(ControlHandler(b, 0))
	defer srv.Close()

	post := func(path, body string) (*http.Response, map[string]any) {
		t.Helper()
		resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		defer resp.Body.Close()
		var out map[string]any
		json.NewDecoder(resp.Body).Decode(&out)
		return resp, out
	}

	resp, body := post("/remote/start", `{}`)
	if resp.StatusCode != http.StatusOK || body["running"] != true {
		t.Fatalf("start: status %d body %v", resp.StatusCode, body)
	}
	port := int(body["port"].(float64))

	resp, body = post("/remote/start", fmt.Sprintf(`{"port":%d}`, port))
	if resp.StatusCode != http.StatusConflict || body["code"] != apperrors.CodeServerAlreadyRunning {
		t.Errorf("double start: status %d body %v", resp.StatusCode, body)
	}

	resp, _ = post("/remote/start", `{"port":70000}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad port: status %d", resp.StatusCode)
	}

	getResp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	var st ServerStatus
	json.NewDecoder(getResp.Body).Decode(&st)
	getResp.Body.Close()
	if !st.Running || st.Port != port {
		t.Errorf("status = %+v", st)
	}

	resp, body = post("/remote/stop", "")
	if resp.StatusCode != http.StatusOK || body["running"] != false {
		t.Errorf("stop: status %d body %v", resp.StatusCode, body)
	}

	getResp, err = http.Get(srv.URL + "/remote/start")
	if err != nil {
		t.Fatalf("GET /remote/start: %v", err)
	}
	getResp.Body.Close()
	if getResp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /remote/start status = %d", getResp.StatusCode)
	}
}
