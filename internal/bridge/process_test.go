package bridge

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/stagehand/remote/internal/errors"
	"github.com/stagehand/remote/internal/listener"
	"github.com/stagehand/remote/internal/protocol"
	"github.com/stagehand/remote/internal/protocol/hostmsg"
)

const childEnv = "STAGEHAND_TEST_LISTENER_CHILD"

// TestListenerChildHelper is the child side of the exec transport tests.
// It only runs when re-executed by them.
func TestListenerChildHelper(t *testing.T) {
	switch os.Getenv(childEnv) {
	case "1":
	case "stall":
		// Never read commands.
		time.Sleep(time.Minute)
		os.Exit(0)
	case "oversize":
		// One frame larger than the IPC limit, then hang.
		os.Stdout.Write(bytes.Repeat([]byte("x"), 5*1024*1024))
		time.Sleep(time.Minute)
		os.Exit(0)
	default:
		t.Skip("helper process")
	}
	err := RunChild(context.Background(), os.Stdin, os.Stdout, listener.Options{
		Addresses: func() []string { return []string{"192.0.2.10"} },
	})
	if err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}

func execSpawner() *recordingSpawner {
	return &recordingSpawner{
		inner: helperSpawner("1"),
		procs: make(chan Process, 4),
	}
}

func helperSpawner(mode string) ExecSpawner {
	return ExecSpawner{
		Path: os.Args[0],
		Args: []string{"-test.run=^TestListenerChildHelper$"},
		Env:  []string{childEnv + "=" + mode},
	}
}

// waitExited waits for the process's event stream to close.
func waitExited(t *testing.T, proc Process, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case _, ok := <-proc.Events():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("child did not exit")
		}
	}
}

func TestExecSpawnerLifecycle(t *testing.T) {
	spawner := execSpawner()
	b := New(spawner, &fakeHandler{}, Options{ShutdownTimeout: 3 * time.Second})
	defer b.Close()

	port := startBridge(t, b)
	if st := b.Status(); len(st.Addresses) != 1 || st.Addresses[0] != "192.0.2.10" {
		t.Errorf("status = %+v", st)
	}

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	resp.Body.Close()

	dialRemote(t, port)
	waitForStatus(t, b, func(st ServerStatus) bool { return len(st.Clients) == 1 })

	if err := await(t, b.StopRemoteServer()); err != nil {
		t.Fatalf("StopRemoteServer() error: %v", err)
	}
	if st := b.Status(); st.Running || len(st.Clients) != 0 {
		t.Errorf("status after stop = %+v", st)
	}

	proc := <-spawner.procs
	b.Close()
	select {
	case _, ok := <-proc.Events():
		if ok {
			t.Fatal("events should be closed after Close")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("child did not exit")
	}
	if err := proc.Wait(); err != nil {
		t.Errorf("child exit error = %v, want clean exit", err)
	}
}

func TestExecListenerCrashIsDetected(t *testing.T) {
	spawner := execSpawner()
	b := New(spawner, &fakeHandler{}, Options{})
	defer b.Close()

	startBridge(t, b)
	(<-spawner.procs).Kill()

	waitForStatus(t, b, func(st ServerStatus) bool { return !st.Running })
}

func TestForwardLogsKeepsChildLevels(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.InfoLevel)

	input := strings.Join([]string{
		`{"level":"warn","component":"listener","message":"send buffer full"}`,
		`{"level":"debug","message":"hidden"}`,
		`panic: something broke`,
	}, "\n")
	if err := forwardLogs(strings.NewReader(input), log); err != nil {
		t.Fatalf("forwardLogs() error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, "send buffer full") {
		t.Errorf("warn line not forwarded: %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line should be filtered: %s", out)
	}
	if !strings.Contains(out, "panic: something broke") || !strings.Contains(out, `"source":"stderr"`) {
		t.Errorf("raw line not forwarded: %s", out)
	}
}

func TestExecSendDoesNotBlockOnStalledChild(t *testing.T) {
	proc, err := helperSpawner("stall").Spawn()
	if err != nil {
		t.Fatalf("Spawn() error: %v", err)
	}
	defer func() {
		proc.Kill()
		waitExited(t, proc, 5*time.Second)
	}()

	// The pipe and the queue fill up; Send must then fail instead of waiting.
	deadline := time.Now().Add(5 * time.Second)
	for i := 0; ; i++ {
		if time.Now().After(deadline) {
			t.Fatalf("Send() still accepting after %d commands", i)
		}
		err := proc.Send(hostmsg.StateUpdate{State: protocol.RemoteAppState{IsLive: true}})
		if err == nil {
			continue
		}
		if !apperrors.IsCode(err, apperrors.CodeListenerIPCFailed) {
			t.Fatalf("Send() error = %v, want ipc failure", err)
		}
		break
	}
}

func TestExecSendAfterShutdownFails(t *testing.T) {
	proc, err := helperSpawner("1").Spawn()
	if err != nil {
		t.Fatalf("Spawn() error: %v", err)
	}
	if err := proc.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	if err := proc.Send(hostmsg.Stop{}); !apperrors.IsCode(err, apperrors.CodeListenerIPCFailed) {
		t.Errorf("Send() after Shutdown error = %v, want ipc failure", err)
	}
	waitExited(t, proc, 5*time.Second)
	if err := proc.Wait(); err != nil {
		t.Errorf("child exit error = %v, want clean exit", err)
	}
}

func TestOversizedEventFrameKillsChild(t *testing.T) {
	proc, err := helperSpawner("oversize").Spawn()
	if err != nil {
		t.Fatalf("Spawn() error: %v", err)
	}
	waitExited(t, proc, 10*time.Second)
	if proc.Wait() == nil {
		t.Error("Wait() should report the broken event stream")
	}
}
