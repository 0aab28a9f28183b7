package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stagehand/remote/internal/bridge"
	"github.com/stagehand/remote/internal/config"
	"github.com/stagehand/remote/internal/ipc"
	"github.com/stagehand/remote/internal/mdns"
)

const remoteUsage = `Usage: stagehand remote <command> [options]

Commands:
  status     Show whether the remote listener is running and who is connected
  start      Start the remote listener
  stop       Stop the remote listener
  discover   Browse the local network for stagehand hosts

Options:
  --socket <path>   Control socket of the running host (default: ~/.stagehand/control.sock)
  --json            Output in JSON format
`

// controlTimeout bounds a control request. Start waits for the listener to
// bind, so it gets more room than a status query.
const controlTimeout = 15 * time.Second

func runRemote(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprint(stdout, remoteUsage)
		return 1
	}

	switch args[0] {
	case "status":
		return runRemoteControl(args[1:], "status", stdout, stderr)
	case "start":
		return runRemoteControl(args[1:], "start", stdout, stderr)
	case "stop":
		return runRemoteControl(args[1:], "stop", stdout, stderr)
	case "discover":
		return runRemoteDiscover(args[1:], stdout, stderr)
	case "--help", "-h", "help":
		fmt.Fprint(stdout, remoteUsage)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown remote command: %s\n", args[0])
		fmt.Fprint(stdout, remoteUsage)
		return 1
	}
}

func runRemoteControl(args []string, action string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("remote "+action, flag.ContinueOnError)
	fs.SetOutput(stderr)
	socket := fs.String("socket", "", "Control socket path (default: ~/.stagehand/control.sock)")
	jsonOutput := fs.Bool("json", false, "Output in JSON format")
	port := 0
	if action == "start" {
		fs.IntVar(&port, "port", 0, "Port to listen on (default: the host's configured port)")
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	path, err := controlSocketPath(*socket)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	client := ipc.NewControlClient(path, controlTimeout)
	var status *bridge.ServerStatus
	switch action {
	case "status":
		status, err = controlRequest(client, http.MethodGet, "/status", nil)
	case "start":
		status, err = controlRequest(client, http.MethodPost, "/remote/start", bridge.StartRequest{Port: port})
	case "stop":
		status, err = controlRequest(client, http.MethodPost, "/remote/stop", nil)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if *jsonOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		enc.Encode(status)
		return 0
	}
	writeRemoteStatus(stdout, status)
	return 0
}

// controlRequest performs one control-socket call and decodes the status it
// returns.
func controlRequest(client *http.Client, method, path string, body any) (*bridge.ServerStatus, error) {
	var status bridge.ServerStatus
	if err := controlCall(client, method, path, body, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// controlCall sends body as JSON and decodes a 200 response into out. Error
// responses are turned into their message.
func controlCall(client *http.Client, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ipc.ControlBaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("host not reachable (is 'stagehand run' running?): %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp bridge.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
			return errors.New(errResp.Error)
		}
		return fmt.Errorf("control request failed: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// writeRemoteStatus renders human-readable listener status.
func writeRemoteStatus(w io.Writer, s *bridge.ServerStatus) {
	if !s.Running {
		fmt.Fprintln(w, "Remote listener: stopped")
		return
	}
	fmt.Fprintln(w, "Remote listener: running")
	fmt.Fprintf(w, "  URL:       %s\n", remoteURL(s.Addresses, s.Port))
	if len(s.Addresses) > 0 {
		fmt.Fprintf(w, "  Addresses: %s\n", strings.Join(s.Addresses, ", "))
	}
	fmt.Fprintf(w, "  Remotes:   %d\n", len(s.Clients))
	for _, c := range s.Clients {
		since := time.UnixMilli(c.ConnectedAtEpochMs).Format("15:04:05")
		fmt.Fprintf(w, "    - %s from %s since %s (%s)\n", shortID(c.ID), c.RemoteAddress, since, c.UserAgent)
	}
}

// controlSocketPath returns flagValue or the default control socket path.
func controlSocketPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return config.DefaultControlSocketPath()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runRemoteDiscover(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("remote discover", flag.ContinueOnError)
	fs.SetOutput(stderr)
	timeout := fs.Duration("timeout", 3*time.Second, "How long to browse")
	jsonOutput := fs.Bool("json", false, "Output in JSON format")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	hosts, err := mdns.Discover(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if *jsonOutput {
		type entry struct {
			Name    string `json:"name"`
			URL     string `json:"url"`
			Version string `json:"version,omitempty"`
		}
		out := make([]entry, 0, len(hosts))
		for _, h := range hosts {
			out = append(out, entry{Name: h.Name, URL: h.URL(), Version: h.Version})
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		enc.Encode(out)
		return 0
	}

	if len(hosts) == 0 {
		fmt.Fprintln(stdout, "No stagehand hosts found.")
		return 0
	}
	for _, h := range hosts {
		fmt.Fprintf(stdout, "%s\t%s\n", h.Name, h.URL())
	}
	return 0
}
