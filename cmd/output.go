package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"

	"github.com/stagehand/remote/internal/ipc"
	"github.com/stagehand/remote/internal/keepawake"
	"github.com/stagehand/remote/internal/presenter"
	"github.com/stagehand/remote/internal/protocol"
)

const outputUsage = `Usage: stagehand output <command> [options]

Commands:
  status         Show what is on screen and whether the display is held awake
  logo on|off    Show or hide the logo overlay
  hide on|off    Hide the live output, or bring it back
  blank          Take the output off air

Options:
  --socket <path>   Control socket of the running host (default: ~/.stagehand/control.sock)
  --json            Output in JSON format
`

func runOutput(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprint(stdout, outputUsage)
		return 1
	}

	var (
		method = http.MethodPost
		path   string
		body   any
		rest   = args[1:]
	)
	switch args[0] {
	case "status":
		method, path = http.MethodGet, "/output"
	case "blank":
		path = "/output/blank"
	case "logo", "hide":
		if len(rest) < 1 {
			fmt.Fprintf(stderr, "Error: output %s needs on or off\n", args[0])
			return 1
		}
		enabled, err := parseOnOff(rest[0])
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		path, body, rest = "/output/"+args[0], presenter.ToggleRequest{Enabled: enabled}, rest[1:]
	case "--help", "-h", "help":
		fmt.Fprint(stdout, outputUsage)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown output command: %s\n", args[0])
		fmt.Fprint(stdout, outputUsage)
		return 1
	}

	fs := flag.NewFlagSet("output "+args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	socket := fs.String("socket", "", "Control socket path (default: ~/.stagehand/control.sock)")
	jsonOutput := fs.Bool("json", false, "Output in JSON format")
	if err := fs.Parse(rest); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	socketPath, err := controlSocketPath(*socket)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	var state protocol.RemoteAppState
	client := ipc.NewControlClient(socketPath, controlTimeout)
	if err := controlCall(client, method, path, body, &state); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if *jsonOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		enc.Encode(state)
		return 0
	}
	writeOutputState(stdout, state)
	if args[0] == "status" {
		var awake keepawake.Status
		if err := controlCall(client, http.MethodGet, "/keepawake", nil, &awake); err == nil {
			writeKeepAwake(stdout, awake)
		}
	}
	return 0
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

// writeOutputState renders the on-screen state for the operator.
func writeOutputState(w io.Writer, s protocol.RemoteAppState) {
	switch {
	case !s.IsLive:
		fmt.Fprintln(w, "Output: blank")
	case s.HideLive:
		fmt.Fprintln(w, "Output: live (hidden)")
	default:
		fmt.Fprintln(w, "Output: live")
	}
	if s.CurrentItem != nil {
		item := s.CurrentItem
		fmt.Fprintf(w, "  Item:  %s (%s), slide %d of %d\n", item.Title, item.Type, item.SlideIndex+1, item.TotalSlides)
	}
	if s.ShowLogo {
		fmt.Fprintln(w, "  Logo:  on")
	}
}

func writeKeepAwake(w io.Writer, s keepawake.Status) {
	if s.State == keepawake.StateFailed {
		fmt.Fprintf(w, "  Awake: failed (%s: %s)\n", s.Reason, s.LastError)
		return
	}
	fmt.Fprintf(w, "  Awake: %s\n", s.State)
}
