package main

import (
	"fmt"
	"io"
	"os"
)

// Version is set at build time via -ldflags.
// Example: go build -ldflags="-X main.Version=v0.1.0" ./cmd
var Version = "dev"

const usage = `stagehand - presentation host with phone remote control

Usage:
  stagehand <command> [options]

Commands:
  run              Run the host (library, presenter and remote bridge)
  remote status    Show remote listener status of the running host
  remote start     Start the remote listener
  remote stop      Stop the remote listener
  remote discover  Find stagehand hosts on the local network
  output status    Show what is on screen
  output logo      Show or hide the logo overlay
  output hide      Hide or restore the live output
  output blank     Take the output off air
  version          Print the version
Run 'stagehand <command> --help' for more information on a command.
`

func main() {
	os.Exit(run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		fmt.Fprint(stdout, usage)
		return 0
	}

	switch args[1] {
	case "run":
		return runHost(args[2:], stdout, stderr)
	case "listener":
		// Started by the host over pipes; not meant for humans.
		return runListener(args[2:], stdin, stdout, stderr)
	case "remote":
		return runRemote(args[2:], stdout, stderr)
	case "output":
		return runOutput(args[2:], stdout, stderr)
	case "--help", "-h", "help":
		fmt.Fprint(stdout, usage)
		return 0
	case "--version", "-v", "version":
		fmt.Fprintf(stdout, "stagehand %s\n", Version)
		return 0
	default:
		fmt.Fprintf(stdout, "Unknown command: %s\n", args[1])
		fmt.Fprint(stdout, usage)
		return 1
	}
}
