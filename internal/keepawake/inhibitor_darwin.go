//go:build darwin

package keepawake

import (
	"os"
	"strconv"
)

// NewDefaultAdapter keeps the display and system awake with caffeinate,
// which exits by itself when the host process does.
func NewDefaultAdapter() Adapter {
	return &processAdapter{
		name: "caffeinate",
		args: []string{"-d", "-i", "-w", strconv.Itoa(os.Getpid())},
	}
}
