package bridge

import (
	"context"
	"io"

	"github.com/stagehand/remote/internal/ipc"
	"github.com/stagehand/remote/internal/listener"
	"github.com/stagehand/remote/internal/logging"
	"github.com/stagehand/remote/internal/protocol/hostmsg"
)

// RunChild is the body of the listener process. It reads commands from in,
// writes events to out, and returns when in reaches EOF or ctx is done.
// A running server is stopped, and reported stopped, before it returns.
func RunChild(ctx context.Context, in io.Reader, out io.Writer, opts listener.Options) error {
	log := logging.Component("listener")
	cmds := make(chan hostmsg.Command, eventBufferSize)

	go func() {
		if err := ipc.PumpCommands(ipc.NewReader(in), cmds, log); err != nil {
			log.Error().Err(err).Msg("command stream failed")
		}
		close(cmds)
	}()

	return listener.New(ipc.NewWriter(out), opts).Run(ctx, cmds)
}
