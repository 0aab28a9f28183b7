package listener

import (
	"github.com/stagehand/remote/internal/logging"
	"github.com/stagehand/remote/internal/protocol"
	"github.com/stagehand/remote/internal/protocol/clientmsg"
	"github.com/stagehand/remote/internal/protocol/hostmsg"
)

// Broadcast serializes msg once and queues it on every open socket.
// Must run on the loop goroutine.
func (l *Listener) Broadcast(msg clientmsg.Outbound) {
	data, err := protocol.Encode(msg)
	if err != nil {
		l.log.Error().Err(err).Msg("failed to encode broadcast")
		return
	}
	sent := l.reg.Broadcast(data)
	l.log.Debug().
		Str(logging.FieldMessageType, msg.MessageType()).
		Int(logging.FieldClients, sent).
		Msg("broadcast")
}

// SendToClient queues msg for one remote. Unknown ids and closed sockets are
// ignored. Must run on the loop goroutine.
func (l *Listener) SendToClient(clientID string, msg clientmsg.Outbound) {
	l.sendTo(clientID, msg)
}

func (l *Listener) sendTo(clientID string, msg clientmsg.Outbound) {
	data, err := protocol.Encode(msg)
	if err != nil {
		l.log.Error().Err(err).Msg("failed to encode message")
		return
	}
	l.reg.SendTo(clientID, data)
}

// HandleStateUpdate replaces the cached state and broadcasts it.
func (l *Listener) HandleStateUpdate(cmd hostmsg.StateUpdate) {
	state := cmd.State
	if state.CurrentItem != nil {
		item := *state.CurrentItem
		state.CurrentItem = &item
	}
	l.snapshot = &state
	l.Broadcast(clientmsg.State{State: state})
}

func (l *Listener) HandleSongsList(cmd hostmsg.SongsList) {
	l.Broadcast(clientmsg.Songs{Songs: cmd.Songs})
}

func (l *Listener) HandleSongLyrics(cmd hostmsg.SongLyrics) {
	l.Broadcast(clientmsg.SongLyrics{SongID: cmd.SongID, Lyrics: cmd.Lyrics})
}

func (l *Listener) HandleScriptureChapter(cmd hostmsg.ScriptureChapter) {
	l.Broadcast(clientmsg.Scripture{Data: cmd.Data})
}

func (l *Listener) HandleThemesList(cmd hostmsg.ThemesList) {
	l.Broadcast(clientmsg.Themes{Themes: cmd.Themes})
}

func (l *Listener) HandleScheduleList(cmd hostmsg.ScheduleList) {
	l.Broadcast(clientmsg.Schedule{Items: cmd.Items})
}

func (l *Listener) HandleTranslationsList(cmd hostmsg.TranslationsList) {
	l.Broadcast(clientmsg.Translations{Translations: cmd.Translations})
}

// HandleCommandError tells every remote that a command failed on the host.
func (l *Listener) HandleCommandError(cmd hostmsg.CommandError) {
	l.Broadcast(clientmsg.Error{Message: cmd.Error})
}
