package listener

import (
	"fmt"

	"github.com/stagehand/remote/internal/logging"
	"github.com/stagehand/remote/internal/protocol"
	"github.com/stagehand/remote/internal/protocol/clientmsg"
	"github.com/stagehand/remote/internal/protocol/hostmsg"
)

// requestRouter turns one remote's requests into host events. It runs on the
// loop goroutine. Every request except ping maps to exactly one event.
type requestRouter struct {
	l        *Listener
	clientID string
}

func (r requestRouter) forward(e hostmsg.Event) {
	r.l.log.Debug().
		Str(logging.FieldClientID, r.clientID).
		Str(logging.FieldMessageType, e.MessageType()).
		Msg("forwarding remote command")
	r.l.emit(e)
}

// reject answers the sender with an error frame instead of forwarding.
func (r requestRouter) reject(format string, args ...any) {
	r.l.sendTo(r.clientID, clientmsg.Error{Message: fmt.Sprintf(format, args...)})
}

func (r requestRouter) HandleGetSongs(clientmsg.GetSongs) {
	r.forward(hostmsg.RequestSongs{})
}

func (r requestRouter) HandleGetSongLyrics(m clientmsg.GetSongLyrics) {
	r.forward(hostmsg.RequestSongLyrics{SongID: m.SongID})
}

func (r requestRouter) HandleGetScripture(m clientmsg.GetScripture) {
	r.forward(hostmsg.RequestScripture{Book: m.Book, Chapter: m.Chapter, Version: m.Version})
}

func (r requestRouter) HandleGetThemes(clientmsg.GetThemes) {
	r.forward(hostmsg.RequestThemes{})
}

func (r requestRouter) HandleGetSchedule(clientmsg.GetSchedule) {
	r.forward(hostmsg.RequestSchedule{})
}

func (r requestRouter) HandleGetTranslations(clientmsg.GetTranslations) {
	r.forward(hostmsg.RequestTranslations{})
}

func (r requestRouter) HandleGoLive(m clientmsg.GoLive) {
	if !m.Item.Type.Valid() {
		r.reject("Invalid item type: %s", m.Item.Type)
		return
	}
	r.forward(hostmsg.GoLive{Item: m.Item})
}

func (r requestRouter) HandleGoBlank(clientmsg.GoBlank) {
	r.forward(hostmsg.GoBlank{})
}

func (r requestRouter) HandleNavigate(m clientmsg.Navigate) {
	if !m.Direction.Valid() {
		r.reject("Invalid direction: %s", m.Direction)
		return
	}
	r.forward(hostmsg.Navigate{Direction: m.Direction})
}

func (r requestRouter) HandleSearchSongs(m clientmsg.SearchSongs) {
	r.forward(hostmsg.SearchSongs{Query: m.Query})
}

func (r requestRouter) HandleSearchScripture(m clientmsg.SearchScripture) {
	r.forward(hostmsg.SearchScripture{Query: m.Query, Version: m.Version})
}

func (r requestRouter) HandleAddToSchedule(m clientmsg.AddToSchedule) {
	if !m.Item.Type.Valid() {
		r.reject("Invalid item type: %s", m.Item.Type)
		return
	}
	r.forward(hostmsg.AddToSchedule{Item: m.Item})
}

// HandlePing answers locally with the cached state, or an idle state if the
// host has not sent one yet.
func (r requestRouter) HandlePing(clientmsg.Ping) {
	state := protocol.RemoteAppState{}
	if r.l.snapshot != nil {
		state = *r.l.snapshot
	}
	r.l.sendTo(r.clientID, clientmsg.State{State: state})
}
