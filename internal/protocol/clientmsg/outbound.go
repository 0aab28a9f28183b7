package clientmsg

import (
	"github.com/stagehand/remote/internal/protocol"
)

// Outbound is a listener → remote message.
type Outbound interface {
	protocol.Message
	outbound()
}

// Connected is the first message a remote receives.
type Connected struct {
	ClientID string `json:"clientId"`
}

// State carries the current RemoteAppState.
type State struct {
	State protocol.RemoteAppState `json:"state"`
}

type Songs struct {
	Songs []protocol.Song `json:"songs"`
}

type SongLyrics struct {
	SongID int64                   `json:"songId"`
	Lyrics []protocol.LyricSection `json:"lyrics"`
}

type Scripture struct {
	Data protocol.ScripturePassage `json:"data"`
}

type Translations struct {
	Translations []protocol.Translation `json:"translations"`
}

type Schedule struct {
	Items []protocol.ScheduleItem `json:"items"`
}

type Themes struct {
	Themes []protocol.Theme `json:"themes"`
}

// Error tells a remote something went wrong. It never closes the connection.
type Error struct {
	Message string `json:"message"`
}

func (Connected) MessageType() string    { return TypeConnected }
func (State) MessageType() string        { return TypeState }
func (Songs) MessageType() string        { return TypeSongs }
func (SongLyrics) MessageType() string   { return TypeSongLyrics }
func (Scripture) MessageType() string    { return TypeScripture }
func (Translations) MessageType() string { return TypeTranslations }
func (Schedule) MessageType() string     { return TypeSchedule }
func (Themes) MessageType() string       { return TypeThemes }
func (Error) MessageType() string        { return TypeError }

func (Connected) outbound()    {}
func (State) outbound()        {}
func (Songs) outbound()        {}
func (SongLyrics) outbound()   {}
func (Scripture) outbound()    {}
func (Translations) outbound() {}
func (Schedule) outbound()     {}
func (Themes) outbound()       {}
func (Error) outbound()        {}

var outboundTable = map[string]func() Outbound{
	TypeConnected:    func() Outbound { return &Connected{} },
	TypeState:        func() Outbound { return &State{} },
	TypeSongs:        func() Outbound { return &Songs{} },
	TypeSongLyrics:   func() Outbound { return &SongLyrics{} },
	TypeScripture:    func() Outbound { return &Scripture{} },
	TypeTranslations: func() Outbound { return &Translations{} },
	TypeSchedule:     func() Outbound { return &Schedule{} },
	TypeThemes:       func() Outbound { return &Themes{} },
	TypeError:        func() Outbound { return &Error{} },
}

// DecodeOutbound parses a listener → remote frame. Go remotes and tests use it.
func DecodeOutbound(data []byte) (Outbound, error) {
	return protocol.Decode(data, outboundTable)
}
