// Package hostmsg defines the IPC vocabulary spoken between the host process and the
// listener process.
//
// Commands flow host → listener; events flow listener → host. Each direction has a
// handler interface with one method per variant, so adding a variant does not compile
// until every receiver handles it.
package hostmsg

import (
	"github.com/stagehand/remote/internal/protocol"
)

// Type tags, host → listener.
const (
	TypeStart            = "start"
	TypeStop             = "stop"
	TypeStateUpdate      = "state-update"
	TypeSongsList        = "songs-list"
	TypeSongLyrics       = "song-lyrics"
	TypeScriptureChapter = "scripture-chapter"
	TypeThemesList       = "themes-list"
	TypeScheduleList     = "schedule-list"
	TypeTranslationsList = "translations-list"
	TypeCommandError     = "command-error"
)

// Type tags, listener → host.
const (
	TypeStarted             = "started"
	TypeStopped             = "stopped"
	TypeError               = "error"
	TypeClientConnected     = "client-connected"
	TypeClientDisconnected  = "client-disconnected"
	TypeRequestSongs        = "request-songs"
	TypeRequestSongLyrics   = "request-song-lyrics"
	TypeRequestScripture    = "request-scripture"
	TypeRequestThemes       = "request-themes"
	TypeRequestSchedule     = "request-schedule"
	TypeRequestTranslations = "request-translations"
	TypeGoLive              = "go-live"
	TypeGoBlank             = "go-blank"
	TypeNavigate            = "navigate"
	TypeSearchSongs         = "search-songs"
	TypeSearchScripture     = "search-scripture"
	TypeAddToSchedule       = "add-to-schedule"
)

// Command is a host → listener message.
type Command interface {
	protocol.Message
	dispatchCommand(h CommandHandler)
}

// CommandHandler receives decoded host → listener messages.
type CommandHandler interface {
	HandleStart(Start)
	HandleStop(Stop)
	HandleStateUpdate(StateUpdate)
	HandleSongsList(SongsList)
	HandleSongLyrics(SongLyrics)
	HandleScriptureChapter(ScriptureChapter)
	HandleThemesList(ThemesList)
	HandleScheduleList(ScheduleList)
	HandleTranslationsList(TranslationsList)
	HandleCommandError(CommandError)
}

// DispatchCommand routes c to the matching method of h.
func DispatchCommand(c Command, h CommandHandler) { c.dispatchCommand(h) }

// Start asks the listener to bind its HTTP server on 0.0.0.0:Port.
type Start struct {
	Port int `json:"port"`
}

// Stop asks the listener to close all sockets and its HTTP server.
type Stop struct{}

// StateUpdate replaces the listener's snapshot and is broadcast to all remotes.
type StateUpdate struct {
	State protocol.RemoteAppState `json:"state"`
}

// SongsList carries the song library or a song search result.
type SongsList struct {
	Songs []protocol.Song `json:"songs"`
}

// SongLyrics carries the lyrics of one song.
type SongLyrics struct {
	SongID int64                   `json:"songId"`
	Lyrics []protocol.LyricSection `json:"lyrics"`
}

// ScriptureChapter carries a chapter or scripture search hits.
type ScriptureChapter struct {
	Data protocol.ScripturePassage `json:"data"`
}

// ThemesList carries the available themes.
type ThemesList struct {
	Themes []protocol.Theme `json:"themes"`
}

// ScheduleList carries the current schedule.
type ScheduleList struct {
	Items []protocol.ScheduleItem `json:"items"`
}

// TranslationsList carries the available scripture translations.
type TranslationsList struct {
	Translations []protocol.Translation `json:"translations"`
}

// CommandError reports a failed relayed command; remotes see it as an error message.
type CommandError struct {
	Error string `json:"error"`
}

func (Start) MessageType() string            { return TypeStart }
func (Stop) MessageType() string             { return TypeStop }
func (StateUpdate) MessageType() string      { return TypeStateUpdate }
func (SongsList) MessageType() string        { return TypeSongsList }
func (SongLyrics) MessageType() string       { return TypeSongLyrics }
func (ScriptureChapter) MessageType() string { return TypeScriptureChapter }
func (ThemesList) MessageType() string       { return TypeThemesList }
func (ScheduleList) MessageType() string     { return TypeScheduleList }
func (TranslationsList) MessageType() string { return TypeTranslationsList }
func (CommandError) MessageType() string     { return TypeCommandError }

func (m Start) dispatchCommand(h CommandHandler)            { h.HandleStart(m) }
func (m Stop) dispatchCommand(h CommandHandler)             { h.HandleStop(m) }
func (m StateUpdate) dispatchCommand(h CommandHandler)      { h.HandleStateUpdate(m) }
func (m SongsList) dispatchCommand(h CommandHandler)        { h.HandleSongsList(m) }
func (m SongLyrics) dispatchCommand(h CommandHandler)       { h.HandleSongLyrics(m) }
func (m ScriptureChapter) dispatchCommand(h CommandHandler) { h.HandleScriptureChapter(m) }
func (m ThemesList) dispatchCommand(h CommandHandler)       { h.HandleThemesList(m) }
func (m ScheduleList) dispatchCommand(h CommandHandler)     { h.HandleScheduleList(m) }
func (m TranslationsList) dispatchCommand(h CommandHandler) { h.HandleTranslationsList(m) }
func (m CommandError) dispatchCommand(h CommandHandler)     { h.HandleCommandError(m) }

var commandTable = map[string]func() Command{
	TypeStart:            func() Command { return &Start{} },
	TypeStop:             func() Command { return &Stop{} },
	TypeStateUpdate:      func() Command { return &StateUpdate{} },
	TypeSongsList:        func() Command { return &SongsList{} },
	TypeSongLyrics:       func() Command { return &SongLyrics{} },
	TypeScriptureChapter: func() Command { return &ScriptureChapter{} },
	TypeThemesList:       func() Command { return &ThemesList{} },
	TypeScheduleList:     func() Command { return &ScheduleList{} },
	TypeTranslationsList: func() Command { return &TranslationsList{} },
	TypeCommandError:     func() Command { return &CommandError{} },
}

// DecodeCommand parses one host → listener message.
func DecodeCommand(data []byte) (Command, error) {
	return protocol.Decode(data, commandTable)
}
