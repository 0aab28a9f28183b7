// Package clientmsg defines the WebSocket vocabulary spoken between remotes (phones,
// tablets, the bundled control page) and the listener.
package clientmsg

import (
	"github.com/stagehand/remote/internal/protocol"
)

// Type tags, remote → listener.
const (
	TypeGetSongs        = "get-songs"
	TypeGetSongLyrics   = "get-song-lyrics"
	TypeGetScripture    = "get-scripture"
	TypeGetThemes       = "get-themes"
	TypeGetSchedule     = "get-schedule"
	TypeGetTranslations = "get-translations"
	TypeGoLive          = "go-live"
	TypeGoBlank         = "go-blank"
	TypeNavigate        = "navigate"
	TypeSearchSongs     = "search-songs"
	TypeSearchScripture = "search-scripture"
	TypeAddToSchedule   = "add-to-schedule"
	TypePing            = "ping"
)

// Type tags, listener → remote.
const (
	TypeConnected    = "connected"
	TypeState        = "state"
	TypeSongs        = "songs"
	TypeSongLyrics   = "song-lyrics"
	TypeScripture    = "scripture"
	TypeTranslations = "translations"
	TypeSchedule     = "schedule"
	TypeThemes       = "themes"
	TypeError        = "error"
)

// Request is a remote → listener message.
type Request interface {
	protocol.Message
	dispatchRequest(h RequestHandler)
}

// RequestHandler receives decoded remote → listener messages.
type RequestHandler interface {
	HandleGetSongs(GetSongs)
	HandleGetSongLyrics(GetSongLyrics)
	HandleGetScripture(GetScripture)
	HandleGetThemes(GetThemes)
	HandleGetSchedule(GetSchedule)
	HandleGetTranslations(GetTranslations)
	HandleGoLive(GoLive)
	HandleGoBlank(GoBlank)
	HandleNavigate(Navigate)
	HandleSearchSongs(SearchSongs)
	HandleSearchScripture(SearchScripture)
	HandleAddToSchedule(AddToSchedule)
	HandlePing(Ping)
}

// DispatchRequest routes r to the matching method of h.
func DispatchRequest(r Request, h RequestHandler) { r.dispatchRequest(h) }

type GetSongs struct{}

type GetSongLyrics struct {
	SongID int64 `json:"songId"`
}

type GetScripture struct {
	Book    string `json:"book"`
	Chapter int    `json:"chapter"`
	Version string `json:"version"`
}

type GetThemes struct{}

type GetSchedule struct{}

type GetTranslations struct{}

type GoLive struct {
	Item protocol.Item `json:"item"`
}

type GoBlank struct{}

type Navigate struct {
	Direction protocol.Direction `json:"direction"`
}

type SearchSongs struct {
	Query string `json:"query"`
}

type SearchScripture struct {
	Query   string `json:"query"`
	Version string `json:"version"`
}

type AddToSchedule struct {
	Item protocol.Item `json:"item"`
}

// Ping is a liveness check; the listener answers it with the cached state.
type Ping struct{}

func (GetSongs) MessageType() string        { return TypeGetSongs }
func (GetSongLyrics) MessageType() string   { return TypeGetSongLyrics }
func (GetScripture) MessageType() string    { return TypeGetScripture }
func (GetThemes) MessageType() string       { return TypeGetThemes }
func (GetSchedule) MessageType() string     { return TypeGetSchedule }
func (GetTranslations) MessageType() string { return TypeGetTranslations }
func (GoLive) MessageType() string          { return TypeGoLive }
func (GoBlank) MessageType() string         { return TypeGoBlank }
func (Navigate) MessageType() string        { return TypeNavigate }
func (SearchSongs) MessageType() string     { return TypeSearchSongs }
func (SearchScripture) MessageType() string { return TypeSearchScripture }
func (AddToSchedule) MessageType() string   { return TypeAddToSchedule }
func (Ping) MessageType() string            { return TypePing }

func (m GetSongs) dispatchRequest(h RequestHandler)        { h.HandleGetSongs(m) }
func (m GetSongLyrics) dispatchRequest(h RequestHandler)   { h.HandleGetSongLyrics(m) }
func (m GetScripture) dispatchRequest(h RequestHandler)    { h.HandleGetScripture(m) }
func (m GetThemes) dispatchRequest(h RequestHandler)       { h.HandleGetThemes(m) }
func (m GetSchedule) dispatchRequest(h RequestHandler)     { h.HandleGetSchedule(m) }
func (m GetTranslations) dispatchRequest(h RequestHandler) { h.HandleGetTranslations(m) }
func (m GoLive) dispatchRequest(h RequestHandler)          { h.HandleGoLive(m) }
func (m GoBlank) dispatchRequest(h RequestHandler)         { h.HandleGoBlank(m) }
func (m Navigate) dispatchRequest(h RequestHandler)        { h.HandleNavigate(m) }
func (m SearchSongs) dispatchRequest(h RequestHandler)     { h.HandleSearchSongs(m) }
func (m SearchScripture) dispatchRequest(h RequestHandler) { h.HandleSearchScripture(m) }
func (m AddToSchedule) dispatchRequest(h RequestHandler)   { h.HandleAddToSchedule(m) }
func (m Ping) dispatchRequest(h RequestHandler)            { h.HandlePing(m) }

var requestTable = map[string]func() Request{
	TypeGetSongs:        func() Request { return &GetSongs{} },
	TypeGetSongLyrics:   func() Request { return &GetSongLyrics{} },
	TypeGetScripture:    func() Request { return &GetScripture{} },
	TypeGetThemes:       func() Request { return &GetThemes{} },
	TypeGetSchedule:     func() Request { return &GetSchedule{} },
	TypeGetTranslations: func() Request { return &GetTranslations{} },
	TypeGoLive:          func() Request { return &GoLive{} },
	TypeGoBlank:         func() Request { return &GoBlank{} },
	TypeNavigate:        func() Request { return &Navigate{} },
	TypeSearchSongs:     func() Request { return &SearchSongs{} },
	TypeSearchScripture: func() Request { return &SearchScripture{} },
	TypeAddToSchedule:   func() Request { return &AddToSchedule{} },
	TypePing:            func() Request { return &Ping{} },
}

// DecodeRequest parses one remote → listener frame.
// A frame that is valid JSON but names an unknown type yields *protocol.UnknownTypeError.
func DecodeRequest(data []byte) (Request, error) {
	return protocol.Decode(data, requestTable)
}
