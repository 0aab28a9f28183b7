package hostmsg

import (
	"github.com/stagehand/remote/internal/protocol"
)

// Event is a listener → host message.
type Event interface {
	protocol.Message
	dispatchEvent(h EventHandler)
}

// EventHandler receives decoded listener → host messages.
type EventHandler interface {
	HandleStarted(Started)
	HandleStopped(Stopped)
	HandleError(Error)
	HandleClientConnected(ClientConnected)
	HandleClientDisconnected(ClientDisconnected)
	HandleRequestSongs(RequestSongs)
	HandleRequestSongLyrics(RequestSongLyrics)
	HandleRequestScripture(RequestScripture)
	HandleRequestThemes(RequestThemes)
	HandleRequestSchedule(RequestSchedule)
	HandleRequestTranslations(RequestTranslations)
	HandleGoLive(GoLive)
	HandleGoBlank(GoBlank)
	HandleNavigate(Navigate)
	HandleSearchSongs(SearchSongs)
	HandleSearchScripture(SearchScripture)
	HandleAddToSchedule(AddToSchedule)
}

// DispatchEvent routes e to the matching method of h.
func DispatchEvent(e Event, h EventHandler) { e.dispatchEvent(h) }

// Started reports a successful bind.
type Started struct {
	Port      int      `json:"port"`
	Addresses []string `json:"addresses"`
}

// Stopped reports that the server is closed and the registry is empty.
type Stopped struct{}

// Error reports a start or stop failure.
type Error struct {
	Error string `json:"error"`
}

// ClientConnected reports a new remote.
type ClientConnected struct {
	ClientID   string              `json:"clientId"`
	ClientInfo protocol.ClientInfo `json:"clientInfo"`
}

// ClientDisconnected reports that a remote went away.
type ClientDisconnected struct {
	ClientID string `json:"clientId"`
}

type RequestSongs struct{}

type RequestSongLyrics struct {
	SongID int64 `json:"songId"`
}

type RequestScripture struct {
	Book    string `json:"book"`
	Chapter int    `json:"chapter"`
	Version string `json:"version"`
}

type RequestThemes struct{}

type RequestSchedule struct{}

type RequestTranslations struct{}

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

func (Started) MessageType() string             { return TypeStarted }
func (Stopped) MessageType() string             { return TypeStopped }
func (Error) MessageType() string               { return TypeError }
func (ClientConnected) MessageType() string     { return TypeClientConnected }
func (ClientDisconnected) MessageType() string  { return TypeClientDisconnected }
func (RequestSongs) MessageType() string        { return TypeRequestSongs }
func (RequestSongLyrics) MessageType() string   { return TypeRequestSongLyrics }
func (RequestScripture) MessageType() string    { return TypeRequestScripture }
func (RequestThemes) MessageType() string       { return TypeRequestThemes }
func (RequestSchedule) MessageType() string     { return TypeRequestSchedule }
func (RequestTranslations) MessageType() string { return TypeRequestTranslations }
func (GoLive) MessageType() string              { return TypeGoLive }
func (GoBlank) MessageType() string             { return TypeGoBlank }
func (Navigate) MessageType() string            { return TypeNavigate }
func (SearchSongs) MessageType() string         { return TypeSearchSongs }
func (SearchScripture) MessageType() string     { return TypeSearchScripture }
func (AddToSchedule) MessageType() string       { return TypeAddToSchedule }

func (m Started) dispatchEvent(h EventHandler)             { h.HandleStarted(m) }
func (m Stopped) dispatchEvent(h EventHandler)             { h.HandleStopped(m) }
func (m Error) dispatchEvent(h EventHandler)               { h.HandleError(m) }
func (m ClientConnected) dispatchEvent(h EventHandler)     { h.HandleClientConnected(m) }
func (m ClientDisconnected) dispatchEvent(h EventHandler)  { h.HandleClientDisconnected(m) }
func (m RequestSongs) dispatchEvent(h EventHandler)        { h.HandleRequestSongs(m) }
func (m RequestSongLyrics) dispatchEvent(h EventHandler)   { h.HandleRequestSongLyrics(m) }
func (m RequestScripture) dispatchEvent(h EventHandler)    { h.HandleRequestScripture(m) }
func (m RequestThemes) dispatchEvent(h EventHandler)       { h.HandleRequestThemes(m) }
func (m RequestSchedule) dispatchEvent(h EventHandler)     { h.HandleRequestSchedule(m) }
func (m RequestTranslations) dispatchEvent(h EventHandler) { h.HandleRequestTranslations(m) }
func (m GoLive) dispatchEvent(h EventHandler)              { h.HandleGoLive(m) }
func (m GoBlank) dispatchEvent(h EventHandler)             { h.HandleGoBlank(m) }
func (m Navigate) dispatchEvent(h EventHandler)            { h.HandleNavigate(m) }
func (m SearchSongs) dispatchEvent(h EventHandler)         { h.HandleSearchSongs(m) }
func (m SearchScripture) dispatchEvent(h EventHandler)     { h.HandleSearchScripture(m) }
func (m AddToSchedule) dispatchEvent(h EventHandler)       { h.HandleAddToSchedule(m) }

var eventTable = map[string]func() Event{
	TypeStarted:             func() Event { return &Started{} },
	TypeStopped:             func() Event { return &Stopped{} },
	TypeError:               func() Event { return &Error{} },
	TypeClientConnected:     func() Event { return &ClientConnected{} },
	TypeClientDisconnected:  func() Event { return &ClientDisconnected{} },
	TypeRequestSongs:        func() Event { return &RequestSongs{} },
	TypeRequestSongLyrics:   func() Event { return &RequestSongLyrics{} },
	TypeRequestScripture:    func() Event { return &RequestScripture{} },
	TypeRequestThemes:       func() Event { return &RequestThemes{} },
	TypeRequestSchedule:     func() Event { return &RequestSchedule{} },
	TypeRequestTranslations: func() Event { return &RequestTranslations{} },
	TypeGoLive:              func() Event { return &GoLive{} },
	TypeGoBlank:             func() Event { return &GoBlank{} },
	TypeNavigate:            func() Event { return &Navigate{} },
	TypeSearchSongs:         func() Event { return &SearchSongs{} },
	TypeSearchScripture:     func() Event { return &SearchScripture{} },
	TypeAddToSchedule:       func() Event { return &AddToSchedule{} },
}

// DecodeEvent parses one listener → host message.
func DecodeEvent(data []byte) (Event, error) {
	return protocol.Decode(data, eventTable)
}
