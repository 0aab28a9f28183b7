// Package protocol defines the two message vocabularies of the remote control bridge:
// the host⇄listener IPC messages and the listener⇄client WebSocket messages.
//
// Every message is a flat JSON object discriminated by its "type" field. Each variant
// is a Go struct; the type tag is added on encode and inspected on decode. Variants are
// immutable value objects: construct, encode, send.
package protocol

// ItemType identifies what kind of content an item or the live slot holds.
type ItemType string

const (
	ItemNone      ItemType = "none"
	ItemSong      ItemType = "song"
	ItemScripture ItemType = "scripture"
	ItemImage     ItemType = "image"
	ItemVideo     ItemType = "video"
)

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	switch t {
	case ItemNone, ItemSong, ItemScripture, ItemImage, ItemVideo:
		return true
	}
	return false
}

// Direction is the navigation direction sent by a remote.
type Direction string

const (
	DirectionNext Direction = "next"
	DirectionPrev Direction = "prev"
)

// Valid reports whether d is next or prev.
func (d Direction) Valid() bool {
	return d == DirectionNext || d == DirectionPrev
}

// ClientInfo describes one connected remote. It is created when the WebSocket
// upgrade completes and never changes afterwards.
type ClientInfo struct {
	ID                 string `json:"id"`
	RemoteAddress      string `json:"remoteAddress"`
	UserAgent          string `json:"userAgent"`
	ConnectedAtEpochMs int64  `json:"connectedAtEpochMs"`
}

// CurrentItem is the live item as remotes see it.
type CurrentItem struct {
	Type        ItemType `json:"type"`
	Title       string   `json:"title"`
	SlideIndex  int      `json:"slideIndex"`
	TotalSlides int      `json:"totalSlides"`
}

// RemoteAppState is the snapshot of host state pushed to remotes.
// CurrentItem is nil when nothing has been sent live.
type RemoteAppState struct {
	IsLive      bool         `json:"isLive"`
	HideLive    bool         `json:"hideLive"`
	ShowLogo    bool         `json:"showLogo"`
	CurrentItem *CurrentItem `json:"currentItem"`
}

// Item references a piece of content a remote wants to show or schedule.
// Which fields are meaningful depends on Type.
type Item struct {
	Type       ItemType `json:"type"`
	SongID     int64    `json:"songId,omitempty"`
	SlideIndex int      `json:"slideIndex,omitempty"`
	Book       string   `json:"book,omitempty"`
	Chapter    int      `json:"chapter,omitempty"`
	Verse      int      `json:"verse,omitempty"`
	Version    string   `json:"version,omitempty"`
	Title      string   `json:"title,omitempty"`
	Path       string   `json:"path,omitempty"`
}

// Song is a library song summary.
type Song struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author,omitempty"`
}

// LyricSection is one slide worth of lyrics (verse, chorus, bridge...).
type LyricSection struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Verse is a single scripture verse.
type Verse struct {
	Book    string `json:"book"`
	Chapter int    `json:"chapter"`
	Number  int    `json:"number"`
	Text    string `json:"text"`
}

// ScripturePassage is either a whole chapter or a set of search hits.
type ScripturePassage struct {
	Version string  `json:"version"`
	Book    string  `json:"book,omitempty"`
	Chapter int     `json:"chapter,omitempty"`
	Query   string  `json:"query,omitempty"`
	Verses  []Verse `json:"verses"`
}

// Translation is a scripture translation available on the host.
type Translation struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}

// Theme is a presentation theme.
type Theme struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault,omitempty"`
}

// ScheduleItem is one entry of the running order.
type ScheduleItem struct {
	ID       int64 `json:"id"`
	Position int   `json:"position"`
	Item
}
