// Package presenter owns what is on screen: the live item, its slide
// position, and the blank/logo/hide toggles. Together with the content
// library it is the command handler behind the remote bridge.
package presenter

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	apperrors "github.com/stagehand/remote/internal/errors"
	"github.com/stagehand/remote/internal/logging"
	"github.com/stagehand/remote/internal/protocol"
)

// StateSink receives every state change. The bridge implements it.
type StateSink interface {
	UpdateRemoteState(state protocol.RemoteAppState)
}

// Library is the content the presenter reads. *library.Store implements it.
type Library interface {
	ListSongs(ctx context.Context) ([]protocol.Song, error)
	SearchSongs(ctx context.Context, query string) ([]protocol.Song, error)
	Song(ctx context.Context, id int64) (protocol.Song, error)
	SongLyrics(ctx context.Context, songID int64) ([]protocol.LyricSection, error)
	Chapter(ctx context.Context, book string, chapter int, version string) (protocol.ScripturePassage, error)
	SearchScripture(ctx context.Context, query, version string) (protocol.ScripturePassage, error)
	Translations(ctx context.Context) ([]protocol.Translation, error)
	Themes(ctx context.Context) ([]protocol.Theme, error)
	Schedule(ctx context.Context) ([]protocol.ScheduleItem, error)
	AddToSchedule(ctx context.Context, item protocol.Item) (protocol.ScheduleItem, error)
}

// Presenter is safe for concurrent use.
type Presenter struct {
	lib Library
	log zerolog.Logger

	mu    sync.Mutex
	state protocol.RemoteAppState
	sink  StateSink
}

// New creates a presenter with nothing live.
func New(lib Library) *Presenter {
	return &Presenter{
		lib: lib,
		log: logging.Component("presenter"),
	}
}

// SetSink installs the state receiver and immediately hands it the current
// state.
func (p *Presenter) SetSink(sink StateSink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sink = sink
	p.publishLocked()
}

// State returns a copy of the current state.
func (p *Presenter) State() protocol.RemoteAppState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneState(p.state)
}

// GoLive puts item on screen. Songs show one slide per lyric section,
// scripture one slide per verse of the chapter, media a single slide.
func (p *Presenter) GoLive(ctx context.Context, item protocol.Item) error {
	current, err := p.resolve(ctx, item)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = protocol.RemoteAppState{
		IsLive:      true,
		CurrentItem: &current,
	}
	p.log.Info().
		Str("type", string(current.Type)).
		Str("title", current.Title).
		Int("slide", current.SlideIndex).
		Int("total", current.TotalSlides).
		Msg("went live")
	p.publishLocked()
	return nil
}

// GoBlank takes the output off screen. The current item is kept so a later
// navigate or go-live can pick up from there.
func (p *Presenter) GoBlank(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.IsLive = false
	p.log.Info().Msg("blanked output")
	p.publishLocked()
	return nil
}

// Navigate moves one slide forward or back, stopping at the first and last
// slide.
func (p *Presenter) Navigate(_ context.Context, dir protocol.Direction) error {
	if !dir.Valid() {
		return apperrors.InvalidMessage(fmt.Sprintf("invalid direction %q", dir))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.CurrentItem == nil {
		return apperrors.NothingLive()
	}

	item := *p.state.CurrentItem
	switch dir {
	case protocol.DirectionNext:
		item.SlideIndex = clamp(item.SlideIndex+1, item.TotalSlides)
	case protocol.DirectionPrev:
		item.SlideIndex = clamp(item.SlideIndex-1, item.TotalSlides)
	}
	p.state.CurrentItem = &item
	p.log.Debug().Str("direction", string(dir)).Int("slide", item.SlideIndex).Msg("navigated")
	p.publishLocked()
	return nil
}

// SetShowLogo toggles the logo overlay.
func (p *Presenter) SetShowLogo(show bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.ShowLogo = show
	p.publishLocked()
}

// SetHideLive hides the live output without dropping it.
func (p *Presenter) SetHideLive(hide bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.HideLive = hide
	p.publishLocked()
}

// resolve turns a remote's item reference into what will be on screen.
func (p *Presenter) resolve(ctx context.Context, item protocol.Item) (protocol.CurrentItem, error) {
	current := protocol.CurrentItem{Type: item.Type, Title: item.Title}

	switch item.Type {
	case protocol.ItemSong:
		if item.SongID <= 0 {
			return current, apperrors.InvalidItem("song items need a songId")
		}
		song, err := p.lib.Song(ctx, item.SongID)
		if err != nil {
			return current, err
		}
		lyrics, err := p.lib.SongLyrics(ctx, item.SongID)
		if err != nil {
			return current, err
		}
		if current.Title == "" {
			current.Title = song.Title
		}
		current.TotalSlides = max(len(lyrics), 1)
		current.SlideIndex = clamp(item.SlideIndex, current.TotalSlides)

	case protocol.ItemScripture:
		if item.Book == "" || item.Chapter <= 0 {
			return current, apperrors.InvalidItem("scripture items need a book and chapter")
		}
		passage, err := p.lib.Chapter(ctx, item.Book, item.Chapter, item.Version)
		if err != nil {
			return current, err
		}
		current.TotalSlides = len(passage.Verses)
		current.SlideIndex = clamp(item.SlideIndex, current.TotalSlides)
		if item.Verse > 0 {
			for i, v := range passage.Verses {
				if v.Number == item.Verse {
					current.SlideIndex = i
					break
				}
			}
		}
		if current.Title == "" {
			current.Title = scriptureTitle(passage, item.Verse)
		}

	case protocol.ItemImage, protocol.ItemVideo:
		if item.Path == "" {
			return current, apperrors.InvalidItem(string(item.Type) + " items need a path")
		}
		if current.Title == "" {
			current.Title = filepath.Base(item.Path)
		}
		current.TotalSlides = 1

	default:
		return current, apperrors.InvalidItem("cannot present item of type " + string(item.Type))
	}
	return current, nil
}

func (p *Presenter) publishLocked() {
	if p.sink == nil {
		return
	}
	p.sink.UpdateRemoteState(cloneState(p.state))
}

// scriptureTitle renders "John 3:16 (KJV)", or "John 3 (KJV)" for a whole
// chapter.
func scriptureTitle(passage protocol.ScripturePassage, verse int) string {
	if verse > 0 {
		return fmt.Sprintf("%s %d:%d (%s)", passage.Book, passage.Chapter, verse, passage.Version)
	}
	return fmt.Sprintf("%s %d (%s)", passage.Book, passage.Chapter, passage.Version)
}

func clamp(index, total int) int {
	if index >= total {
		index = total - 1
	}
	return max(index, 0)
}

func cloneState(s protocol.RemoteAppState) protocol.RemoteAppState {
	if s.CurrentItem != nil {
		item := *s.CurrentItem
		s.CurrentItem = &item
	}
	return s
}

// Sinks fans one state change out to several receivers in order.
type Sinks []StateSink

func (s Sinks) UpdateRemoteState(state protocol.RemoteAppState) {
	for _, sink := range s {
		sink.UpdateRemoteState(cloneState(state))
	}
}
