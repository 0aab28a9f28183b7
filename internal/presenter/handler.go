package presenter

import (
	"context"

	"github.com/stagehand/remote/internal/protocol"
)

// The content queries pass straight through to the library.

func (p *Presenter) ListSongs(ctx context.Context) ([]protocol.Song, error) {
	return p.lib.ListSongs(ctx)
}

func (p *Presenter) SearchSongs(ctx context.Context, query string) ([]protocol.Song, error) {
	return p.lib.SearchSongs(ctx, query)
}

func (p *Presenter) SongLyrics(ctx context.Context, songID int64) ([]protocol.LyricSection, error) {
	return p.lib.SongLyrics(ctx, songID)
}

func (p *Presenter) Scripture(ctx context.Context, book string, chapter int, version string) (protocol.ScripturePassage, error) {
	return p.lib.Chapter(ctx, book, chapter, version)
}

func (p *Presenter) SearchScripture(ctx context.Context, query, version string) (protocol.ScripturePassage, error) {
	return p.lib.SearchScripture(ctx, query, version)
}

func (p *Presenter) Themes(ctx context.Context) ([]protocol.Theme, error) {
	return p.lib.Themes(ctx)
}

func (p *Presenter) Schedule(ctx context.Context) ([]protocol.ScheduleItem, error) {
	return p.lib.Schedule(ctx)
}

func (p *Presenter) Translations(ctx context.Context) ([]protocol.Translation, error) {
	return p.lib.Translations(ctx)
}

// AddToSchedule appends item to the running order. The bridge follows up
// with a fresh schedule for remotes.
func (p *Presenter) AddToSchedule(ctx context.Context, item protocol.Item) error {
	_, err := p.lib.AddToSchedule(ctx, item)
	return err
}
