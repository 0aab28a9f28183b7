package library

import (
	"context"
	"database/sql"
	"time"

	apperrors "github.com/stagehand/remote/internal/errors"
	"github.com/stagehand/remote/internal/protocol"
)

// Themes returns every theme, default first.
func (s *Store) Themes(ctx context.Context) ([]protocol.Theme, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, is_default FROM themes ORDER BY is_default DESC, name")
	if err != nil {
		return nil, apperrors.QueryFailed("themes", err)
	}
	defer rows.Close()

	themes := []protocol.Theme{}
	for rows.Next() {
		var th protocol.Theme
		if err := rows.Scan(&th.ID, &th.Name, &th.IsDefault); err != nil {
			return nil, apperrors.QueryFailed("themes", err)
		}
		themes = append(themes, th)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.QueryFailed("themes", err)
	}
	return themes, nil
}

// Schedule returns the running order.
func (s *Store) Schedule(ctx context.Context) ([]protocol.ScheduleItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	const query = `
		SELECT id, position, type, COALESCE(song_id, 0), book, chapter, verse, version, title, path
		FROM schedule_items
		ORDER BY position, id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.QueryFailed("schedule", err)
	}
	defer rows.Close()

	items := []protocol.ScheduleItem{}
	for rows.Next() {
		var it protocol.ScheduleItem
		err := rows.Scan(&it.ID, &it.Position, &it.Type, &it.SongID,
			&it.Book, &it.Chapter, &it.Verse, &it.Version, &it.Title, &it.Path)
		if err != nil {
			return nil, apperrors.QueryFailed("schedule", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.QueryFailed("schedule", err)
	}
	return items, nil
}

// AddToSchedule appends item to the end of the running order. Songs must
// exist in the library; scripture needs a book and chapter; media needs a
// path.
func (s *Store) AddToSchedule(ctx context.Context, item protocol.Item) (protocol.ScheduleItem, error) {
	if err := validateScheduleItem(item); err != nil {
		return protocol.ScheduleItem{}, err
	}
	if item.Type == protocol.ItemSong {
		song, err := s.Song(ctx, item.SongID)
		if err != nil {
			return protocol.ScheduleItem{}, err
		}
		if item.Title == "" {
			item.Title = song.Title
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return protocol.ScheduleItem{}, apperrors.QueryFailed("schedule", err)
	}
	defer tx.Rollback()

	var position int
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(position) + 1, 0) FROM schedule_items").Scan(&position); err != nil {
		return protocol.ScheduleItem{}, apperrors.QueryFailed("schedule", err)
	}

	var songID sql.NullInt64
	if item.Type == protocol.ItemSong {
		songID = sql.NullInt64{Int64: item.SongID, Valid: true}
	}

	const insert = `
		INSERT INTO schedule_items
			(position, type, song_id, book, chapter, verse, version, title, path, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := tx.ExecContext(ctx, insert,
		position, string(item.Type), songID, item.Book, item.Chapter, item.Verse,
		item.Version, item.Title, item.Path, time.Now().Format(time.RFC3339Nano),
	)
	if err != nil {
		return protocol.ScheduleItem{}, apperrors.QueryFailed("schedule", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return protocol.ScheduleItem{}, apperrors.QueryFailed("schedule", err)
	}
	if err := tx.Commit(); err != nil {
		return protocol.ScheduleItem{}, apperrors.QueryFailed("schedule", err)
	}

	s.log.Info().Int64("schedule_id", id).Str("type", string(item.Type)).Int("position", position).Msg("added to schedule")

	// Slide position is a live-output detail, not part of the running order.
	item.SlideIndex = 0
	return protocol.ScheduleItem{ID: id, Position: position, Item: item}, nil
}

// ClearSchedule removes every schedule entry.
func (s *Store) ClearSchedule(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM schedule_items"); err != nil {
		return apperrors.QueryFailed("schedule", err)
	}
	return nil
}

func validateScheduleItem(item protocol.Item) error {
	switch item.Type {
	case protocol.ItemSong:
		if item.SongID <= 0 {
			return apperrors.InvalidItem("song items need a songId")
		}
	case protocol.ItemScripture:
		if item.Book == "" || item.Chapter <= 0 {
			return apperrors.InvalidItem("scripture items need a book and chapter")
		}
	case protocol.ItemImage, protocol.ItemVideo:
		if item.Path == "" {
			return apperrors.InvalidItem(string(item.Type) + " items need a path")
		}
	default:
		return apperrors.InvalidItem("cannot schedule item of type " + string(item.Type))
	}
	return nil
}
