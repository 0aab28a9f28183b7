package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/stagehand/remote/internal/errors"
	"github.com/stagehand/remote/internal/protocol"
)

// ListSongs returns every song ordered by title.
func (s *Store) ListSongs(ctx context.Context) ([]protocol.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	const query = `
		SELECT id, title, author
		FROM songs
		ORDER BY title COLLATE NOCASE, id
	`
	return s.querySongs(ctx, "songs", query)
}

// SearchSongs matches query against titles, authors and lyrics, case
// insensitively. An empty query lists every song.
func (s *Store) SearchSongs(ctx context.Context, query string) ([]protocol.Song, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.ListSongs(ctx)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	const q = `
		SELECT DISTINCT s.id, s.title, s.author
		FROM songs s
		LEFT JOIN lyric_sections l ON l.song_id = s.id
		WHERE s.title LIKE '%' || ?1 || '%' ESCAPE '\'
		   OR s.author LIKE '%' || ?1 || '%' ESCAPE '\'
		   OR l.text LIKE '%' || ?1 || '%' ESCAPE '\'
		ORDER BY s.title COLLATE NOCASE, s.id
	`
	return s.querySongs(ctx, "song search", q, escapeLike(query))
}

func (s *Store) querySongs(ctx context.Context, what, query string, args ...any) ([]protocol.Song, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.QueryFailed(what, err)
	}
	defer rows.Close()

	songs := []protocol.Song{}
	for rows.Next() {
		var song protocol.Song
		if err := rows.Scan(&song.ID, &song.Title, &song.Author); err != nil {
			return nil, apperrors.QueryFailed(what, err)
		}
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.QueryFailed(what, err)
	}
	return songs, nil
}

// Song returns one song summary.
func (s *Store) Song(ctx context.Context, id int64) (protocol.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var song protocol.Song
	err := s.db.QueryRowContext(ctx, "SELECT id, title, author FROM songs WHERE id = ?", id).
		Scan(&song.ID, &song.Title, &song.Author)
	if errors.Is(err, sql.ErrNoRows) {
		return protocol.Song{}, apperrors.NotFound(fmt.Sprintf("song %d", id))
	}
	if err != nil {
		return protocol.Song{}, apperrors.QueryFailed("song", err)
	}
	return song, nil
}

// SongLyrics returns the lyric sections of a song in slide order.
func (s *Store) SongLyrics(ctx context.Context, songID int64) ([]protocol.LyricSection, error) {
	if _, err := s.Song(ctx, songID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	const query = `
		SELECT label, text
		FROM lyric_sections
		WHERE song_id = ?
		ORDER BY position
	`
	rows, err := s.db.QueryContext(ctx, query, songID)
	if err != nil {
		return nil, apperrors.QueryFailed("lyrics", err)
	}
	defer rows.Close()

	sections := []protocol.LyricSection{}
	for rows.Next() {
		var sec protocol.LyricSection
		if err := rows.Scan(&sec.Label, &sec.Text); err != nil {
			return nil, apperrors.QueryFailed("lyrics", err)
		}
		sections = append(sections, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.QueryFailed("lyrics", err)
	}
	return sections, nil
}

// AddSong stores a song with its lyric sections and returns its id.
func (s *Store) AddSong(ctx context.Context, title, author string, sections []protocol.LyricSection) (int64, error) {
	if strings.TrimSpace(title) == "" {
		return 0, apperrors.InvalidItem("song title is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperrors.QueryFailed("song", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "INSERT INTO songs (title, author) VALUES (?, ?)", title, author)
	if err != nil {
		return 0, apperrors.QueryFailed("song", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperrors.QueryFailed("song", err)
	}
	for i, sec := range sections {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO lyric_sections (song_id, position, label, text) VALUES (?, ?, ?, ?)",
			id, i, sec.Label, sec.Text,
		)
		if err != nil {
			return 0, apperrors.QueryFailed("lyrics", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, apperrors.QueryFailed("song", err)
	}

	s.log.Info().Int64("song_id", id).Str("title", title).Msg("song added")
	return id, nil
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
