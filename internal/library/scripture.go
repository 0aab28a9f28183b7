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

// searchLimit caps scripture search results.
const searchLimit = 50

// Translations returns the installed translations, default first.
func (s *Store) Translations(ctx context.Context) ([]protocol.Translation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	const query = `
		SELECT id, name, abbreviation
		FROM translations
		ORDER BY is_default DESC, abbreviation
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.QueryFailed("translations", err)
	}
	defer rows.Close()

	translations := []protocol.Translation{}
	for rows.Next() {
		var t protocol.Translation
		if err := rows.Scan(&t.ID, &t.Name, &t.Abbreviation); err != nil {
			return nil, apperrors.QueryFailed("translations", err)
		}
		translations = append(translations, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.QueryFailed("translations", err)
	}
	return translations, nil
}

// translation resolves version by id or abbreviation, ignoring case. An
// empty version selects the default translation. Callers hold s.mu.
func (s *Store) translation(ctx context.Context, version string) (protocol.Translation, error) {
	var (
		t   protocol.Translation
		row *sql.Row
	)
	version = strings.TrimSpace(version)
	if version == "" {
		row = s.db.QueryRowContext(ctx, `
			SELECT id, name, abbreviation FROM translations
			ORDER BY is_default DESC, abbreviation LIMIT 1`)
	} else {
		row = s.db.QueryRowContext(ctx, `
			SELECT id, name, abbreviation FROM translations
			WHERE id = ?1 COLLATE NOCASE OR abbreviation = ?1 COLLATE NOCASE`, version)
	}

	err := row.Scan(&t.ID, &t.Name, &t.Abbreviation)
	if errors.Is(err, sql.ErrNoRows) {
		return t, apperrors.NotFound(fmt.Sprintf("translation %q", version))
	}
	if err != nil {
		return t, apperrors.QueryFailed("translation", err)
	}
	return t, nil
}

// Chapter returns every verse of book chapter in the given translation.
func (s *Store) Chapter(ctx context.Context, book string, chapter int, version string) (protocol.ScripturePassage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.translation(ctx, version)
	if err != nil {
		return protocol.ScripturePassage{}, err
	}

	const query = `
		SELECT book, chapter, verse, text
		FROM verses
		WHERE translation_id = ? AND book = ? COLLATE NOCASE AND chapter = ?
		ORDER BY verse
	`
	verses, err := s.queryVerses(ctx, "chapter", query, t.ID, strings.TrimSpace(book), chapter)
	if err != nil {
		return protocol.ScripturePassage{}, err
	}
	if len(verses) == 0 {
		return protocol.ScripturePassage{}, apperrors.NotFound(fmt.Sprintf("%s %d (%s)", book, chapter, t.Abbreviation))
	}

	return protocol.ScripturePassage{
		Version: t.Abbreviation,
		Book:    verses[0].Book,
		Chapter: chapter,
		Verses:  verses,
	}, nil
}

// SearchScripture finds verses containing query in the given translation.
// An empty query returns no verses.
func (s *Store) SearchScripture(ctx context.Context, query, version string) (protocol.ScripturePassage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.translation(ctx, version)
	if err != nil {
		return protocol.ScripturePassage{}, err
	}

	passage := protocol.ScripturePassage{
		Version: t.Abbreviation,
		Query:   query,
		Verses:  []protocol.Verse{},
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return passage, nil
	}

	const q = `
		SELECT book, chapter, verse, text
		FROM verses
		WHERE translation_id = ? AND text LIKE '%' || ? || '%' ESCAPE '\'
		ORDER BY rowid
		LIMIT ?
	`
	passage.Verses, err = s.queryVerses(ctx, "scripture search", q, t.ID, escapeLike(query), searchLimit)
	if err != nil {
		return protocol.ScripturePassage{}, err
	}
	return passage, nil
}

// VerseCount returns the number of verses in a chapter, or 0 if the library
// does not have it.
func (s *Store) VerseCount(ctx context.Context, book string, chapter int, version string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.translation(ctx, version)
	if err != nil {
		return 0, err
	}
	var n int
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM verses WHERE translation_id = ? AND book = ? COLLATE NOCASE AND chapter = ?",
		t.ID, strings.TrimSpace(book), chapter,
	).Scan(&n)
	if err != nil {
		return 0, apperrors.QueryFailed("verse count", err)
	}
	return n, nil
}

func (s *Store) queryVerses(ctx context.Context, what, query string, args ...any) ([]protocol.Verse, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.QueryFailed(what, err)
	}
	defer rows.Close()

	verses := []protocol.Verse{}
	for rows.Next() {
		var v protocol.Verse
		if err := rows.Scan(&v.Book, &v.Chapter, &v.Number, &v.Text); err != nil {
			return nil, apperrors.QueryFailed(what, err)
		}
		verses = append(verses, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.QueryFailed(what, err)
	}
	return verses, nil
}
