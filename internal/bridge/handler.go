package bridge

import (
	"context"

	apperrors "github.com/stagehand/remote/internal/errors"
	"github.com/stagehand/remote/internal/logging"
	"github.com/stagehand/remote/internal/protocol"
	"github.com/stagehand/remote/internal/protocol/hostmsg"
)

// CommandHandler is the application behind the remote: the presentation
// engine and its content library. Calls may block; the bridge runs each in
// its own goroutine. Live-state changes reach remotes through
// Bridge.UpdateRemoteState, not through these return values.
type CommandHandler interface {
	GoLive(ctx context.Context, item protocol.Item) error
	GoBlank(ctx context.Context) error
	Navigate(ctx context.Context, dir protocol.Direction) error
	AddToSchedule(ctx context.Context, item protocol.Item) error

	ListSongs(ctx context.Context) ([]protocol.Song, error)
	SearchSongs(ctx context.Context, query string) ([]protocol.Song, error)
	SongLyrics(ctx context.Context, songID int64) ([]protocol.LyricSection, error)
	Scripture(ctx context.Context, book string, chapter int, version string) (protocol.ScripturePassage, error)
	SearchScripture(ctx context.Context, query, version string) (protocol.ScripturePassage, error)
	Themes(ctx context.Context) ([]protocol.Theme, error)
	Schedule(ctx context.Context) ([]protocol.ScheduleItem, error)
	Translations(ctx context.Context) ([]protocol.Translation, error)
}

// relay runs fn off the loop. A non-nil result is sent to the listener; a
// failure is broadcast to remotes as a command error.
func (b *Bridge) relay(op string, fn func(ctx context.Context) (hostmsg.Command, error)) {
	go func() {
		cmd, err := fn(b.ctx)
		if err != nil {
			coded := apperrors.RelayFailed(op, err)
			b.log.Warn().Err(err).Str("op", op).Msg("command failed")
			cmd = hostmsg.CommandError{Error: coded.Message}
		}
		if cmd == nil {
			return
		}
		b.post(func() { b.send(cmd) })
	}()
}

// eventRouter handles listener events on the loop goroutine.
type eventRouter struct {
	b *Bridge
}

func (r eventRouter) HandleStarted(e hostmsg.Started) {
	b := r.b
	b.log.Info().
		Int(logging.FieldPort, e.Port).
		Strs(logging.FieldAddresses, e.Addresses).
		Msg("remote server started")

	b.setStatus(func(s *ServerStatus) {
		*s = ServerStatus{Running: true, Port: e.Port, Addresses: e.Addresses}
	})
	if b.lastState != nil {
		b.send(hostmsg.StateUpdate{State: *b.lastState})
	}

	if len(b.pendingStart) > 0 {
		b.pendingStart[0] <- nil
		b.pendingStart = b.pendingStart[1:]
	}
}

func (r eventRouter) HandleStopped(hostmsg.Stopped) {
	b := r.b
	b.log.Info().Msg("remote server stopped")
	b.setStatus(func(s *ServerStatus) { *s = ServerStatus{} })

	resolve(b.pendingStop, nil)
	b.pendingStop = nil
}

// HandleError reports a failed start to its caller. Status is left as it
// was, so a rejected double start keeps the server marked running.
func (r eventRouter) HandleError(e hostmsg.Error) {
	b := r.b
	var err error
	if e.Error == apperrors.AlreadyRunning().Message {
		err = apperrors.AlreadyRunning()
	} else {
		err = apperrors.New(apperrors.CodeServerBindFailed, e.Error)
	}
	b.log.Error().Err(err).Msg("listener reported an error")

	if len(b.pendingStart) > 0 {
		b.pendingStart[0] <- err
		b.pendingStart = b.pendingStart[1:]
	}
}

func (r eventRouter) HandleClientConnected(e hostmsg.ClientConnected) {
	b := r.b
	b.log.Info().
		Str(logging.FieldClientID, e.ClientID).
		Str(logging.FieldRemoteAddr, e.ClientInfo.RemoteAddress).
		Str(logging.FieldUserAgent, e.ClientInfo.UserAgent).
		Msg("remote connected")

	b.setStatus(func(s *ServerStatus) {
		for _, c := range s.Clients {
			if c.ID == e.ClientID {
				return
			}
		}
		info := e.ClientInfo
		info.ID = e.ClientID
		s.Clients = append(s.Clients, info)
	})
}

func (r eventRouter) HandleClientDisconnected(e hostmsg.ClientDisconnected) {
	b := r.b
	b.log.Info().Str(logging.FieldClientID, e.ClientID).Msg("remote disconnected")

	b.setStatus(func(s *ServerStatus) {
		kept := s.Clients[:0]
		for _, c := range s.Clients {
			if c.ID != e.ClientID {
				kept = append(kept, c)
			}
		}
		s.Clients = kept
	})
}

func (r eventRouter) HandleRequestSongs(hostmsg.RequestSongs) {
	r.b.relay("list songs", func(ctx context.Context) (hostmsg.Command, error) {
		songs, err := r.b.handler.ListSongs(ctx)
		if err != nil {
			return nil, err
		}
		return hostmsg.SongsList{Songs: songs}, nil
	})
}

func (r eventRouter) HandleRequestSongLyrics(e hostmsg.RequestSongLyrics) {
	r.b.relay("load lyrics", func(ctx context.Context) (hostmsg.Command, error) {
		lyrics, err := r.b.handler.SongLyrics(ctx, e.SongID)
		if err != nil {
			return nil, err
		}
		return hostmsg.SongLyrics{SongID: e.SongID, Lyrics: lyrics}, nil
	})
}

func (r eventRouter) HandleRequestScripture(e hostmsg.RequestScripture) {
	r.b.relay("load scripture", func(ctx context.Context) (hostmsg.Command, error) {
		passage, err := r.b.handler.Scripture(ctx, e.Book, e.Chapter, e.Version)
		if err != nil {
			return nil, err
		}
		return hostmsg.ScriptureChapter{Data: passage}, nil
	})
}

func (r eventRouter) HandleRequestThemes(hostmsg.RequestThemes) {
	r.b.relay("list themes", func(ctx context.Context) (hostmsg.Command, error) {
		themes, err := r.b.handler.Themes(ctx)
		if err != nil {
			return nil, err
		}
		return hostmsg.ThemesList{Themes: themes}, nil
	})
}

func (r eventRouter) HandleRequestSchedule(hostmsg.RequestSchedule) {
	r.b.relay("load schedule", r.b.scheduleList)
}

func (r eventRouter) HandleRequestTranslations(hostmsg.RequestTranslations) {
	r.b.relay("list translations", func(ctx context.Context) (hostmsg.Command, error) {
		translations, err := r.b.handler.Translations(ctx)
		if err != nil {
			return nil, err
		}
		return hostmsg.TranslationsList{Translations: translations}, nil
	})
}

func (r eventRouter) HandleGoLive(e hostmsg.GoLive) {
	r.b.relay("go live", func(ctx context.Context) (hostmsg.Command, error) {
		return nil, r.b.handler.GoLive(ctx, e.Item)
	})
}

func (r eventRouter) HandleGoBlank(hostmsg.GoBlank) {
	r.b.relay("blank", func(ctx context.Context) (hostmsg.Command, error) {
		return nil, r.b.handler.GoBlank(ctx)
	})
}

func (r eventRouter) HandleNavigate(e hostmsg.Navigate) {
	r.b.relay("navigate", func(ctx context.Context) (hostmsg.Command, error) {
		return nil, r.b.handler.Navigate(ctx, e.Direction)
	})
}

func (r eventRouter) HandleSearchSongs(e hostmsg.SearchSongs) {
	r.b.relay("song search", func(ctx context.Context) (hostmsg.Command, error) {
		songs, err := r.b.handler.SearchSongs(ctx, e.Query)
		if err != nil {
			return nil, err
		}
		return hostmsg.SongsList{Songs: songs}, nil
	})
}

func (r eventRouter) HandleSearchScripture(e hostmsg.SearchScripture) {
	r.b.relay("scripture search", func(ctx context.Context) (hostmsg.Command, error) {
		passage, err := r.b.handler.SearchScripture(ctx, e.Query, e.Version)
		if err != nil {
			return nil, err
		}
		return hostmsg.ScriptureChapter{Data: passage}, nil
	})
}

// HandleAddToSchedule adds the item and then broadcasts the new schedule.
func (r eventRouter) HandleAddToSchedule(e hostmsg.AddToSchedule) {
	r.b.relay("add to schedule", func(ctx context.Context) (hostmsg.Command, error) {
		if err := r.b.handler.AddToSchedule(ctx, e.Item); err != nil {
			return nil, err
		}
		return r.b.scheduleList(ctx)
	})
}

func (b *Bridge) scheduleList(ctx context.Context) (hostmsg.Command, error) {
	items, err := b.handler.Schedule(ctx)
	if err != nil {
		return nil, err
	}
	return hostmsg.ScheduleList{Items: items}, nil
}
