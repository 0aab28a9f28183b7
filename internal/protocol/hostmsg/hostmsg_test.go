package hostmsg

import (
	"testing"

	"github.com/stagehand/remote/internal/protocol"
)

// recordingHandler records the name of the last handler method called.
type recordingHandler struct {
	last string
}

func (r *recordingHandler) HandleStart(Start)                       { r.last = TypeStart }
func (r *recordingHandler) HandleStop(Stop)                         { r.last = TypeStop }
func (r *recordingHandler) HandleStateUpdate(StateUpdate)           { r.last = TypeStateUpdate }
func (r *recordingHandler) HandleSongsList(SongsList)               { r.last = TypeSongsList }
func (r *recordingHandler) HandleSongLyrics(SongLyrics)             { r.last = TypeSongLyrics }
func (r *recordingHandler) HandleScriptureChapter(ScriptureChapter) { r.last = TypeScriptureChapter }
func (r *recordingHandler) HandleThemesList(ThemesList)             { r.last = TypeThemesList }
func (r *recordingHandler) HandleScheduleList(ScheduleList)         { r.last = TypeScheduleList }
func (r *recordingHandler) HandleTranslationsList(TranslationsList) { r.last = TypeTranslationsList }
func (r *recordingHandler) HandleCommandError(CommandError)         { r.last = TypeCommandError }

func (r *recordingHandler) HandleStarted(Started)                 { r.last = TypeStarted }
func (r *recordingHandler) HandleStopped(Stopped)                 { r.last = TypeStopped }
func (r *recordingHandler) HandleError(Error)                     { r.last = TypeError }
func (r *recordingHandler) HandleClientConnected(ClientConnected) { r.last = TypeClientConnected }
func (r *recordingHandler) HandleClientDisconnected(ClientDisconnected) {
	r.last = TypeClientDisconnected
}
func (r *recordingHandler) HandleRequestSongs(RequestSongs)           { r.last = TypeRequestSongs }
func (r *recordingHandler) HandleRequestSongLyrics(RequestSongLyrics) { r.last = TypeRequestSongLyrics }
func (r *recordingHandler) HandleRequestScripture(RequestScripture)   { r.last = TypeRequestScripture }
func (r *recordingHandler) HandleRequestThemes(RequestThemes)         { r.last = TypeRequestThemes }
func (r *recordingHandler) HandleRequestSchedule(RequestSchedule)     { r.last = TypeRequestSchedule }
func (r *recordingHandler) HandleRequestTranslations(RequestTranslations) {
	r.last = TypeRequestTranslations
}
func (r *recordingHandler) HandleGoLive(GoLive)                   { r.last = TypeGoLive }
func (r *recordingHandler) HandleGoBlank(GoBlank)                 { r.last = TypeGoBlank }
func (r *recordingHandler) HandleNavigate(Navigate)               { r.last = TypeNavigate }
func (r *recordingHandler) HandleSearchSongs(SearchSongs)         { r.last = TypeSearchSongs }
func (r *recordingHandler) HandleSearchScripture(SearchScripture) { r.last = TypeSearchScripture }
func (r *recordingHandler) HandleAddToSchedule(AddToSchedule)     { r.last = TypeAddToSchedule }

// TestEveryCommandTypeDecodesAndDispatches checks that each registered tag decodes to
// a variant reporting the same tag and reaches the handler method of that name.
func TestEveryCommandTypeDecodesAndDispatches(t *testing.T) {
	for typ := range commandTable {
		t.Run(typ, func(t *testing.T) {
			cmd, err := DecodeCommand([]byte(`{"type":"` + typ + `"}`))
			if err != nil {
				t.Fatalf("DecodeCommand() error: %v", err)
			}
			if cmd.MessageType() != typ {
				t.Errorf("MessageType() = %q, want %q", cmd.MessageType(), typ)
			}
			h := &recordingHandler{}
			DispatchCommand(cmd, h)
			if h.last != typ {
				t.Errorf("dispatched to %q, want %q", h.last, typ)
			}
		})
	}
}

func TestEveryEventTypeDecodesAndDispatches(t *testing.T) {
	for typ := range eventTable {
		t.Run(typ, func(t *testing.T) {
			evt, err := DecodeEvent([]byte(`{"type":"` + typ + `"}`))
			if err != nil {
				t.Fatalf("DecodeEvent() error: %v", err)
			}
			h := &recordingHandler{}
			DispatchEvent(evt, h)
			if h.last != typ {
				t.Errorf("dispatched to %q, want %q", h.last, typ)
			}
		})
	}
}

func TestStartedWireFormat(t *testing.T) {
	data, err := protocol.Encode(Started{Port: 3456, Addresses: []string{"192.168.1.20"}})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	want := `{"type":"started","port":3456,"addresses":["192.168.1.20"]}`
	if string(data) != want {
		t.Errorf("Encode() = %s, want %s", data, want)
	}
}

func TestGoLiveDecodesItem(t *testing.T) {
	evt, err := DecodeEvent([]byte(`{"type":"go-live","item":{"type":"song","songId":42,"slideIndex":1}}`))
	if err != nil {
		t.Fatalf("DecodeEvent() error: %v", err)
	}
	goLive, ok := evt.(*GoLive)
	if !ok {
		t.Fatalf("DecodeEvent() = %T, want *GoLive", evt)
	}
	if goLive.Item.Type != protocol.ItemSong || goLive.Item.SongID != 42 || goLive.Item.SlideIndex != 1 {
		t.Errorf("unexpected item: %+v", goLive.Item)
	}
}

func TestStateUpdateRoundTripKeepsCurrentItem(t *testing.T) {
	in := StateUpdate{State: protocol.RemoteAppState{
		IsLive: true,
		CurrentItem: &protocol.CurrentItem{
			Type: protocol.ItemScripture, Title: "John 3", SlideIndex: 2, TotalSlides: 36,
		},
	}}
	data, err := protocol.Encode(in)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	cmd, err := DecodeCommand(data)
	if err != nil {
		t.Fatalf("DecodeCommand() error: %v", err)
	}
	got := cmd.(*StateUpdate)
	if got.State.CurrentItem == nil || *got.State.CurrentItem != *in.State.CurrentItem {
		t.Errorf("CurrentItem = %+v, want %+v", got.State.CurrentItem, in.State.CurrentItem)
	}
}
