package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

type emptyMsg struct{}

func (emptyMsg) MessageType() string { return "empty" }

type portMsg struct {
	Port int `json:"port"`
}

func (portMsg) MessageType() string { return "start" }

func TestEncodeAddsTypeTag(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{name: "empty variant", msg: emptyMsg{}, want: `{"type":"empty"}`},
		{name: "variant with fields", msg: portMsg{Port: 3456}, want: `{"type":"start","port":3456}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.msg)
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Encode() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRemoteAppStateNullCurrentItem(t *testing.T) {
	data, err := json.Marshal(RemoteAppState{IsLive: true})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	want := `{"isLive":true,"hideLive":false,"showLogo":false,"currentItem":null}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestPeekType(t *testing.T) {
	typ, err := PeekType([]byte(`{"type":"ping","extra":1}`))
	if err != nil {
		t.Fatalf("PeekType() error: %v", err)
	}
	if typ != "ping" {
		t.Errorf("PeekType() = %q, want ping", typ)
	}

	if _, err := PeekType([]byte(`{"notype":true}`)); err == nil {
		t.Error("PeekType() expected error for missing type")
	}
	if _, err := PeekType([]byte(`not json {{{`)); err == nil {
		t.Error("PeekType() expected error for invalid JSON")
	}
}

func TestDecodeUnknownType(t *testing.T) {
	table := map[string]func() Message{
		"start": func() Message { return &portMsg{} },
	}

	_, err := Decode([]byte(`{"type":"launch-rockets"}`), table)
	var unknown *UnknownTypeError
	if !errors.As(err, &unknown) {
		t.Fatalf("Decode() error = %v, want UnknownTypeError", err)
	}
	if unknown.Type != "launch-rockets" {
		t.Errorf("UnknownTypeError.Type = %q", unknown.Type)
	}

	msg, err := Decode([]byte(`{"type":"start","port":8080}`), table)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if got := msg.(*portMsg).Port; got != 8080 {
		t.Errorf("Port = %d, want 8080", got)
	}
}

func TestItemTypeAndDirectionValid(t *testing.T) {
	for _, it := range []ItemType{ItemNone, ItemSong, ItemScripture, ItemImage, ItemVideo} {
		if !it.Valid() {
			t.Errorf("%q should be valid", it)
		}
	}
	if ItemType("slideshow").Valid() {
		t.Error("unknown item type should be invalid")
	}
	if !DirectionNext.Valid() || !DirectionPrev.Valid() {
		t.Error("next/prev should be valid")
	}
	if Direction("sideways").Valid() {
		t.Error("sideways should be invalid")
	}
}
