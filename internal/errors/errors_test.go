package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestCodedError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *CodedError
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(CodeLibraryNotFound, "song 7 not found"),
			expected: "library.not_found: song 7 not found",
		},
		{
			name:     "error with cause",
			err:      Wrap(CodeServerBindFailed, "failed to listen on :3456", errors.New("address already in use")),
			expected: "server.bind_failed: failed to listen on :3456 (address already in use)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestCodedError_Unwrap(t *testing.T) {
	cause := errors.New("original error")
	err := Wrap(CodeInternal, "wrapped", cause)

	if err.Unwrap() != cause {
		t.Error("Unwrap() should return the original cause")
	}

	err2 := New(CodeLibraryNotFound, "not found")
	if err2.Unwrap() != nil {
		t.Error("Unwrap() should return nil when no cause")
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil error", err: nil, expected: ""},
		{name: "CodedError", err: NotRunning(), expected: CodeServerNotRunning},
		{name: "wrapped CodedError", err: SpawnFailed(errors.New("exec: not found")), expected: CodeListenerSpawnFailed},
		{name: "plain error", err: errors.New("some error"), expected: CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestToCodeAndMessage(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{name: "nil error"},
		{
			name:        "CodedError",
			err:         NotFound("song 3"),
			wantCode:    CodeLibraryNotFound,
			wantMessage: "song 3 not found",
		},
		{
			name:        "plain error",
			err:         errors.New("some error"),
			wantCode:    CodeUnknown,
			wantMessage: "some error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, message := ToCodeAndMessage(tt.err)
			if code != tt.wantCode {
				t.Errorf("ToCodeAndMessage() code = %q, want %q", code, tt.wantCode)
			}
			if message != tt.wantMessage {
				t.Errorf("ToCodeAndMessage() message = %q, want %q", message, tt.wantMessage)
			}
			if GetMessage(tt.err) != tt.wantMessage {
				t.Errorf("GetMessage() = %q, want %q", GetMessage(tt.err), tt.wantMessage)
			}
		})
	}
}

func TestIsCode(t *testing.T) {
	err := AlreadyRunning()

	if !IsCode(err, CodeServerAlreadyRunning) {
		t.Error("IsCode() should return true for matching code")
	}
	if IsCode(err, CodeServerBindFailed) {
		t.Error("IsCode() should return false for non-matching code")
	}
	if IsCode(nil, CodeServerAlreadyRunning) {
		t.Error("IsCode() should return false for nil error")
	}
}

func TestErrorConstructors(t *testing.T) {
	t.Run("AlreadyRunning message is stable", func(t *testing.T) {
		if got := AlreadyRunning().Message; got != "Server already running" {
			t.Errorf("AlreadyRunning() message = %q", got)
		}
	})

	t.Run("UnknownType", func(t *testing.T) {
		err := UnknownType("launch")
		if !IsCode(err, CodeProtocolUnknownType) {
			t.Errorf("UnknownType() code = %q", err.Code)
		}
		if err.Message != "Unknown message type: launch" {
			t.Errorf("UnknownType() message = %q", err.Message)
		}
	})

	t.Run("RelayFailed includes cause message", func(t *testing.T) {
		cause := NotFound("song 9")
		err := RelayFailed("get song lyrics", cause)
		if !IsCode(err, CodeRelayFailed) {
			t.Errorf("RelayFailed() code = %q", err.Code)
		}
		if err.Message != "get song lyrics failed: song 9 not found" {
			t.Errorf("RelayFailed() message = %q", err.Message)
		}
		if !errors.Is(err, cause) {
			t.Error("RelayFailed() should preserve cause")
		}
	})

	t.Run("BindFailed", func(t *testing.T) {
		cause := errors.New("address already in use")
		err := BindFailed(":3456", cause)
		if err.Cause != cause || !strings.Contains(err.Message, ":3456") {
			t.Errorf("BindFailed() = %+v", err)
		}
	})

	t.Run("Internal", func(t *testing.T) {
		cause := errors.New("db connection lost")
		err := Internal("database error", cause)
		if !IsCode(err, CodeInternal) || err.Cause != cause {
			t.Errorf("Internal() = %+v", err)
		}
	})
}

func TestErrorsAs(t *testing.T) {
	cause := errors.New("original")
	coded := Wrap(CodeListenerIPCFailed, "wrapped", cause)
	wrapped := Wrap(CodeInternal, "double wrapped", coded)

	var target *CodedError
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As should find CodedError in chain")
	}
	if target.Code != CodeInternal {
		t.Errorf("errors.As should find outermost CodedError, got code %q", target.Code)
	}
}

func TestErrorCodes(t *testing.T) {
	codes := []string{
		CodeServerAlreadyRunning,
		CodeServerBindFailed,
		CodeServerNotRunning,
		CodeServerUpgradeFailed,
		CodeServerSendFailed,
		CodeProtocolInvalidMessage,
		CodeProtocolUnknownType,
		CodeInputRateLimited,
		CodeListenerSpawnFailed,
		CodeListenerCrashed,
		CodeListenerIPCFailed,
		CodeRelayFailed,
		CodeLibraryNotFound,
		CodeLibraryQueryFailed,
		CodeLibraryOpenFailed,
		CodePresenterNothingLive,
		CodePresenterInvalidItem,
		CodeUnknown,
		CodeInternal,
	}

	seen := make(map[string]bool)
	for _, code := range codes {
		domain, name, ok := strings.Cut(code, ".")
		if !ok || domain == "" || name == "" {
			t.Errorf("error code %q should be in format {domain}.{error}", code)
		}
		if seen[code] {
			t.Errorf("duplicate error code %q", code)
		}
		seen[code] = true
	}
}
