package errors

import "testing"

func TestSessionError_Unwrap(t *testing.T) {
	base := New("underlying")
	err := NewSessionError("load failed", base).WithSession("s-1")

	if !Is(err, base) {
		t.Error("errors.Is should find the wrapped error")
	}

	var sessionErr *SessionError
	if !As(err, &sessionErr) {
		t.Fatal("errors.As should match *SessionError")
	}
	if sessionErr.SessionID != "s-1" {
		t.Errorf("expected session id s-1, got %q", sessionErr.SessionID)
	}
}

func TestNotFoundError_Is(t *testing.T) {
	tests := []struct {
		name     string
		resource string
		target   error
		want     bool
	}{
		{"session matches sentinel", "session", ErrSessionNotFound, true},
		{"group matches sentinel", "group", ErrGroupNotFound, true},
		{"session does not match group sentinel", "session", ErrGroupNotFound, false},
		{"unknown resource matches nothing", "worktree", ErrSessionNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewNotFoundError(tt.resource, "id-1")
			if got := Is(err, tt.target); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAlreadyExistsError_Is(t *testing.T) {
	err := NewAlreadyExistsError("session", "s-1")
	if !Is(err, ErrSessionExists) {
		t.Error("AlreadyExistsError for a session should match ErrSessionExists")
	}
}

func TestProcessError_Error(t *testing.T) {
	err := NewProcessError("spawn failed", ErrSpawnFailed).
		WithSession("s-1").
		WithCommand("claude --resume abc")

	msg := err.Error()
	if msg == "" {
		t.Fatal("expected non-empty error message")
	}
	if !Is(err, ErrSpawnFailed) {
		t.Error("ProcessError should unwrap to ErrSpawnFailed")
	}
}

func TestValidationError_Error(t *testing.T) {
	err := NewValidationError("layout.min_flex_percent", 60, "must leave room for at least two panes")
	want := "layout.min_flex_percent: must leave room for at least two panes (got: 60)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
