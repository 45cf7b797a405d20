package cli

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "config error",
			err:  NewConfigError("history.backend", "unknown backend \"redis\""),
			want: `config error in history.backend: unknown backend "redis"`,
		},
		{
			name: "command error",
			err:  NewCommandError("history prune", cause),
			want: "command history prune failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}

	if !errors.Is(NewCommandError("run", cause), cause) {
		t.Error("CommandError should unwrap to its cause")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "runtime", err: errors.New("boom"), want: ExitFailure},
		{name: "config", err: NewConfigError("output", "bad"), want: ExitConfig},
		{name: "wrapped config", err: fmt.Errorf("loading: %w", NewConfigError("server", "bad")), want: ExitConfig},
		{name: "command", err: NewCommandError("run", errors.New("x")), want: ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
