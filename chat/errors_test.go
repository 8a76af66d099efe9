package chat

import (
	"errors"
	"fmt"
	"testing"

	twitch "github.com/gempir/go-twitch-irc/v4"
)

func TestClassifyConnectError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ErrorClassUnknown},
		{"login failed sentinel", twitch.ErrLoginAuthenticationFailed, ErrorClassAuth},
		{"wrapped login failed", fmt.Errorf("connect: %w", twitch.ErrLoginAuthenticationFailed), ErrorClassAuth},
		{"invalid oauth string", errors.New("Login unsuccessful: Invalid OAuth token"), ErrorClassAuth},
		{"connection reset", errors.New("read tcp: connection reset by peer"), ErrorClassTransient},
		{"refused", errors.New("dial tcp: connection refused"), ErrorClassTransient},
		{"timeout", errors.New("i/o timeout"), ErrorClassTransient},
		{"eof", errors.New("unexpected EOF"), ErrorClassTransient},
		{"dns", errors.New("lookup irc.chat.twitch.tv: no such host"), ErrorClassTransient},
		{"mystery", errors.New("something odd"), ErrorClassUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyConnectError(tt.err); got != tt.want {
				t.Errorf("ClassifyConnectError(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorClassString(t *testing.T) {
	if ErrorClassTransient.String() != "transient" || ErrorClassAuth.String() != "auth" || ErrorClassUnknown.String() != "unknown" {
		t.Error("unexpected ErrorClass string values")
	}
}
