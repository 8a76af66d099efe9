package chat

import (
	"context"
	"errors"
	"net"
	"strings"

	twitch "github.com/gempir/go-twitch-irc/v4"
)

// ErrorClass separates connection errors the bridge should simply retry from
// ones that need operator attention (bad credentials). Both classes are
// retried with backoff; the class only controls log severity, since a rejected
// token can become valid again after the refresher rolls it over.
type ErrorClass int

const (
	// ErrorClassTransient covers network drops, timeouts, and server-side hiccups.
	ErrorClassTransient ErrorClass = iota
	// ErrorClassAuth covers rejected credentials.
	ErrorClassAuth
	// ErrorClassUnknown is anything that matches no known pattern.
	ErrorClassUnknown
)

// String returns a human-readable name for the error class.
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorClassTransient:
		return "transient"
	case ErrorClassAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// ClassifyConnectError classifies an error returned by the IRC client's
// Connect call.
func ClassifyConnectError(err error) ErrorClass {
	if err == nil {
		return ErrorClassUnknown
	}
	if errors.Is(err, twitch.ErrLoginAuthenticationFailed) {
		return ErrorClassAuth
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorClassTransient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassTransient
	}

	lower := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"authentication failed",
		"improperly formatted auth",
		"invalid oauth",
	} {
		if strings.Contains(lower, pattern) {
			return ErrorClassAuth
		}
	}
	for _, pattern := range []string{
		"connection reset",
		"connection refused",
		"broken pipe",
		"timeout",
		"timed out",
		"eof",
		"no such host",
		"network is unreachable",
		"tls handshake",
	} {
		if strings.Contains(lower, pattern) {
			return ErrorClassTransient
		}
	}
	return ErrorClassUnknown
}
