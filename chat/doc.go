// Package chat bridges a live Twitch channel into the quiz engine.
//
// The Bridge runs as one long-lived goroutine, independent from the HTTP
// layer. Every PRIVMSG on the configured channel is fed into the engine's
// CheckAnswer; fresh correct answers get a templated confirmation back in
// chat. Confirmations are best-effort: the score commits before the send, and
// a send for a round that has already advanced is dropped.
//
// Connection lifecycle: Disconnected -> Connecting (token present) ->
// Connected. Any read or auth failure drops back to Disconnected and retries
// with capped exponential backoff; retries are unbounded in count but bounded
// in rate. Messages are delivered at most once per physical message (no
// replay on reconnect), and the engine's duplicate-username no-op makes
// a replayed delivery harmless anyway.
//
// Credentials: the IRC client needs a bot username and a user OAuth token
// with chat:read/chat:edit scopes, supplied through a TokenSource so the
// twitchapi refresher can roll the token over without restarting the bridge.
// The bridge never inspects token contents, only presence.
package chat
