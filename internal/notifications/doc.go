// Package notifications pushes finished-session events to ntfy.
//
// The ntfy topic comes from the [notifications] section of config.toml. When
// no topic is configured NewService returns a no-op, so callers can notify
// unconditionally.
package notifications
