// Package state provides a lightweight session store for multi-step
// Telegram conversations. It is intentionally domain-agnostic so it can
// be reused across bots: flows, steps, and fields are plain strings.
package state
