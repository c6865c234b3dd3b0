// Package eventbus provides the synchronous in-process notification
// bus connecting agents to their observers.
//
// Publish runs every handler for the event type in the caller's
// goroutine, in registration order. Isolation is mandatory: a handler
// error or panic is captured into the publish Report and logged, and
// never stops subsequent handlers or reaches the publisher, so one bad
// subscriber cannot break task processing.
//
// The bus is deliberately minimal: no buffering, no persistence, no
// replay. Subscriptions last for the life of the process.
package eventbus
