// Package ratelimit paces requests to the tile API.
//
// Requests are issued one at a time and separated by a fixed delay. After a
// failure that did not produce an HTTP status (a timeout, a refused
// connection, a storage error) the loop waits the longer cooldown instead.
// Both waits end early when the context is cancelled.
package ratelimit
