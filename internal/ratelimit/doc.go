/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package ratelimit limits how often a single user (or a client address) may call the API.
//
// Two algorithms are available: a leaky bucket (GCRA) that allows short bursts,
// and a sliding window that counts requests over the last period.
// Limiters keep per-key state in memory and forget the least recently seen keys
// once the number of keys reaches the configured maximum.
package ratelimit
