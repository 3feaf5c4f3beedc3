/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package lrucache provides a typed in-memory LRU cache with expiration, eviction callback,
// single-flight loading and Prometheus metrics.
package lrucache
