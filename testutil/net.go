/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"errors"
	"fmt"
	"net"
	"time"
)

const waitPollInterval = 10 * time.Millisecond

// WaitListeningServer waits until the server accepts TCP connections on addr.
func WaitListeningServer(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if conn, err := net.DialTimeout("tcp", addr, time.Second); err == nil {
			return conn.Close()
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("server on %s is not listening after %s", addr, timeout)
		}
		time.Sleep(waitPollInterval)
	}
}

// WaitPortAndListeningServer waits until getPort reports a port (a server listening on ":0")
// and the server accepts TCP connections on host:port. The port is returned.
func WaitPortAndListeningServer(host string, getPort func() int, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	port := getPort()
	for port <= 0 {
		if time.Now().After(deadline) {
			return 0, errors.New("server port is unknown")
		}
		time.Sleep(waitPollInterval)
		port = getPort()
	}
	return port, WaitListeningServer(net.JoinHostPort(host, fmt.Sprint(port)), time.Until(deadline))
}
