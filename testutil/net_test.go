/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWaitPortAndListeningServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { require.NoError(t, ln.Close()) }()
	go func() {
		for {
			conn, acceptErr := ln.Accept()
			if acceptErr != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	wantPort := ln.Addr().(*net.TCPAddr).Port
	calls := 0
	getPort := func() int {
		calls++
		if calls < 3 {
			return 0
		}
		return wantPort
	}
	port, err := WaitPortAndListeningServer("127.0.0.1", getPort, 3*time.Second)
	require.NoError(t, err)
	require.Equal(t, wantPort, port)

	_, err = WaitPortAndListeningServer("127.0.0.1", func() int { return 0 }, 50*time.Millisecond)
	require.EqualError(t, err, "server port is unknown")
}
