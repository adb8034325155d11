// Package ports picks a listen address for the dev host when the configured
// one is taken.
package ports

import (
	"fmt"
	"math/rand/v2"
	"net"
	"strconv"
)

// DefaultSpan is how far above the requested port Resolve looks.
const DefaultSpan = 1000

const maxAttempts = 50

// Resolve returns addr when it can be bound. Otherwise it returns the same
// host with a free port in [port, port+span]. Port 0 is returned unchanged.
func Resolve(addr string, span int) (string, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return "", fmt.Errorf("invalid port in listen address %q", addr)
	}
	if port == 0 {
		return addr, nil
	}

	free, err := FindAvailablePort(host, port, span)
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(host, strconv.Itoa(free)), nil
}

// FindAvailablePort tries start first, then random ports up to start+span.
func FindAvailablePort(host string, start, span int) (int, error) {
	if Available(net.JoinHostPort(host, strconv.Itoa(start))) {
		return start, nil
	}

	maxPort := min(start+span, 65535)
	if maxPort <= start {
		return 0, fmt.Errorf("port %d is in use", start)
	}

	for attempts := 0; attempts < maxAttempts; attempts++ {
		candidate := start + 1 + rand.IntN(maxPort-start)
		if Available(net.JoinHostPort(host, strconv.Itoa(candidate))) {
			return candidate, nil
		}
	}

	return 0, fmt.Errorf("unable to find available port after %d attempts in range %d-%d", maxAttempts, start, maxPort)
}

// Available reports whether addr can be listened on right now.
func Available(addr string) bool {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return false
	}
	listener.Close()
	return true
}
