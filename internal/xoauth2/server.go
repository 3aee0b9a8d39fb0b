package xoauth2

import (
	"fmt"
	"strings"

	"github.com/emersion/go-sasl"
)

// Authenticator validates a username/token pair presented by a client.
type Authenticator func(username, token string) error

type server struct {
	authenticate Authenticator
	done         bool
}

// NewServer returns the server side of the XOAUTH2 mechanism. Used by test
// servers to accept the same exchanges the production dialers send.
func NewServer(authenticate Authenticator) sasl.Server {
	return &server{authenticate: authenticate}
}

func (s *server) Next(response []byte) ([]byte, bool, error) {
	if s.done {
		return nil, false, fmt.Errorf("unexpected client response")
	}

	// No initial response: send an empty challenge to elicit one.
	if response == nil {
		return []byte{}, false, nil
	}

	username, token, err := parseResponse(response)
	if err != nil {
		return nil, false, err
	}

	s.done = true
	if err := s.authenticate(username, token); err != nil {
		return nil, false, err
	}
	return nil, true, nil
}

// parseResponse decodes "user=<name>\x01auth=Bearer <token>\x01\x01".
func parseResponse(response []byte) (username, token string, err error) {
	parts := strings.Split(string(response), "\x01")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("malformed XOAUTH2 response")
	}

	if !strings.HasPrefix(parts[0], "user=") {
		return "", "", fmt.Errorf("malformed XOAUTH2 response: missing user")
	}
	username = strings.TrimPrefix(parts[0], "user=")

	if !strings.HasPrefix(parts[1], "auth=Bearer ") {
		return "", "", fmt.Errorf("malformed XOAUTH2 response: missing bearer token")
	}
	token = strings.TrimPrefix(parts[1], "auth=Bearer ")

	if username == "" || token == "" {
		return "", "", fmt.Errorf("malformed XOAUTH2 response: empty credentials")
	}

	return username, token, nil
}
