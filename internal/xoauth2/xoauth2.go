// Package xoauth2 implements the XOAUTH2 SASL mechanism used by mail
// providers for OAuth bearer-token logins over IMAP and SMTP.
package xoauth2

import (
	"fmt"

	"github.com/emersion/go-sasl"
)

type client struct {
	username string
	token    string
	done     bool
}

// NewClient returns a SASL client for the XOAUTH2 mechanism.
func NewClient(username, token string) sasl.Client {
	return &client{username: username, token: token}
}

func (c *client) Start() (string, []byte, error) {
	ir := []byte("user=" + c.username + "\x01auth=Bearer " + c.token + "\x01\x01")
	return "XOAUTH2", ir, nil
}

// Next handles the server challenge sent on authentication failure. The
// protocol expects an empty response, after which the server fails the
// exchange with a proper error.
func (c *client) Next(challenge []byte) ([]byte, error) {
	if c.done {
		return nil, fmt.Errorf("unexpected server challenge: %q", challenge)
	}
	c.done = true
	return []byte{}, nil
}
