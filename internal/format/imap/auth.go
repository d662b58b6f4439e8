package imap

import (
	"fmt"

	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-sasl"
)

// Authentication mechanisms.
const (
	AuthLogin = "login"
	AuthPlain = "plain"
)

// authenticate logs in with the configured mechanism.
func authenticate(conn *imapclient.Client, c *Config) error {
	if c.Username == "" {
		return fmt.Errorf("imap: no user name for %s", c.Addr())
	}
	if c.Auth == AuthPlain {
		if err := conn.Authenticate(sasl.NewPlainClient("", c.Username, c.Password)); err != nil {
			return fmt.Errorf("AUTHENTICATE PLAIN: %w", err)
		}
		return nil
	}
	if err := conn.Login(c.Username, c.Password).Wait(); err != nil {
		return fmt.Errorf("LOGIN: %w", err)
	}
	return nil
}
