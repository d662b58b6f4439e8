// Package imap opens IMAP accounts as stores. Mailboxes map to folders by
// the server's hierarchy delimiter; messages are fetched whole and read as
// RFC 5322.
package imap

import (
	"fmt"
	"net"
	"strconv"

	"github.com/wesm/mailextract/internal/extract"
)

// Schemes served by this package. imaps uses implicit TLS.
const (
	Scheme    = "imap"
	SchemeTLS = "imaps"
)

// Settings are the account-independent connection settings.
type Settings struct {
	// STARTTLS upgrades plain imap:// connections.
	STARTTLS           bool    `toml:"starttls"`
	InsecureSkipVerify bool    `toml:"insecure_skip_verify"`
	Auth               string  `toml:"auth"` // "login" or "plain"
	RateLimitQPS       float64 `toml:"rate_limit_qps"`
	FetchBatch         int     `toml:"fetch_batch"`

	// Password is used when the descriptor carries none.
	Password string `toml:"-"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{STARTTLS: true, Auth: AuthLogin, RateLimitQPS: 5, FetchBatch: 50}
}

// Config holds connection settings for one IMAP account.
type Config struct {
	Host     string
	Port     int
	TLS      bool // implicit TLS
	STARTTLS bool
	Username string
	Password string
	Settings
}

// ConfigFromDescriptor combines a connection descriptor with settings.
func ConfigFromDescriptor(d extract.Descriptor, s Settings) (*Config, error) {
	if d.Host == "" {
		return nil, fmt.Errorf("imap: descriptor has no host")
	}
	c := &Config{
		Host:     d.Host,
		Port:     d.Port,
		TLS:      d.Scheme == SchemeTLS,
		Username: d.User,
		Password: d.Password,
		Settings: s,
	}
	c.STARTTLS = !c.TLS && s.STARTTLS
	if c.Password == "" {
		c.Password = s.Password
	}
	if c.FetchBatch <= 0 {
		c.FetchBatch = DefaultSettings().FetchBatch
	}
	switch c.Auth {
	case "":
		c.Auth = AuthLogin
	case AuthLogin, AuthPlain:
	default:
		return nil, fmt.Errorf("imap: unknown auth mechanism %q", c.Auth)
	}
	return c, nil
}

// Addr returns "host:port", defaulting the port by transport.
func (c *Config) Addr() string {
	port := c.Port
	if port == 0 {
		port = 143
		if c.TLS {
			port = 993
		}
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// Identifier returns the account as "user@host:port".
func (c *Config) Identifier() string {
	return c.Username + "@" + c.Addr()
}
