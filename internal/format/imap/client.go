package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	imap "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"golang.org/x/time/rate"
)

// Option is a functional option for Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// Client is a read-only IMAP session. Mailboxes are opened with EXAMINE
// and bodies fetched with BODY.PEEK, so no flags change on the server.
type Client struct {
	config  *Config
	logger  *slog.Logger
	limiter *rate.Limiter

	mu        sync.Mutex
	conn      *imapclient.Client
	selected  string
	stopClose func() bool
}

// NewClient creates a client. No connection is made until first use.
func NewClient(cfg *Config, opts ...Option) *Client {
	c := &Client{
		config:  cfg,
		logger:  slog.Default(),
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	if cfg.RateLimitQPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitQPS), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// connect dials and authenticates. Caller must hold mu.
func (c *Client) connect(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}
	addr := c.config.Addr()
	c.logger.Debug("connecting to IMAP server", "addr", addr, "tls", c.config.TLS, "starttls", c.config.STARTTLS)

	opts := &imapclient.Options{
		TLSConfig: &tls.Config{
			ServerName:         c.config.Host,
			InsecureSkipVerify: c.config.InsecureSkipVerify,
		},
	}
	var (
		conn *imapclient.Client
		err  error
	)
	switch {
	case c.config.TLS:
		conn, err = imapclient.DialTLS(addr, opts)
	case c.config.STARTTLS:
		conn, err = imapclient.DialStartTLS(addr, opts)
	default:
		conn, err = imapclient.DialInsecure(addr, opts)
	}
	if err != nil {
		return fmt.Errorf("dial IMAP %s: %w", addr, err)
	}
	if err := authenticate(conn, c.config); err != nil {
		_ = conn.Close()
		return err
	}

	c.conn = conn
	c.selected = ""
	c.stopClose = context.AfterFunc(ctx, func() { _ = conn.Close() })
	c.logger.Debug("connected and authenticated", "user", c.config.Username)
	return nil
}

// withConn runs fn with the active connection, connecting if necessary.
func (c *Client) withConn(ctx context.Context, fn func(*imapclient.Client) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connect(ctx); err != nil {
		return err
	}
	return fn(c.conn)
}

// examine opens a mailbox read-only unless it is already open. Caller must
// hold mu.
func (c *Client) examine(mailbox string) error {
	if c.selected == mailbox {
		return nil
	}
	if _, err := c.conn.Select(mailbox, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		return fmt.Errorf("EXAMINE %q: %w", mailbox, err)
	}
	c.selected = mailbox
	return nil
}

// Mailboxes lists every mailbox of the account.
func (c *Client) Mailboxes(ctx context.Context) ([]*imap.ListData, error) {
	var items []*imap.ListData
	err := c.withConn(ctx, func(conn *imapclient.Client) error {
		var err error
		items, err = conn.List("", "*", nil).Collect()
		if err != nil {
			return fmt.Errorf("LIST: %w", err)
		}
		return nil
	})
	return items, err
}

// UIDs returns the UIDs of mailbox in ascending order.
func (c *Client) UIDs(ctx context.Context, mailbox string) ([]imap.UID, error) {
	var uids []imap.UID
	err := c.withConn(ctx, func(conn *imapclient.Client) error {
		if err := c.examine(mailbox); err != nil {
			return err
		}
		data, err := conn.UIDSearch(&imap.SearchCriteria{}, &imap.SearchOptions{ReturnAll: true}).Wait()
		if err != nil {
			return fmt.Errorf("UID SEARCH %q: %w", mailbox, err)
		}
		if set, ok := data.All.(imap.UIDSet); ok {
			uids, _ = set.Nums()
		}
		return nil
	})
	slices.Sort(uids)
	return uids, err
}

// Fetched is one downloaded message.
type Fetched struct {
	UID  imap.UID
	Raw  []byte
	Date time.Time // internal date
}

// Fetch downloads the given messages in batches, throttled by the rate
// limit, and calls fn for each in UID order. The connection is not held
// while fn runs.
func (c *Client) Fetch(ctx context.Context, mailbox string, uids []imap.UID, fn func(Fetched) error) error {
	batch := c.config.FetchBatch
	for start := 0; start < len(uids); start += batch {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		chunk := uids[start:min(start+batch, len(uids))]
		got, err := c.fetchBatch(ctx, mailbox, chunk)
		if err != nil {
			return err
		}
		for _, uid := range chunk {
			m, ok := got[uid]
			if !ok {
				c.logger.Warn("message vanished during fetch", "mailbox", mailbox, "uid", uid)
				continue
			}
			if err := fn(m); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Client) fetchBatch(ctx context.Context, mailbox string, uids []imap.UID) (map[imap.UID]Fetched, error) {
	out := make(map[imap.UID]Fetched, len(uids))
	opts := &imap.FetchOptions{
		UID:          true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{{Peek: true}}, // whole message
	}
	err := c.withConn(ctx, func(conn *imapclient.Client) error {
		if err := c.examine(mailbox); err != nil {
			return err
		}
		var set imap.UIDSet
		for _, uid := range uids {
			set.AddNum(uid)
		}
		msgs, err := conn.Fetch(set, opts).Collect()
		if err != nil {
			return fmt.Errorf("UID FETCH %q: %w", mailbox, err)
		}
		for _, m := range msgs {
			var raw []byte
			if len(m.BodySection) > 0 {
				raw = m.BodySection[0].Bytes
			}
			out[m.UID] = Fetched{UID: m.UID, Raw: raw, Date: m.InternalDate}
		}
		return nil
	})
	return out, err
}

// Close logs out and disconnects.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	conn := c.conn
	c.conn = nil
	c.selected = ""
	c.stopClose()
	if err := conn.Logout().Wait(); err != nil {
		_ = conn.Close()
		return err
	}
	return conn.Close()
}
