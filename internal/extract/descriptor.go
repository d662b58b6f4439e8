package extract

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Descriptor locates a store: scheme://[user[:password]@]host[:port]/path.
// Components are held percent-decoded.
type Descriptor struct {
	Scheme   string
	Host     string
	Port     int
	User     string
	Password string
	Path     string
}

// ParseDescriptor parses a connection descriptor.
func ParseDescriptor(s string) (Descriptor, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Descriptor{}, fmt.Errorf("%w: empty", ErrMalformedDescriptor)
	}
	u, err := url.Parse(s)
	if err != nil {
		return Descriptor{}, fmt.Errorf("%w: %v", ErrMalformedDescriptor, err)
	}
	if u.Scheme == "" {
		return Descriptor{}, fmt.Errorf("%w: missing scheme in %q", ErrMalformedDescriptor, s)
	}
	if u.Opaque != "" {
		return Descriptor{}, fmt.Errorf("%w: expected scheme://, got %q", ErrMalformedDescriptor, s)
	}

	d := Descriptor{
		Scheme: strings.ToLower(u.Scheme),
		Host:   u.Hostname(),
		Path:   u.Path,
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return Descriptor{}, fmt.Errorf("%w: invalid port %q", ErrMalformedDescriptor, p)
		}
		d.Port = port
	}
	if u.User != nil {
		d.User = u.User.Username()
		d.Password, _ = u.User.Password()
	}
	return d, nil
}

// Address returns host:port, or just host when no port is set.
func (d Descriptor) Address() string {
	if d.Port == 0 {
		return d.Host
	}
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// String formats the descriptor with the password redacted.
func (d Descriptor) String() string {
	u := url.URL{Scheme: d.Scheme, Host: d.Address(), Path: d.Path}
	if d.User != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.User, "xxxxx")
		} else {
			u.User = url.User(d.User)
		}
	}
	return u.String()
}

// Target is the human-readable "user@host:path" form, omitting empty parts.
func (d Descriptor) Target() string {
	var b strings.Builder
	if d.User != "" {
		b.WriteString(d.User)
		b.WriteByte('@')
	}
	b.WriteString(d.Address())
	if d.Path != "" {
		if b.Len() > 0 {
			b.WriteByte(':')
		}
		b.WriteString(d.Path)
	}
	return b.String()
}
