// Package index resolves the document store address a record is posted to.
package index

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/benbjohnson/clock"

	"logship/pkg/model"
)

// DocType is the document type path segment.
const DocType = "_doc"

var namePattern = regexp.MustCompile(`^[a-z0-9]+[a-z0-9\-_]*$`)

// ValidName reports whether s can be used as an index name or fragment.
func ValidName(s string) bool {
	return namePattern.MatchString(s)
}

// Address is a fully resolved document store endpoint.
type Address struct {
	Scheme   string
	Host     string
	Port     string
	User     string
	Password string
	Index    string
	DocType  string
	Routing  string
	Bulk     bool
}

// URL builds /<index>/<doctype>[/_bulk][?routing=key] on the configured
// authority. Credentials are attached only when both user and password are
// present.
func (a Address) URL() *url.URL {
	host := a.Host
	if a.Port != "" {
		host = net.JoinHostPort(a.Host, a.Port)
	}
	path := "/" + a.Index + "/" + a.DocType
	if a.Bulk {
		path += "/_bulk"
	}
	u := &url.URL{
		Scheme: a.Scheme,
		Host:   host,
		Path:   path,
	}
	if a.User != "" && a.Password != "" {
		u.User = url.UserPassword(a.User, a.Password)
	}
	if a.Routing != "" {
		u.RawQuery = url.Values{"routing": {a.Routing}}.Encode()
	}
	return u
}

// String returns the URL with the password masked.
func (a Address) String() string {
	return a.URL().Redacted()
}

// Builder turns a base index name and connection settings into addresses.
// It is immutable and safe for concurrent use.
type Builder struct {
	repository string
	settings   Settings
	rolling    dateFormat
	clock      clock.Clock
}

// NewBuilder validates the base index name and prepares the rolling date
// format. An unusable date format falls back to DefaultRollingDateFormat.
func NewBuilder(repository string, settings Settings, clk clock.Clock) (*Builder, error) {
	if strings.TrimSpace(repository) == "" {
		return nil, fmt.Errorf("%w: index repository is empty", model.ErrConfiguration)
	}
	if !ValidName(repository) {
		return nil, fmt.Errorf("%w: index repository %q must match %s", model.ErrConfiguration, repository, namePattern)
	}
	if settings.Server == "" {
		return nil, fmt.Errorf("%w: connection settings have no Server", model.ErrConfiguration)
	}
	if clk == nil {
		clk = clock.New()
	}
	if settings.Scheme == "" {
		settings.Scheme = "http"
	}

	layout, err := parseDateFormat(settings.RollingDateFormat)
	if err != nil {
		layout, _ = parseDateFormat(DefaultRollingDateFormat)
	}

	return &Builder{
		repository: repository,
		settings:   settings,
		rolling:    layout,
		clock:      clk,
	}, nil
}

// Open parses connectionString and builds a Builder from it. A positive
// bufferSize overrides the BufferSize key.
func Open(repository, connectionString string, bufferSize int, clk clock.Clock) (*Builder, error) {
	settings, err := ParseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}
	if bufferSize > 0 {
		settings.BufferSize = bufferSize
	}
	return NewBuilder(repository, settings, clk)
}

// Settings returns the connection settings the builder was created with.
func (b *Builder) Settings() Settings {
	return b.settings
}

// IndexName composes base[-subIndex][-date]. Sub-indices are lower-cased and
// silently skipped when they are not valid index name fragments.
func (b *Builder) IndexName(subIndex string) string {
	name := b.repository
	if sub := strings.ToLower(strings.TrimSpace(subIndex)); sub != "" && ValidName(sub) {
		if !strings.HasSuffix(name, "-") {
			name += "-"
		}
		name += sub
	}
	if b.settings.Rolling {
		name += "-" + b.rolling.Format(b.clock.Now().UTC())
	}
	return name
}

// Resolve returns the address records tagged with subIndex are posted to.
func (b *Builder) Resolve(subIndex string) Address {
	return Address{
		Scheme:   b.settings.Scheme,
		Host:     b.settings.Server,
		Port:     b.settings.Port,
		User:     b.settings.User,
		Password: b.settings.Password,
		Index:    b.IndexName(subIndex),
		DocType:  DocType,
		Routing:  b.settings.Routing,
		Bulk:     b.settings.Bulk(),
	}
}
