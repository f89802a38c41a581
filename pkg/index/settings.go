package index

import (
	"fmt"
	"strconv"
	"strings"

	"logship/pkg/model"
)

// Connection string keys. Matching is case-insensitive.
const (
	KeyScheme            = "Scheme"
	KeyUser              = "User"
	KeyPassword          = "Pwd"
	KeyServer            = "Server"
	KeyPort              = "Port"
	KeyRolling           = "Rolling"
	KeyRollingDateFormat = "RollingDateFormat"
	KeyBufferSize        = "BufferSize"
	KeyRouting           = "Routing"
)

// DefaultRollingDateFormat is used when no format is configured or the
// configured one can't be applied.
const DefaultRollingDateFormat = "yyyyMMdd"

// Settings is a parsed connection string.
type Settings struct {
	Scheme            string
	User              string
	Password          string
	Server            string
	Port              string
	Rolling           bool
	RollingDateFormat string
	// BufferSize is the bulk threshold: above 1 batches go to the bulk endpoint.
	BufferSize int
	Routing    string
}

// Bulk reports whether batches are sent through the bulk endpoint.
func (s Settings) Bulk() bool {
	return s.BufferSize > 1
}

// HasCredentials reports whether both user and password are set.
func (s Settings) HasCredentials() bool {
	return strings.TrimSpace(s.User) != "" && strings.TrimSpace(s.Password) != ""
}

// ParseConnectionString parses "Key=Value;Key=Value" into Settings. Unknown
// keys are ignored; later keys override earlier ones.
func ParseConnectionString(s string) (Settings, error) {
	if strings.TrimSpace(s) == "" {
		return Settings{}, fmt.Errorf("%w: connection string is empty", model.ErrConfiguration)
	}

	parts, err := splitPairs(s)
	if err != nil {
		return Settings{}, err
	}

	settings := Settings{
		Scheme:            "http",
		RollingDateFormat: DefaultRollingDateFormat,
	}
	for key, value := range parts {
		switch key {
		case strings.ToLower(KeyScheme):
			if value != "" {
				settings.Scheme = strings.ToLower(value)
			}
		case strings.ToLower(KeyUser):
			settings.User = value
		case strings.ToLower(KeyPassword):
			settings.Password = value
		case strings.ToLower(KeyServer):
			settings.Server = value
		case strings.ToLower(KeyPort):
			if value == "" {
				continue
			}
			if _, err := strconv.ParseUint(value, 10, 16); err != nil {
				return Settings{}, fmt.Errorf("%w: invalid Port %q", model.ErrConfiguration, value)
			}
			settings.Port = value
		case strings.ToLower(KeyRolling):
			// Anything that isn't a boolean means "not rolling".
			settings.Rolling, _ = strconv.ParseBool(value)
		case strings.ToLower(KeyRollingDateFormat):
			if value != "" {
				settings.RollingDateFormat = value
			}
		case strings.ToLower(KeyBufferSize):
			if value == "" {
				continue
			}
			n, err := strconv.Atoi(value)
			if err != nil {
				return Settings{}, fmt.Errorf("%w: invalid BufferSize %q", model.ErrConfiguration, value)
			}
			settings.BufferSize = n
		case strings.ToLower(KeyRouting):
			settings.Routing = value
		}
	}

	if settings.Server == "" {
		return Settings{}, fmt.Errorf("%w: connection string has no Server", model.ErrConfiguration)
	}
	return settings, nil
}

// splitPairs returns lower-cased keys mapped to trimmed, unquoted values.
func splitPairs(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ";") {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: malformed connection string segment %q", model.ErrConfiguration, pair)
		}
		out[key] = unquote(strings.TrimSpace(value))
	}
	return out, nil
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}
