package model

import "strings"

// Level models a log severity. Higher values are more severe.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
	// LevelOff disables an appender when used as its threshold.
	LevelOff
)

// ParseLevel converts a string to a Level, defaulting to INFO.
func ParseLevel(v string) Level {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "DEBUG", "TRACE", "ALL":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "FATAL", "CRITICAL":
		return LevelFatal
	case "OFF":
		return LevelOff
	default:
		return LevelInfo
	}
}

func (lvl Level) String() string {
	switch lvl {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	case LevelOff:
		return "OFF"
	default:
		return "INFO"
	}
}

// MarshalText lets levels appear by name in JSON and YAML.
func (lvl Level) MarshalText() ([]byte, error) {
	return []byte(lvl.String()), nil
}

// UnmarshalText parses a level name.
func (lvl *Level) UnmarshalText(b []byte) error {
	*lvl = ParseLevel(string(b))
	return nil
}
