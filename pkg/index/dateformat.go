package index

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type datePart struct {
	field   byte // y M d H m s, or 0 for a literal
	width   int
	literal string
}

// dateFormat renders dates with .NET-style custom format tokens: yyyy yy
// MM M dd d HH H mm m ss s, the separators - _ . and quoted literals.
type dateFormat []datePart

func parseDateFormat(format string) (dateFormat, error) {
	if format == "" {
		return nil, fmt.Errorf("empty date format")
	}
	var parts dateFormat
	for i := 0; i < len(format); {
		c := format[i]
		switch {
		case c == '\'' || c == '"':
			end := strings.IndexByte(format[i+1:], c)
			if end < 0 {
				return nil, fmt.Errorf("unterminated literal in %q", format)
			}
			parts = append(parts, datePart{literal: format[i+1 : i+1+end]})
			i += end + 2
		case c == '-' || c == '_' || c == '.':
			parts = append(parts, datePart{literal: string(c)})
			i++
		case strings.IndexByte("yMdHms", c) >= 0:
			j := i
			for j < len(format) && format[j] == c {
				j++
			}
			width := j - i
			if !validWidth(c, width) {
				return nil, fmt.Errorf("unsupported token %q in %q", format[i:j], format)
			}
			parts = append(parts, datePart{field: c, width: width})
			i = j
		default:
			return nil, fmt.Errorf("unsupported character %q in %q", c, format)
		}
	}
	return parts, nil
}

func validWidth(field byte, width int) bool {
	if field == 'y' {
		return width == 2 || width == 4
	}
	return width == 1 || width == 2
}

func (f dateFormat) Format(t time.Time) string {
	var b strings.Builder
	for _, p := range f {
		if p.field == 0 {
			b.WriteString(p.literal)
			continue
		}
		var v int
		switch p.field {
		case 'y':
			v = t.Year()
			if p.width == 2 {
				v %= 100
			}
		case 'M':
			v = int(t.Month())
		case 'd':
			v = t.Day()
		case 'H':
			v = t.Hour()
		case 'm':
			v = t.Minute()
		case 's':
			v = t.Second()
		}
		s := strconv.Itoa(v)
		for len(s) < p.width {
			s = "0" + s
		}
		b.WriteString(s)
	}
	return b.String()
}
