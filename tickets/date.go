package tickets

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Layouts accepted for --date besides "today", tried in order.
var dateLayouts = []string{
	"02.01.2006",
	"2006-01-02",
	"2006/01/02",
}

// ParseDate resolves a report date to local midnight. "" and "today" mean
// the day of now.
func ParseDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "today") {
		return midnight(now), nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return midnight(t.In(now.Location())), nil
	}

	return time.Time{}, errors.Errorf("cannot parse date %q (use today, DD.MM.YYYY or YYYY-MM-DD)", s)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

var strftimeDirectives = map[byte]string{
	'd': "02",
	'e': "_2",
	'm': "01",
	'Y': "2006",
	'y': "06",
	'H': "15",
	'I': "03",
	'M': "04",
	'S': "05",
	'p': "PM",
	'b': "Jan",
	'B': "January",
	'a': "Mon",
	'A': "Monday",
	'j': "002",
	'%': "%",
}

// DateLayout returns a Go time layout for jira.dateFormat. Values containing
// '%' are read as strftime patterns such as "%d.%m.%Y", anything else is
// taken as a Go layout.
func DateLayout(format string) string {
	if !strings.Contains(format, "%") {
		return format
	}

	var b strings.Builder
	for i := 0; i < len(format); i++ {
		if format[i] != '%' || i+1 == len(format) {
			b.WriteByte(format[i])
			continue
		}
		if layout, ok := strftimeDirectives[format[i+1]]; ok {
			b.WriteString(layout)
			i++
			continue
		}
		b.WriteByte(format[i])
	}
	return b.String()
}
