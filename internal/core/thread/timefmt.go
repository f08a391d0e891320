package thread

import (
	"time"

	"golang.org/x/text/language"
)

// dayPeriod holds the AM/PM markers of a language, where they go and what
// separates them from the clock.
type dayPeriod struct {
	am, pm string
	prefix bool
	sep    string
}

var (
	supportedLanguages = []language.Tag{
		language.English, // first entry is the fallback
		language.Spanish,
		language.Japanese,
		language.Korean,
		language.Chinese,
	}

	dayPeriods = []dayPeriod{
		{am: "AM", pm: "PM", sep: " "},
		{am: "a. m.", pm: "p. m.", sep: " "},
		{am: "午前", pm: "午後", prefix: true},
		{am: "오전", pm: "오후", prefix: true, sep: " "},
		{am: "上午", pm: "下午", prefix: true},
	}

	languageMatcher = language.NewMatcher(supportedLanguages)
)

// TimeFormatter renders creation instants as a 12-hour hour:minute clock in
// the viewer's locale and time zone.
type TimeFormatter struct {
	loc    *time.Location
	period dayPeriod
}

// NewTimeFormatter builds a formatter for the BCP 47 locale tag. Unknown or
// unparsable tags fall back to English; a nil loc means time.Local.
func NewTimeFormatter(locale string, loc *time.Location) TimeFormatter {
	if loc == nil {
		loc = time.Local
	}

	idx := 0
	if tag, err := language.Parse(locale); err == nil {
		_, idx, _ = languageMatcher.Match(tag)
	}

	return TimeFormatter{loc: loc, period: dayPeriods[idx]}
}

// Format renders t, for example "3:04 PM", "午後3:04" or "오후 3:04".
func (f TimeFormatter) Format(t time.Time) string {
	loc := f.loc
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)

	period := f.period
	if period.am == "" {
		period = dayPeriods[0]
	}
	marker := period.am
	if t.Hour() >= 12 {
		marker = period.pm
	}

	clock := t.Format("3:04")
	if period.prefix {
		return marker + period.sep + clock
	}
	return clock + period.sep + marker
}
