package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"

	"NewsCollector/internal/domain"
)

const minYear = 2020

// Strategy names reported with every resolution.
const (
	StrategyURL      = "url"
	StrategyRelative = "relative"
	StrategyAbsolute = "absolute"
	StrategySelector = "selector"
	StrategyMeta     = "meta"
	StrategyJSONLD   = "jsonld"
	StrategyTimeTag  = "time-tag"
	StrategyClass    = "class"
	StrategyContent  = "content"
)

// Resolution is a resolved publish date with its provenance.
type Resolution struct {
	Time     time.Time
	Source   domain.DateSource
	Strategy string
}

var (
	urlFullDate = []*regexp.Regexp{
		regexp.MustCompile(`/(\d{4})[-/](\d{1,2})[-/](\d{1,2})(?:[/._-]|$)`),
		regexp.MustCompile(`/(\d{4})(\d{2})(\d{2})(?:[/._-]|$)`),
		regexp.MustCompile(`/t(\d{4})(\d{2})(\d{2})_`),
		regexp.MustCompile(`[-_](\d{4})(\d{2})(\d{2})[-_.]`),
		regexp.MustCompile(`[?&]date=(\d{4})-?(\d{2})-?(\d{2})`),
	}
	urlMonth = []*regexp.Regexp{
		regexp.MustCompile(`/(\d{4})(\d{2})/`),
		regexp.MustCompile(`/(\d{4})[-/](\d{1,2})/`),
	}

	clockExpr      = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
	daysAgoExpr    = regexp.MustCompile(`(?i)(\d+)\s*(?:天前|days?\s+ago)`)
	hoursAgoExpr   = regexp.MustCompile(`(?i)(\d+)\s*(?:个?小时前|hours?\s+ago)`)
	minutesAgoExpr = regexp.MustCompile(`(?i)(\d+)\s*(?:分钟前|min(?:ute)?s?\s+ago)`)
	justNowExpr    = regexp.MustCompile(`(?i)刚刚|just now`)

	ymdExpr   = regexp.MustCompile(`(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})(?:\s+(\d{1,2}):(\d{2}))?`)
	cnYMDExpr = regexp.MustCompile(`(\d{4})\s*年\s*(\d{1,2})\s*月\s*(\d{1,2})\s*日(?:\s*(\d{1,2}):(\d{2}))?`)
	cnMDExpr  = regexp.MustCompile(`(?:^|[^\d年])(\d{1,2})\s*月\s*(\d{1,2})\s*日(?:\s*(\d{1,2}):(\d{2}))?`)
)

// dayPhrases are checked in order; "day before yesterday" must precede "yesterday".
// English words count only when they are the whole text or sit next to a clock
// time, so names like "USA Today" in surrounding navigation do not match.
var dayPhrases = []struct {
	expr *regexp.Regexp
	days int
}{
	{expr: dayPhrase(`前天`, `day\s+before\s+yesterday`), days: 2},
	{expr: dayPhrase(`昨天`, `yesterday`), days: 1},
	{expr: dayPhrase(`今天`, `today`), days: 0},
}

func dayPhrase(chinese, english string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + chinese +
		`|^(?:the\s+)?` + english + `$` +
		`|\b` + english + `\b,?\s*(?:at\s+)?\d{1,2}:\d{2}`)
}

// FromURL finds a date embedded in the article URL.
func FromURL(rawURL string, now time.Time) (Resolution, bool) {
	for _, expr := range urlFullDate {
		for _, m := range expr.FindAllStringSubmatch(rawURL, -1) {
			if t, ok := makeDate(m[1], m[2], m[3], now); ok {
				return Resolution{Time: t, Source: domain.DateObserved, Strategy: StrategyURL}, true
			}
		}
	}
	for _, expr := range urlMonth {
		for _, m := range expr.FindAllStringSubmatch(rawURL, -1) {
			if t, ok := makeDate(m[1], m[2], "1", now); ok {
				return Resolution{Time: t, Source: domain.DateInferred, Strategy: StrategyURL}, true
			}
		}
	}
	return Resolution{}, false
}

// FromContext tries a relative phrase first and then an absolute date.
func FromContext(text string, now time.Time) (Resolution, bool) {
	text = normalize(text)
	if text == "" {
		return Resolution{}, false
	}
	if t, ok := Relative(text, now); ok {
		return Resolution{Time: t, Source: domain.DateInferred, Strategy: StrategyRelative}, true
	}
	if t, src, ok := Absolute(text, now); ok {
		return Resolution{Time: t, Source: src, Strategy: StrategyAbsolute}, true
	}
	return Resolution{}, false
}

// Relative resolves phrases such as 3天前 10:15, 昨天, 2 hours ago against now.
// A clock time in the text overrides the time of day for day-based phrases.
func Relative(text string, now time.Time) (time.Time, bool) {
	text = normalize(text)

	for _, p := range dayPhrases {
		if p.expr.MatchString(text) {
			return checked(atClock(now.AddDate(0, 0, -p.days), text), now)
		}
	}
	if m := daysAgoExpr.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return checked(atClock(now.AddDate(0, 0, -n), text), now)
	}
	if m := hoursAgoExpr.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return checked(now.Add(-time.Duration(n)*time.Hour), now)
	}
	if m := minutesAgoExpr.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return checked(now.Add(-time.Duration(n)*time.Minute), now)
	}
	if justNowExpr.MatchString(text) {
		return now, true
	}
	return time.Time{}, false
}

// Absolute finds YYYY-MM-DD, YYYY/MM/DD, YYYY年MM月DD日 or MM月DD日 in text.
// A month-day date takes the current year, or last year if that would be in the future.
func Absolute(text string, now time.Time) (time.Time, domain.DateSource, bool) {
	text = normalize(text)

	for _, expr := range []*regexp.Regexp{ymdExpr, cnYMDExpr} {
		for _, m := range expr.FindAllStringSubmatch(text, -1) {
			if t, ok := makeDate(m[1], m[2], m[3], now); ok {
				return withClock(t, m[4], m[5], now), domain.DateObserved, true
			}
		}
	}

	for _, m := range cnMDExpr.FindAllStringSubmatch(text, -1) {
		year := now.Year()
		t, ok := makeDateInts(year, atoi(m[1]), atoi(m[2]), now.Location())
		if ok && t.After(now) {
			t, ok = makeDateInts(year-1, atoi(m[1]), atoi(m[2]), now.Location())
		}
		if ok && inRange(t, now) {
			return withClock(t, m[3], m[4], now), domain.DateInferred, true
		}
	}
	return time.Time{}, "", false
}

// Valid reports whether t lies within [2020-01-01, now].
func Valid(t, now time.Time) bool {
	return inRange(t, now)
}

func normalize(text string) string {
	return strings.TrimSpace(width.Narrow.String(text))
}

func makeDate(y, m, d string, now time.Time) (time.Time, bool) {
	year := atoi(y)
	if year < minYear || year > now.Year() {
		return time.Time{}, false
	}
	t, ok := makeDateInts(year, atoi(m), atoi(d), now.Location())
	if !ok || !inRange(t, now) {
		return time.Time{}, false
	}
	return t, true
}

func makeDateInts(year, month, day int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	// time.Date normalizes Feb 30 into March
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

func atClock(day time.Time, text string) time.Time {
	m := clockExpr.FindStringSubmatch(text)
	if m == nil {
		return day
	}
	h, mi := atoi(m[1]), atoi(m[2])
	if h > 23 || mi > 59 {
		return day
	}
	return time.Date(day.Year(), day.Month(), day.Day(), h, mi, 0, 0, day.Location())
}

// withClock applies an optional HH:MM, keeping midnight when the result would be in the future.
func withClock(day time.Time, hh, mm string, now time.Time) time.Time {
	if hh == "" {
		return day
	}
	h, mi := atoi(hh), atoi(mm)
	if h > 23 || mi > 59 {
		return day
	}
	t := time.Date(day.Year(), day.Month(), day.Day(), h, mi, 0, 0, day.Location())
	if t.After(now) {
		return day
	}
	return t
}

func checked(t, now time.Time) (time.Time, bool) {
	if !inRange(t, now) {
		return time.Time{}, false
	}
	return t, true
}

func inRange(t, now time.Time) bool {
	floor := time.Date(minYear, time.January, 1, 0, 0, 0, 0, now.Location())
	return !t.Before(floor) && !t.After(now)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
