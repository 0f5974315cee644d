// Package greeting picks the caption message for a calendar date: a
// countdown to Christmas or New Year, or the holiday greeting itself.
package greeting

import (
	"fmt"
	"time"
)

// TaipeiOffset is the fixed UTC offset used to decide what "today" is.
const TaipeiOffset = 8 * time.Hour

var taipei = time.FixedZone("UTC+8", int(TaipeiOffset/time.Second))

// Locale selects the message wording.
type Locale string

const (
	LocaleZhTW Locale = "zh-TW"
	LocaleEn   Locale = "en"
)

type phrases struct {
	christmas      string
	newYear        string
	untilChristmas countdown
	untilNewYear   countdown
}

// countdown holds a day-count template; one is used for a single day when
// the language distinguishes it.
type countdown struct {
	one   string
	other string
}

func (c countdown) format(days int) string {
	if days == 1 && c.one != "" {
		return fmt.Sprintf(c.one, days)
	}
	return fmt.Sprintf(c.other, days)
}

var catalog = map[Locale]phrases{
	LocaleZhTW: {
		christmas:      "聖誕快樂",
		newYear:        "新年快樂",
		untilChristmas: countdown{other: "早安，聖誕節還有 %d 天"},
		untilNewYear:   countdown{other: "早安，新年還有 %d 天"},
	},
	LocaleEn: {
		christmas: "Merry Christmas",
		newYear:   "Happy New Year",
		untilChristmas: countdown{
			one:   "Good morning, %d day until Christmas",
			other: "Good morning, %d days until Christmas",
		},
		untilNewYear: countdown{
			one:   "Good morning, %d day until New Year",
			other: "Good morning, %d days until New Year",
		},
	},
}

// ValidLocale reports whether l has a message catalog.
func ValidLocale(l Locale) bool {
	_, ok := catalog[l]
	return ok
}

// Selector maps dates to messages.
//
// Year is the Christmas the countdown cycle is anchored on. Zero means the
// anchor follows the date being asked about, so every date gets a
// non-negative countdown.
type Selector struct {
	Year   int
	Locale Locale
}

// Today returns the calendar date of now in the fixed UTC+8 zone, as a
// midnight UTC time.
func Today(now time.Time) time.Time {
	t := now.In(taipei)
	return Date(t.Year(), t.Month(), t.Day())
}

// Date builds a midnight UTC date value.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Message returns the message for the given date. Only the year, month and
// day of d are used.
func (s Selector) Message(d time.Time) string {
	p, ok := catalog[s.Locale]
	if !ok {
		p = catalog[LocaleZhTW]
	}
	today := Date(d.Year(), d.Month(), d.Day())

	year := s.Year
	if year == 0 {
		year = anchorYear(today)
	}
	xmas := Date(year, time.December, 25)
	newYear := Date(year+1, time.January, 1)
	jan2 := Date(year+1, time.January, 2)

	switch {
	case today.Equal(xmas):
		return p.christmas
	case today.Before(xmas):
		return p.untilChristmas.format(daysBetween(today, xmas))
	case today.After(xmas) && today.Before(newYear):
		return p.untilNewYear.format(daysBetween(today, newYear))
	case today.Equal(newYear):
		return p.newYear
	case !today.Before(jan2):
		nextXmas := Date(year+1, time.December, 25)
		return p.untilChristmas.format(daysBetween(today, nextXmas))
	}
	return ""
}

// anchorYear picks the cycle a date belongs to: late December counts towards
// the New Year that follows it, everything else towards the coming Christmas.
func anchorYear(d time.Time) int {
	if d.Month() == time.December && d.Day() >= 25 {
		return d.Year()
	}
	return d.Year() - 1
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
