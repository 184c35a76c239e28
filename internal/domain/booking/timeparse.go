package booking

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// The natural-language grammar is deliberately closed: anything outside it
// fails with ParseError so the caller can re-prompt, rather than guessing at
// what the user meant.

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

var (
	inOffsetRe = regexp.MustCompile(`^in (\d+) (day|days|week|weeks)$`)
	clock12Re  = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)$`)
	clock24Re  = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

// ResolveDateTime normalizes a natural-language date/time pair to an absolute
// timestamp in ref's location. An empty time defaults to defaultHour o'clock.
func ResolveDateTime(dateText, timeText string, ref time.Time, defaultHour int) (time.Time, error) {
	day, err := parseDate(dateText, ref)
	if err != nil {
		return time.Time{}, err
	}

	hour, minute := defaultHour, 0
	if strings.TrimSpace(timeText) != "" {
		hour, minute, err = parseClock(timeText)
		if err != nil {
			return time.Time{}, err
		}
	}

	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, ref.Location()), nil
}

// parseDate resolves the date portion to midnight of the target day.
// Supported relative forms: "today", "tomorrow", "next <weekday>", a bare
// weekday, "in N days", "in N weeks". Explicit calendar dates are accepted in
// the layouts above.
func parseDate(text string, ref time.Time) (time.Time, error) {
	raw := text
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return time.Time{}, &ParseError{Input: raw}
	}

	midnight := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())

	switch text {
	case "today":
		return midnight, nil
	case "tomorrow":
		return midnight.AddDate(0, 0, 1), nil
	}

	if day, ok := strings.CutPrefix(text, "next "); ok {
		wd, found := weekdays[day]
		if !found {
			return time.Time{}, &ParseError{Input: raw}
		}
		return nextWeekday(midnight, wd), nil
	}
	if wd, ok := weekdays[text]; ok {
		return nextWeekday(midnight, wd), nil
	}

	if m := inOffsetRe.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, &ParseError{Input: raw}
		}
		if strings.HasPrefix(m[2], "week") {
			n *= 7
		}
		return midnight.AddDate(0, 0, n), nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, strings.TrimSpace(raw), ref.Location()); err == nil {
			return t, nil
		}
	}

	return time.Time{}, &ParseError{Input: raw}
}

// nextWeekday returns the next occurrence of wd strictly after from.
func nextWeekday(from time.Time, wd time.Weekday) time.Time {
	days := (int(wd) - int(from.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return from.AddDate(0, 0, days)
}

// parseClock resolves the time portion. Supported forms: 12-hour with
// meridiem ("3pm", "3:30 PM"), 24-hour ("15:04"), "noon", "midnight".
func parseClock(text string) (hour, minute int, err error) {
	raw := text
	text = strings.ToLower(strings.TrimSpace(text))

	switch text {
	case "noon":
		return 12, 0, nil
	case "midnight":
		return 0, 0, nil
	}

	if m := clock12Re.FindStringSubmatch(text); m != nil {
		hour, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour < 1 || hour > 12 || minute > 59 {
			return 0, 0, &ParseError{Input: raw}
		}
		if hour == 12 {
			hour = 0
		}
		if m[3] == "pm" {
			hour += 12
		}
		return hour, minute, nil
	}

	if m := clock24Re.FindStringSubmatch(text); m != nil {
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return 0, 0, &ParseError{Input: raw}
		}
		return hour, minute, nil
	}

	return 0, 0, &ParseError{Input: raw}
}
