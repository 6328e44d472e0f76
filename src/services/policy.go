package services

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const (
	defaultCancellationWindow = 24 * time.Hour
	defaultExchangeWindow     = 48 * time.Hour
	maxPolicyDays             = 3650
)

var (
	daysPattern  = regexp.MustCompile(`(?i)(\d+)\s*-?\s*days?\b`)
	hoursPattern = regexp.MustCompile(`(?i)(\d+)\s*-?\s*(?:hours?|hrs?)\b`)
)

// CancellationWindow reads the first "N day(s)" token of a free-text policy.
// Events without one use one day.
func CancellationWindow(policy string) time.Duration {
	if n, ok := firstNumber(daysPattern, policy); ok {
		return days(n)
	}
	return defaultCancellationWindow
}

// ExchangeWindow reads the first "N hour(s)" token, then "N day(s)", and
// falls back to 48 hours.
func ExchangeWindow(policy string) time.Duration {
	if n, ok := firstNumber(hoursPattern, policy); ok {
		return hours(n)
	}
	if n, ok := firstNumber(daysPattern, policy); ok {
		return days(n)
	}
	return defaultExchangeWindow
}

func firstNumber(re *regexp.Regexp, s string) (int, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		// only overflow gets here; days and hours clamp it
		return maxPolicyDays * 24, true
	}
	return n, true
}

func days(n int) time.Duration {
	return time.Duration(min(n, maxPolicyDays)) * 24 * time.Hour
}

func hours(n int) time.Duration {
	return time.Duration(min(n, maxPolicyDays*24)) * time.Hour
}

// withinWindow reports whether now is already inside window of the event start.
func withinWindow(now, eventAt time.Time, window time.Duration) bool {
	return !now.Add(window).Before(eventAt)
}

func describeWindow(d time.Duration) string {
	hours := int(d / time.Hour)
	if hours%24 == 0 {
		days := hours / 24
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
