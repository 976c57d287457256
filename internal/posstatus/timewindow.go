package posstatus

import (
	"fmt"
	"regexp"
	"time"

	"github.com/sejinpark/posportal-backend/pkg/enums"
	pkgerrors "github.com/sejinpark/posportal-backend/pkg/errors"
)

const minutesPerDay = 24 * 60

var clockRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// AutoScheduleSettings configures the operating-hours automation for a store.
// AutoOpen and AutoClose are independently meaningful: open-only or close-only
// automation is honored.
type AutoScheduleSettings struct {
	AutoOpen      bool   `json:"autoOpen"`
	AutoOpenTime  string `json:"autoOpenTime"`
	AutoClose     bool   `json:"autoClose"`
	AutoCloseTime string `json:"autoCloseTime"`
}

// Enabled reports whether any automation is switched on.
func (s AutoScheduleSettings) Enabled() bool {
	return s.AutoOpen || s.AutoClose
}

// Validate checks the clock strings for every enabled automation and rejects
// equal open/close times when both are enabled.
func (s AutoScheduleSettings) Validate() error {
	fields := []FieldError{}
	if s.AutoOpen {
		if _, err := parseClock(s.AutoOpenTime); err != nil {
			fields = append(fields, FieldError{Field: "autoOpenTime", Message: err.Error()})
		}
	}
	if s.AutoClose {
		if _, err := parseClock(s.AutoCloseTime); err != nil {
			fields = append(fields, FieldError{Field: "autoCloseTime", Message: err.Error()})
		}
	}
	if len(fields) == 0 && s.AutoOpen && s.AutoClose && s.AutoOpenTime == s.AutoCloseTime {
		fields = append(fields, FieldError{Field: "autoCloseTime", Message: "must differ from autoOpenTime"})
	}
	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid auto schedule settings").WithDetails(fields)
	}
	return nil
}

// parseClock converts a strict "HH:mm" string into minutes since midnight.
func parseClock(value string) (int, error) {
	m := clockRe.FindStringSubmatch(value)
	if m == nil {
		return 0, fmt.Errorf("invalid time %q (expected HH:mm)", value)
	}
	var hours, minutes int
	fmt.Sscanf(m[1], "%d", &hours)
	fmt.Sscanf(m[2], "%d", &minutes)
	return hours*60 + minutes, nil
}

// minuteOfDay truncates the instant to UTC minutes since midnight. Seconds are
// deliberately ignored; the evaluator works at minute granularity.
func minuteOfDay(now time.Time) int {
	utc := now.UTC()
	return utc.Hour()*60 + utc.Minute()
}

// DetermineStatus decides the expected status for "now", or nil when the
// owner has not opted into enough automation to force a status. Malformed
// settings also yield nil; the evaluator never guesses from bad input.
func DetermineStatus(settings AutoScheduleSettings, now time.Time) *enums.PosStatus {
	if !settings.Enabled() || settings.Validate() != nil {
		return nil
	}

	current := minuteOfDay(now)

	if settings.AutoOpen && settings.AutoClose {
		open, _ := parseClock(settings.AutoOpenTime)
		close, _ := parseClock(settings.AutoCloseTime)
		var inside bool
		if close > open {
			inside = current >= open && current < close
		} else {
			// window crosses midnight
			inside = current >= open || current < close
		}
		status := enums.PosStatusClosed
		if inside {
			status = enums.PosStatusOpen
		}
		return &status
	}

	// Single-boundary automation only forces a status once its boundary has
	// passed today; before that there is no decision.
	if settings.AutoOpen {
		open, _ := parseClock(settings.AutoOpenTime)
		if current >= open {
			status := enums.PosStatusOpen
			return &status
		}
		return nil
	}

	close, _ := parseClock(settings.AutoCloseTime)
	if current >= close {
		status := enums.PosStatusClosed
		return &status
	}
	return nil
}

// NextBoundaryDelay computes the delay until the next enabled boundary
// crossing, wrapping to the next day when today's boundary has passed.
// Returns nil when there is nothing to schedule.
func NextBoundaryDelay(settings AutoScheduleSettings, now time.Time) *time.Duration {
	if !settings.Enabled() || settings.Validate() != nil {
		return nil
	}

	current := minuteOfDay(now)
	best := -1

	consider := func(boundary int) {
		distance := (boundary - current) % minutesPerDay
		if distance <= 0 {
			distance += minutesPerDay
		}
		if best < 0 || distance < best {
			best = distance
		}
	}

	if settings.AutoOpen {
		open, _ := parseClock(settings.AutoOpenTime)
		consider(open)
	}
	if settings.AutoClose {
		close, _ := parseClock(settings.AutoCloseTime)
		consider(close)
	}

	delay := time.Duration(best) * time.Minute
	return &delay
}
