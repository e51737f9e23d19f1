package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Clock is a wall-clock time expressed in minutes since midnight.
type Clock int

// ParseClock parses "HH:MM" into a Clock.
func ParseClock(raw string) (Clock, error) {
	raw = strings.TrimSpace(raw)
	parts := strings.Split(raw, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock %q: expected HH:MM", raw)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 24 {
		return 0, fmt.Errorf("invalid clock %q: bad hour", raw)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid clock %q: bad minute", raw)
	}
	if hours == 24 && minutes != 0 {
		return 0, fmt.Errorf("invalid clock %q: past midnight", raw)
	}
	return Clock(hours*60 + minutes), nil
}

// MustClock parses raw and panics on failure. Intended for fixtures and constants.
func MustClock(raw string) Clock {
	c, err := ParseClock(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// String renders the clock as HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// MarshalJSON encodes the clock as "HH:MM".
func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts "HH:MM" strings or raw minute counts.
func (c *Clock) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		var minutes int
		if numErr := json.Unmarshal(data, &minutes); numErr != nil {
			return fmt.Errorf("clock must be HH:MM: %w", err)
		}
		*c = Clock(minutes)
		return nil
	}
	parsed, err := ParseClock(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// WeekParity expresses whether a slot recurs every week or on alternating weeks.
type WeekParity string

const (
	ParityEvery WeekParity = "EVERY"
	ParityOdd   WeekParity = "ODD"
	ParityEven  WeekParity = "EVEN"
)

// Compatible reports whether two parities can fall in the same week.
func (p WeekParity) Compatible(other WeekParity) bool {
	if p == "" || other == "" || p == ParityEvery || other == ParityEvery {
		return true
	}
	return p == other
}

// TimeSlot is an immutable bookable interval on a weekday.
type TimeSlot struct {
	ID        string     `json:"id"`
	DayOfWeek int        `json:"dayOfWeek"`
	Start     Clock      `json:"start"`
	End       Clock      `json:"end"`
	Parity    WeekParity `json:"parity"`
}

// Overlaps reports whether two slots share any instant in a common week.
func (t TimeSlot) Overlaps(other TimeSlot) bool {
	if t.DayOfWeek != other.DayOfWeek {
		return false
	}
	if !t.Parity.Compatible(other.Parity) {
		return false
	}
	return t.Start < other.End && other.Start < t.End
}

// Validate checks structural soundness of the slot.
func (t TimeSlot) Validate() error {
	if t.DayOfWeek < 1 || t.DayOfWeek > 7 {
		return fmt.Errorf("dayOfWeek must be between 1 and 7")
	}
	if t.End <= t.Start {
		return fmt.Errorf("slot end %s must be after start %s", t.End, t.Start)
	}
	switch t.Parity {
	case "", ParityEvery, ParityOdd, ParityEven:
	default:
		return fmt.Errorf("unsupported week parity %q", t.Parity)
	}
	return nil
}

// Key returns a stable identity for value comparisons; the ID when set, otherwise the interval.
func (t TimeSlot) Key() string {
	if t.ID != "" {
		return t.ID
	}
	parity := t.Parity
	if parity == "" {
		parity = ParityEvery
	}
	return fmt.Sprintf("%d-%s-%s-%s", t.DayOfWeek, t.Start, t.End, parity)
}

// Minutes returns the slot length.
func (t TimeSlot) Minutes() int {
	return int(t.End - t.Start)
}

var dayNames = map[int]string{
	1: "MONDAY",
	2: "TUESDAY",
	3: "WEDNESDAY",
	4: "THURSDAY",
	5: "FRIDAY",
	6: "SATURDAY",
	7: "SUNDAY",
}

// DayName returns the upper-case weekday name for 1..7.
func DayName(day int) string {
	if name, ok := dayNames[day]; ok {
		return name
	}
	return ""
}
