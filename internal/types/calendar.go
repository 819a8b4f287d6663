package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// DayState is the activity state of one calendar day.
type DayState int8

const (
	// DayFuture is a day that has not occurred yet (JSON null).
	DayFuture DayState = iota
	// DayMissed is an elapsed day with no recorded activity (JSON false).
	DayMissed
	// DayPlayed is a day with confirmed activity (JSON true).
	DayPlayed
)

// MonthlyCalendar maps each day of a month (1..len(Days)) to its state.
// It marshals to {"1": true, "2": false, "3": null, ...} in day order.
type MonthlyCalendar struct {
	Days []DayState
}

// Len returns the number of days in the calendar's month.
func (c MonthlyCalendar) Len() int {
	return len(c.Days)
}

// Day returns the state of a 1-based day. Out-of-range days report DayFuture.
func (c MonthlyCalendar) Day(day int) DayState {
	if day < 1 || day > len(c.Days) {
		return DayFuture
	}
	return c.Days[day-1]
}

// Counts returns the number of played, missed and future days.
func (c MonthlyCalendar) Counts() (played, missed, future int) {
	for _, d := range c.Days {
		switch d {
		case DayPlayed:
			played++
		case DayMissed:
			missed++
		default:
			future++
		}
	}
	return played, missed, future
}

// MarshalJSON writes the calendar as an object keyed by day number.
func (c MonthlyCalendar) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range c.Days {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strconv.Itoa(i + 1))
		buf.WriteString(`":`)
		switch d {
		case DayPlayed:
			buf.WriteString("true")
		case DayMissed:
			buf.WriteString("false")
		default:
			buf.WriteString("null")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the object form written by MarshalJSON.
func (c *MonthlyCalendar) UnmarshalJSON(data []byte) error {
	var raw map[string]*bool
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	days := make([]DayState, len(raw))
	for key, v := range raw {
		day, err := strconv.Atoi(key)
		if err != nil || day < 1 || day > len(raw) {
			return fmt.Errorf("invalid calendar day %q", key)
		}
		switch {
		case v == nil:
			days[day-1] = DayFuture
		case *v:
			days[day-1] = DayPlayed
		default:
			days[day-1] = DayMissed
		}
	}
	c.Days = days
	return nil
}
