// Package timedate implements a bit-packed calendar timestamp.
//
// A TimeAndDate is a 64-bit word plus an 8-bit side-car. The word holds, from
// the low end up: nanosecond (30 bits), minute (6), hour (5), ordinal day (9),
// year (12). The side-car holds the second. Field widths are derived from the
// field maxima through bitstash, so the layout is reproducible by any
// consumer that knows the maxima. Persisted forms must fix little-endian for
// the word.
//
// Leap seconds are represented by Second() == 60; the packed nanosecond field
// never exceeds 999,999,999.
package timedate

import (
	"fmt"
	"time"

	"takarum/internal/bitstash"
)

// Field maxima. Widths follow from bitstash.NumberOfBits: 30+6+5+9+12 = 62
// bits used in the word.
const (
	MaxYear       = 4095
	MaxOrdinal    = 366
	MaxHour       = 23
	MaxMinute     = 59
	MaxSecond     = 60 // 60 only on a leap second
	MaxNanosecond = 999_999_999
)

// Field shifts within the word, each the sum of the widths below it.
const (
	nanosecondShift = 0
	minuteShift     = 30
	hourShift       = 36
	ordinalShift    = 41
	yearShift       = 50
)

// TimeAndDate is an instant with calendar-field accessors. The zero value is
// year 0, ordinal 0, midnight; note ordinal 0 is outside the valid 1..366
// range, so a zero TimeAndDate never equals a constructed one.
type TimeAndDate struct {
	word   uint64
	second uint8
}

// New builds a timestamp at the top of the given minute.
func New(year, ordinal, hour, minute uint) (TimeAndDate, error) {
	return NewWithNanos(year, ordinal, hour, minute, 0, 0)
}

// NewWithNanos builds a fully specified timestamp. Each field must lie in its
// declared range (year 0..4095, ordinal 1..366, hour 0..23, minute 0..59,
// second 0..60, nanosecond 0..999999999); second 60 marks a leap second.
func NewWithNanos(year, ordinal, hour, minute, second, nanosecond uint) (TimeAndDate, error) {
	switch {
	case year > MaxYear:
		return TimeAndDate{}, fmt.Errorf("timedate: year %d out of range 0..%d", year, MaxYear)
	case ordinal < 1 || ordinal > MaxOrdinal:
		return TimeAndDate{}, fmt.Errorf("timedate: ordinal %d out of range 1..%d", ordinal, MaxOrdinal)
	case hour > MaxHour:
		return TimeAndDate{}, fmt.Errorf("timedate: hour %d out of range 0..%d", hour, MaxHour)
	case minute > MaxMinute:
		return TimeAndDate{}, fmt.Errorf("timedate: minute %d out of range 0..%d", minute, MaxMinute)
	case second > MaxSecond:
		return TimeAndDate{}, fmt.Errorf("timedate: second %d out of range 0..%d", second, MaxSecond)
	case nanosecond > MaxNanosecond:
		return TimeAndDate{}, fmt.Errorf("timedate: nanosecond %d out of range 0..%d", nanosecond, MaxNanosecond)
	}
	return pack(year, ordinal, hour, minute, second, nanosecond), nil
}

// pack stashes the fields into the word, most significant first, so that the
// final layout has the nanosecond in the low bits.
func pack(year, ordinal, hour, minute, second, nanosecond uint) TimeAndDate {
	acc := uint64(year)
	acc = bitstash.AddToRight(acc, uint64(ordinal), MaxOrdinal)
	acc = bitstash.AddToRight(acc, uint64(hour), MaxHour)
	acc = bitstash.AddToRight(acc, uint64(minute), MaxMinute)
	acc = bitstash.AddToRight(acc, uint64(nanosecond), MaxNanosecond)
	return TimeAndDate{word: acc, second: uint8(second)}
}

// nowFn is a test seam for Now.
var nowFn = time.Now

// Now reads the local clock. The Go runtime never reports second 60, so Now
// cannot observe a leap second.
func Now() TimeAndDate {
	t := nowFn()
	hour, minute, second := t.Clock()
	return pack(
		uint(t.Year()),
		uint(t.YearDay()),
		uint(hour),
		uint(minute),
		uint(second),
		uint(t.Nanosecond()),
	)
}

// Year returns the calendar year, 0..4095.
func (t TimeAndDate) Year() uint {
	return uint(bitstash.Read(t.word, bitstash.NumberOfBits(MaxYear), yearShift))
}

// Ordinal returns the day of year, 1..366.
func (t TimeAndDate) Ordinal() uint {
	return uint(bitstash.Read(t.word, bitstash.NumberOfBits(MaxOrdinal), ordinalShift))
}

// Hour returns the hour of day, 0..23.
func (t TimeAndDate) Hour() uint {
	return uint(bitstash.Read(t.word, bitstash.NumberOfBits(MaxHour), hourShift))
}

// Minute returns the minute, 0..59.
func (t TimeAndDate) Minute() uint {
	return uint(bitstash.Read(t.word, bitstash.NumberOfBits(MaxMinute), minuteShift))
}

// Second returns the second, 0..60 (60 on a leap second).
func (t TimeAndDate) Second() uint {
	return uint(t.second)
}

// Nanosecond returns the sub-second component, 0..999999999.
func (t TimeAndDate) Nanosecond() uint {
	return uint(bitstash.Read(t.word, bitstash.NumberOfBits(MaxNanosecond), nanosecondShift))
}

// Words exposes the raw packed representation for persistence. Consumers
// writing it to disk must fix little-endian byte order for the word.
func (t TimeAndDate) Words() (word uint64, second uint8) {
	return t.word, t.second
}

// FromWords reassembles a TimeAndDate persisted via Words. No range
// validation is performed; the caller vouches for the source.
func FromWords(word uint64, second uint8) TimeAndDate {
	return TimeAndDate{word: word, second: second}
}

// Compare orders lexicographically on (year, ordinal, hour, minute, second,
// nanosecond), returning -1, 0, or 1. The word layout makes everything above
// the nanosecond directly comparable; the second is spliced in between.
func (t TimeAndDate) Compare(other TimeAndDate) int {
	if c := compareUint64(t.word>>minuteShift, other.word>>minuteShift); c != 0 {
		return c
	}
	if c := compareUint64(uint64(t.second), uint64(other.second)); c != 0 {
		return c
	}
	return compareUint64(uint64(t.Nanosecond()), uint64(other.Nanosecond()))
}

// Before reports whether t is strictly earlier than other.
func (t TimeAndDate) Before(other TimeAndDate) bool { return t.Compare(other) < 0 }

// After reports whether t is strictly later than other.
func (t TimeAndDate) After(other TimeAndDate) bool { return t.Compare(other) > 0 }

// Equal reports whether t and other denote the same instant.
func (t TimeAndDate) Equal(other TimeAndDate) bool { return t.Compare(other) == 0 }

// OneMoreNanosecond returns the timestamp one nanosecond later, wrapping the
// time-of-day fields within the day. At 23:59:59.999999999 the time of day
// wraps to 00:00:00.0 without advancing the ordinal: day rollover is outside
// this type's contract. A leap second (second 60) wraps into the next minute
// the same way an ordinary second 59 would.
func (t TimeAndDate) OneMoreNanosecond() TimeAndDate {
	year, ordinal := t.Year(), t.Ordinal()
	hour, minute, second := t.Hour(), t.Minute(), t.Second()
	nanosecond := t.Nanosecond() + 1

	if nanosecond > MaxNanosecond {
		nanosecond = 0
		second++
		// A leap second 60 exists only when constructed explicitly, so an
		// increment landing on 60 (or leaving a constructed 60 behind) rolls
		// into the next minute.
		if second >= MaxSecond {
			second = 0
			minute++
		}
		if minute > MaxMinute {
			minute = 0
			hour++
		}
		if hour > MaxHour {
			hour = 0
		}
	}
	return pack(year, ordinal, hour, minute, second, nanosecond)
}

func compareUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (t TimeAndDate) String() string {
	return fmt.Sprintf("%04d-%03d %02d:%02d:%02d.%09d",
		t.Year(), t.Ordinal(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond())
}
