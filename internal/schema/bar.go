package schema

import (
	"strings"
	"time"

	"github.com/yanun0323/errors"

	"main/pkg/exception"
)

// Accepted bar timestamp layouts. Feeds disagree on the separator between
// date and time, so all three are tried by shape.
const (
	barTimeCompact       = "20060102 15:04:05"
	barTimeCompactDouble = "20060102  15:04:05"
	barTimeDashed        = "2006-01-02 15:04:05"
)

// WireBar is the OHLCV record as it appears on the wire. Time stays a
// string until normalized.
type WireBar struct {
	Time   string  `json:"Time"`
	Open   float64 `json:"Open"`
	Close  float64 `json:"Close"`
	High   float64 `json:"High"`
	Low    float64 `json:"Low"`
	Volume int64   `json:"Volume"`
}

// PriceBar is one normalized OHLCV sample. Constructed once from a wire
// record and never mutated.
type PriceBar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// ParseBarTime normalizes a wire timestamp. Three shapes are accepted:
// "YYYYMMDD HH:MM:SS" with one or two separating spaces, and
// "YYYY-MM-DD HH:MM:SS" (or the same with slashes).
func ParseBarTime(s string) (time.Time, error) {
	switch len(s) {
	case len(barTimeCompact):
		t, err := time.Parse(barTimeCompact, s)
		if err != nil {
			return time.Time{}, errors.Wrap(exception.ErrMalformedFrame, err.Error())
		}
		return t, nil
	case len(barTimeCompactDouble):
		t, err := time.Parse(barTimeCompactDouble, s)
		if err != nil {
			return time.Time{}, errors.Wrap(exception.ErrMalformedFrame, err.Error())
		}
		return t, nil
	default:
		t, err := time.Parse(barTimeDashed, strings.ReplaceAll(s, "/", "-"))
		if err != nil {
			return time.Time{}, errors.Wrap(exception.ErrMalformedFrame, err.Error())
		}
		return t, nil
	}
}

// FormatBarTime renders a timestamp in the dashed wire layout.
func FormatBarTime(t time.Time) string {
	return t.Format(barTimeDashed)
}

// Normalize converts a wire bar into a PriceBar.
func (w WireBar) Normalize() (PriceBar, error) {
	t, err := ParseBarTime(w.Time)
	if err != nil {
		return PriceBar{}, err
	}
	return PriceBar{
		Time:   t,
		Open:   w.Open,
		High:   w.High,
		Low:    w.Low,
		Close:  w.Close,
		Volume: w.Volume,
	}, nil
}

// Wire converts a PriceBar back into its wire representation.
func (b PriceBar) Wire() WireBar {
	return WireBar{
		Time:   FormatBarTime(b.Time),
		Open:   b.Open,
		Close:  b.Close,
		High:   b.High,
		Low:    b.Low,
		Volume: b.Volume,
	}
}
