// Package datetime formats timestamps for control-panel display according to
// a small per-plugin configuration: 12/24 hour clock, month style, date
// component order and separator, all rendered in a configured timezone.
package datetime

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// TimeFormat selects the clock style.
type TimeFormat string

// MonthFormat selects how the month is rendered.
type MonthFormat string

// DateOrder selects the order of day, month and year.
type DateOrder string

const (
	Clock12 TimeFormat = "12"
	Clock24 TimeFormat = "24"

	MonthNumeric MonthFormat = "numeric"
	MonthShort   MonthFormat = "short"
	MonthLong    MonthFormat = "long"

	OrderDMY DateOrder = "dmy"
	OrderMDY DateOrder = "mdy"
	OrderYMD DateOrder = "ymd"
)

// ErrInvalidConfig is wrapped by Config.Validate failures.
var ErrInvalidConfig = errors.New("datetime: invalid config")

var allowedSeparators = map[string]struct{}{"/": {}, ".": {}, "-": {}, " ": {}}

// Config is the per-plugin display configuration. Zero values take defaults.
type Config struct {
	TimeFormat    TimeFormat  `json:"timeFormat" mapstructure:"timeFormat" yaml:"timeFormat"`
	MonthFormat   MonthFormat `json:"monthFormat" mapstructure:"monthFormat" yaml:"monthFormat"`
	DateOrder     DateOrder   `json:"dateOrder" mapstructure:"dateOrder" yaml:"dateOrder"`
	DateSeparator string      `json:"dateSeparator" mapstructure:"dateSeparator" yaml:"dateSeparator"`
	Timezone      string      `json:"timezone" mapstructure:"timezone" yaml:"timezone"`
	ShowSeconds   bool        `json:"showSeconds" mapstructure:"showSeconds" yaml:"showSeconds"`
}

// DefaultConfig returns 24h, numeric months, day-month-year, "/" and UTC.
func DefaultConfig() Config {
	return Config{
		TimeFormat:    Clock24,
		MonthFormat:   MonthNumeric,
		DateOrder:     OrderDMY,
		DateSeparator: "/",
		Timezone:      "UTC",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TimeFormat == "" {
		c.TimeFormat = d.TimeFormat
	}
	if c.MonthFormat == "" {
		c.MonthFormat = d.MonthFormat
	}
	if c.DateOrder == "" {
		c.DateOrder = d.DateOrder
	}
	if c.DateSeparator == "" {
		c.DateSeparator = d.DateSeparator
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	return c
}

// Validate rejects unknown enum values, separators and timezones.
func (c Config) Validate() error {
	c = c.withDefaults()
	switch c.TimeFormat {
	case Clock12, Clock24:
	default:
		return fmt.Errorf("%w: time format %q", ErrInvalidConfig, c.TimeFormat)
	}
	switch c.MonthFormat {
	case MonthNumeric, MonthShort, MonthLong:
	default:
		return fmt.Errorf("%w: month format %q", ErrInvalidConfig, c.MonthFormat)
	}
	switch c.DateOrder {
	case OrderDMY, OrderMDY, OrderYMD:
	default:
		return fmt.Errorf("%w: date order %q", ErrInvalidConfig, c.DateOrder)
	}
	if _, ok := allowedSeparators[c.DateSeparator]; !ok {
		return fmt.Errorf("%w: separator %q", ErrInvalidConfig, c.DateSeparator)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	return nil
}

// Formatter renders times according to a validated Config.
type Formatter struct {
	cfg        Config
	loc        *time.Location
	dateLayout string
	timeLayout string
}

// New validates cfg and precomputes layouts.
func New(cfg Config) (*Formatter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	return &Formatter{cfg: cfg, loc: loc, dateLayout: dateLayout(cfg), timeLayout: timeLayout(cfg)}, nil
}

// MustNew is New for static configuration; it panics on error.
func MustNew(cfg Config) *Formatter {
	f, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return f
}

// Config returns the effective configuration.
func (f *Formatter) Config() Config { return f.cfg }

// Location returns the display timezone.
func (f *Formatter) Location() *time.Location { return f.loc }

// DateLayout returns the Go layout used by FormatDate.
func (f *Formatter) DateLayout() string { return f.dateLayout }

// TimeLayout returns the Go layout used by FormatTime.
func (f *Formatter) TimeLayout() string { return f.timeLayout }

// DateTimeLayout joins the date and time layouts.
func (f *Formatter) DateTimeLayout() string { return f.dateLayout + " " + f.timeLayout }

// In converts t to the display timezone.
func (f *Formatter) In(t time.Time) time.Time { return t.In(f.loc) }

// FormatDate renders the date part of t; zero times render as "".
func (f *Formatter) FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return f.In(t).Format(f.dateLayout)
}

// FormatTime renders the time part of t; zero times render as "".
func (f *Formatter) FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return f.In(t).Format(f.timeLayout)
}

// FormatDateTime renders date and time; zero times render as "".
func (f *Formatter) FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return f.In(t).Format(f.DateTimeLayout())
}

// ParseDate parses s with the date layout in the display timezone.
func (f *Formatter) ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(f.dateLayout, strings.TrimSpace(s), f.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// ParseDateTime parses s with the date-time layout in the display timezone.
func (f *Formatter) ParseDateTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(f.DateTimeLayout(), strings.TrimSpace(s), f.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse datetime %q: %w", s, err)
	}
	return t, nil
}

// Relative describes t relative to now, e.g. "3 hours ago".
func Relative(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func dateLayout(c Config) string {
	var day, month, year = "02", "01", "2006"
	switch c.MonthFormat {
	case MonthShort:
		month = "Jan"
	case MonthLong:
		month = "January"
	}
	if c.MonthFormat == MonthNumeric {
		sep := c.DateSeparator
		switch c.DateOrder {
		case OrderMDY:
			return month + sep + day + sep + year
		case OrderYMD:
			return year + sep + month + sep + day
		default:
			return day + sep + month + sep + year
		}
	}
	switch c.DateOrder {
	case OrderMDY:
		return month + " " + day + ", " + year
	case OrderYMD:
		return year + " " + month + " " + day
	default:
		return day + " " + month + " " + year
	}
}

func timeLayout(c Config) string {
	if c.TimeFormat == Clock12 {
		if c.ShowSeconds {
			return "3:04:05 PM"
		}
		return "3:04 PM"
	}
	if c.ShowSeconds {
		return "15:04:05"
	}
	return "15:04"
}
