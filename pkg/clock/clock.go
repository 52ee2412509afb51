package clock

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	// Embed the IANA database so zone lookup works without a system
	// zoneinfo directory.
	_ "time/tzdata"

	"github.com/dustin/go-humanize"
)

// DefaultFormat is the output pattern used when a caller does not supply one.
const DefaultFormat = "YYYY-MM-DD HH:mm:ss"

// Tool input failures. The MCP layer reports these as tool-level errors,
// never as protocol errors.
var (
	ErrInvalidTimezone = errors.New("invalid timezone")
	ErrInvalidFormat   = errors.New("invalid format")
	ErrInvalidTime     = errors.New("invalid time")
	ErrInvalidDate     = errors.New("invalid date")
)

// Service performs the date/time computations behind the MCP tools.
// The clock source and the local zone name are injected so tests can pin
// both; production code uses New.
type Service struct {
	now       func() time.Time
	localZone string
}

// New returns a Service running on the wall clock, with the local zone
// guessed from the environment.
func New() *Service {
	return &Service{now: time.Now, localZone: guessLocalZone()}
}

// NewWithClock returns a Service with a fixed clock and local zone.
func NewWithClock(now func() time.Time, localZone string) *Service {
	return &Service{now: now, localZone: localZone}
}

// guessLocalZone returns a best-effort IANA name for the process's zone.
func guessLocalZone() string {
	if tz := os.Getenv("TZ"); tz != "" {
		return tz
	}
	if name := time.Local.String(); name != "" && name != "Local" {
		return name
	}
	return "UTC"
}

func loadZone(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a recognized IANA timezone", ErrInvalidTimezone, name)
	}
	return loc, nil
}

// acceptedLayouts are tried in order when parsing caller-supplied times.
var acceptedLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseInZone(value string, loc *time.Location) (time.Time, error) {
	for _, layout := range acceptedLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a date/time", value)
}

func (s *Service) localLocation() *time.Location {
	loc, err := time.LoadLocation(s.localZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CurrentTimeResult is the current_time tool payload.
type CurrentTimeResult struct {
	UTCTime   string `json:"utcTime"`
	LocalTime string `json:"localTime"`
	Timezone  string `json:"timezone"`
}

// CurrentTime formats the current instant in UTC and in the requested zone.
// An empty timezone means the guessed local zone; an empty format means
// DefaultFormat.
func (s *Service) CurrentTime(format, timezone string) (CurrentTimeResult, error) {
	if timezone == "" {
		timezone = s.localZone
	}
	loc, err := loadZone(timezone)
	if err != nil {
		return CurrentTimeResult{}, err
	}
	if format == "" {
		format = DefaultFormat
	}
	layout, err := translateFormat(format)
	if err != nil {
		return CurrentTimeResult{}, err
	}

	now := s.now()
	return CurrentTimeResult{
		UTCTime:   now.UTC().Format(layout),
		LocalTime: now.In(loc).Format(layout),
		Timezone:  timezone,
	}, nil
}

// RelativeTimeResult is the relative_time tool payload.
type RelativeTimeResult struct {
	RelativeTime string `json:"relativeTime"`
}

// RelativeTime phrases the given time relative to now, e.g. "in 5 minutes"
// or "2 hours ago".
func (s *Service) RelativeTime(value string) (RelativeTimeResult, error) {
	if strings.TrimSpace(value) == "" {
		return RelativeTimeResult{}, fmt.Errorf("%w: time is required", ErrInvalidTime)
	}
	t, err := parseInZone(value, s.localLocation())
	if err != nil {
		return RelativeTimeResult{}, fmt.Errorf("%w: %v", ErrInvalidTime, err)
	}

	now := s.now()
	mags := pastMagnitudes
	if t.After(now) {
		mags = futureMagnitudes
	}
	return RelativeTimeResult{RelativeTime: humanize.CustomRelTime(t, now, "", "", mags)}, nil
}

const day = 24 * time.Hour

// relMagnitudes builds a magnitude table whose phrases are wrapped for one
// time direction. Thresholds are tuned so truncating division never yields
// a plural count of one.
func relMagnitudes(wrap func(string) string) []humanize.RelTimeMagnitude {
	return []humanize.RelTimeMagnitude{
		{D: 45 * time.Second, Format: wrap("a few seconds"), DivBy: time.Second},
		{D: 2 * time.Minute, Format: wrap("a minute"), DivBy: 1},
		{D: time.Hour, Format: wrap("%d minutes"), DivBy: time.Minute},
		{D: 2 * time.Hour, Format: wrap("an hour"), DivBy: 1},
		{D: day, Format: wrap("%d hours"), DivBy: time.Hour},
		{D: 2 * day, Format: wrap("a day"), DivBy: 1},
		{D: 30 * day, Format: wrap("%d days"), DivBy: day},
		{D: 60 * day, Format: wrap("a month"), DivBy: 1},
		{D: 365 * day, Format: wrap("%d months"), DivBy: 30 * day},
		{D: 2 * 365 * day, Format: wrap("a year"), DivBy: 1},
		{D: math.MaxInt64, Format: wrap("%d years"), DivBy: 365 * day},
	}
}

var (
	pastMagnitudes   = relMagnitudes(func(s string) string { return s + " ago" })
	futureMagnitudes = relMagnitudes(func(s string) string { return "in " + s })
)

// DaysInMonthResult is the days_in_month tool payload.
type DaysInMonthResult struct {
	Days int `json:"days"`
}

// DaysInMonth returns the day count of the month containing date, or of the
// current month when date is empty.
func (s *Service) DaysInMonth(date string) (DaysInMonthResult, error) {
	t := s.now()
	if date != "" {
		var err error
		t, err = parseInZone(date, s.localLocation())
		if err != nil {
			return DaysInMonthResult{}, fmt.Errorf("%w: %v", ErrInvalidDate, err)
		}
	}
	// Day zero of the next month is the last day of this one.
	last := time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
	return DaysInMonthResult{Days: last.Day()}, nil
}

// TimestampResult is the get_timestamp tool payload.
type TimestampResult struct {
	Timestamp int64 `json:"timestamp"`
}

// Timestamp returns epoch milliseconds for value, or for now when empty.
func (s *Service) Timestamp(value string) (TimestampResult, error) {
	if value == "" {
		return TimestampResult{Timestamp: s.now().UnixMilli()}, nil
	}
	t, err := parseInZone(value, s.localLocation())
	if err != nil {
		return TimestampResult{}, fmt.Errorf("%w: %v", ErrInvalidTime, err)
	}
	return TimestampResult{Timestamp: t.UnixMilli()}, nil
}

// ConvertTimeResult is the convert_time tool payload.
type ConvertTimeResult struct {
	ConvertedTime  string `json:"convertedTime"`
	HourDifference int    `json:"hourDifference"`
}

// ConvertTime interprets value as wall-clock time in sourceZone, renders it
// in targetZone, and reports the rounded whole-hour offset difference
// between the two zones at that instant.
func (s *Service) ConvertTime(value, sourceZone, targetZone string) (ConvertTimeResult, error) {
	if strings.TrimSpace(value) == "" {
		return ConvertTimeResult{}, fmt.Errorf("%w: time is required", ErrInvalidTime)
	}
	if sourceZone == "" || targetZone == "" {
		return ConvertTimeResult{}, fmt.Errorf("%w: sourceTimezone and targetTimezone are required", ErrInvalidTimezone)
	}
	src, err := loadZone(sourceZone)
	if err != nil {
		return ConvertTimeResult{}, err
	}
	dst, err := loadZone(targetZone)
	if err != nil {
		return ConvertTimeResult{}, err
	}
	t, err := parseInZone(value, src)
	if err != nil {
		return ConvertTimeResult{}, fmt.Errorf("%w: %v", ErrInvalidTime, err)
	}

	converted := t.In(dst)
	_, srcOffset := t.Zone()
	_, dstOffset := converted.Zone()
	diff := int(math.Round(float64(dstOffset-srcOffset) / 3600))

	layout, _ := translateFormat(DefaultFormat)
	return ConvertTimeResult{
		ConvertedTime:  converted.Format(layout),
		HourDifference: diff,
	}, nil
}

// WeekYearResult is the get_week_year tool payload.
type WeekYearResult struct {
	Week    int `json:"week"`
	ISOWeek int `json:"isoWeek"`
}

// WeekYear returns the Sunday-start, January-1-anchored week number and the
// ISO-8601 week number for date, or for today when date is empty.
func (s *Service) WeekYear(date string) (WeekYearResult, error) {
	t := s.now()
	if date != "" {
		var err error
		t, err = parseInZone(date, s.localLocation())
		if err != nil {
			return WeekYearResult{}, fmt.Errorf("%w: %v", ErrInvalidDate, err)
		}
	}

	jan1 := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	week := (t.YearDay()-1+int(jan1.Weekday()))/7 + 1
	_, isoWeek := t.ISOWeek()
	return WeekYearResult{Week: week, ISOWeek: isoWeek}, nil
}
