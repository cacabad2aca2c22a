package sla

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spec-kit/lifecycle-engine/internal/domain"
)

// DefaultHorizonDays bounds forward business-hours projection. A budget
// that cannot be placed within the horizon indicates a contradictory
// policy (e.g. business hours enforced with no windows configured).
const DefaultHorizonDays = 730

// ErrHorizonExceeded is returned when a projection walks past the horizon
// without exhausting its minute budget.
var ErrHorizonExceeded = errors.New("business-hours projection exceeded search horizon")

// Window is one in-hours span, minutes from local midnight.
type Window struct {
	Start int
	End   int
}

// Calendar is the compiled business-hours schedule of one policy. All
// local-time arithmetic happens in Location; absolute instants appear only
// at the boundaries, so a 09:00-17:00 window means local wall-clock time
// on either side of a DST shift.
type Calendar struct {
	Location    *time.Location
	Enforce     bool
	HorizonDays int
	windows     map[time.Weekday][]Window
	holidays    map[string]struct{}
}

// NewCalendar compiles a policy snapshot. Windows on the same weekday are
// unioned so overlapping configuration never double-counts.
func NewCalendar(snapshot domain.SlaPolicySnapshot) (*Calendar, error) {
	loc, err := time.LoadLocation(snapshot.Policy.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load policy timezone %q: %w", snapshot.Policy.Timezone, err)
	}

	windows := make(map[time.Weekday][]Window)
	for _, w := range snapshot.Windows {
		if w.EndMinute <= w.StartMinute {
			return nil, fmt.Errorf("window on %s ends at or before start", w.Weekday)
		}
		windows[w.Weekday] = append(windows[w.Weekday], Window{Start: w.StartMinute, End: w.EndMinute})
	}
	for day := range windows {
		windows[day] = mergeWindows(windows[day])
	}

	holidays := make(map[string]struct{}, len(snapshot.Holidays))
	for _, h := range snapshot.Holidays {
		holidays[h.Date] = struct{}{}
	}

	return &Calendar{
		Location:    loc,
		Enforce:     snapshot.Policy.EnforceBusinessHours,
		HorizonDays: DefaultHorizonDays,
		windows:     windows,
		holidays:    holidays,
	}, nil
}

func mergeWindows(ws []Window) []Window {
	sort.Slice(ws, func(i, j int) bool { return ws[i].Start < ws[j].Start })
	merged := ws[:1]
	for _, w := range ws[1:] {
		last := &merged[len(merged)-1]
		if w.Start <= last.End {
			if w.End > last.End {
				last.End = w.End
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}

// MinutesInHours returns the whole in-hours minutes within [from, to].
// With enforcement off every instant is in hours.
func (c *Calendar) MinutesInHours(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	if !c.Enforce {
		return int(to.Sub(from).Minutes())
	}

	from = from.In(c.Location)
	to = to.In(c.Location)

	total := 0
	year, month, day := from.Date()
	endYear, endMonth, endDay := to.Date()
	for {
		total += c.dayOverlapMinutes(year, month, day, from, to)
		if year == endYear && month == endMonth && day == endDay {
			break
		}
		next := time.Date(year, month, day+1, 0, 0, 0, 0, c.Location)
		year, month, day = next.Date()
	}
	return total
}

// dayOverlapMinutes sums the overlap of the weekday's windows with
// [from, to] for one calendar day. Holidays contribute nothing.
func (c *Calendar) dayOverlapMinutes(year int, month time.Month, day int, from, to time.Time) int {
	if c.isHoliday(year, month, day) {
		return 0
	}
	total := 0
	for _, w := range c.windows[c.weekdayOf(year, month, day)] {
		start := time.Date(year, month, day, 0, w.Start, 0, 0, c.Location)
		end := time.Date(year, month, day, 0, w.End, 0, 0, c.Location)
		if start.Before(from) {
			start = from
		}
		if end.After(to) {
			end = to
		}
		if end.After(start) {
			total += int(end.Sub(start).Minutes())
		}
	}
	return total
}

// AddBusinessMinutes projects from forward by the given in-hours budget.
// With enforcement off this is plain wall-clock addition.
func (c *Calendar) AddBusinessMinutes(from time.Time, minutes int) (time.Time, error) {
	if minutes <= 0 {
		return from, nil
	}
	if !c.Enforce {
		return from.Add(time.Duration(minutes) * time.Minute), nil
	}

	cursor := from.In(c.Location)
	remaining := minutes
	year, month, day := cursor.Date()
	for walked := 0; walked <= c.HorizonDays; walked++ {
		if !c.isHoliday(year, month, day) {
			for _, w := range c.windows[c.weekdayOf(year, month, day)] {
				start := time.Date(year, month, day, 0, w.Start, 0, 0, c.Location)
				end := time.Date(year, month, day, 0, w.End, 0, 0, c.Location)
				if start.Before(cursor) {
					start = cursor
				}
				if !end.After(start) {
					continue
				}
				available := int(end.Sub(start).Minutes())
				if available >= remaining {
					return start.Add(time.Duration(remaining) * time.Minute), nil
				}
				remaining -= available
			}
		}
		next := time.Date(year, month, day+1, 0, 0, 0, 0, c.Location)
		year, month, day = next.Date()
		cursor = next
	}
	return time.Time{}, fmt.Errorf("%w after %d days with %d minutes unplaced", ErrHorizonExceeded, c.HorizonDays, remaining)
}

func (c *Calendar) isHoliday(year int, month time.Month, day int) bool {
	key := fmt.Sprintf("%04d-%02d-%02d", year, int(month), day)
	_, ok := c.holidays[key]
	return ok
}

// weekdayOf resolves the weekday at local noon; midnight can be skipped
// entirely by a DST shift in some zones.
func (c *Calendar) weekdayOf(year int, month time.Month, day int) time.Weekday {
	return time.Date(year, month, day, 12, 0, 0, 0, c.Location).Weekday()
}
