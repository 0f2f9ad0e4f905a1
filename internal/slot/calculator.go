package slot

import (
	"bytes"
	"encoding/json"
	"time"
)

// Default business hours: whole-hour slots from 8:00 through 17:00.
const (
	DefaultFirstHour = 8
	DefaultLastHour  = 17
	DefaultDays      = 7
)

// Occupant is the view of a stored booking the calculator needs.
type Occupant struct {
	Date      time.Time
	Time      string // as submitted, 12h or 24h
	Minute    *int   // canonical value when already known
	Category  string
	Cancelled bool
}

// clock resolves the canonical time of o, preferring the stored value.
func (o Occupant) clock() (Clock, bool) {
	if o.Minute != nil {
		return Clock(*o.Minute), true
	}
	c, err := ParseClock(o.Time)
	return c, err == nil
}

// DayAvailability lists the free slots of one day.
type DayAvailability struct {
	DayName  string    `json:"day_name"`
	Date     string    `json:"date"`
	FullDate string    `json:"full_date"`
	Times    []string  `json:"times"`
	Day      time.Time `json:"-"`
}

// Week is an ordered list of days. It marshals to a JSON object keyed by
// day name with keys in chronological order.
type Week []DayAvailability

// MarshalJSON implements json.Marshaler.
func (w Week) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range w {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(d.DayName)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(d)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Find returns the entry for the given day name.
func (w Week) Find(dayName string) (DayAvailability, bool) {
	for _, d := range w {
		if d.DayName == dayName {
			return d, true
		}
	}
	return DayAvailability{}, false
}

// Calculator computes availability from a snapshot of bookings. It never
// touches storage.
type Calculator struct {
	Location  *time.Location
	FirstHour int
	LastHour  int
	Days      int
	Now       func() time.Time
}

// NewCalculator returns a Calculator with the default business hours.
func NewCalculator(loc *time.Location) *Calculator {
	if loc == nil {
		loc = time.UTC
	}
	return &Calculator{
		Location:  loc,
		FirstHour: DefaultFirstHour,
		LastHour:  DefaultLastHour,
		Days:      DefaultDays,
		Now:       time.Now,
	}
}

// Window returns the first day and the day after the last day covered for
// reference. A zero reference means today.
func (c *Calculator) Window(reference time.Time) (time.Time, time.Time) {
	start := c.start(reference)
	return start, start.AddDate(0, 0, c.days())
}

// Compute returns per-day free slots for the window starting at reference.
// Slots taken by active bookings outside the exempt category are removed.
func (c *Calculator) Compute(reference time.Time, category string, bookings []Occupant) Week {
	start := c.start(reference)
	taken := make(map[string]struct{}, len(bookings))
	for _, b := range bookings {
		if b.Cancelled || IsExempt(b.Category) || b.Date.IsZero() {
			continue
		}
		clk, ok := b.clock()
		if !ok {
			continue
		}
		taken[Key(Day(b.Date, c.Location), clk)] = struct{}{}
	}

	week := make(Week, 0, c.days())
	for i := 0; i < c.days(); i++ {
		day := start.AddDate(0, 0, i)
		times := make([]string, 0, c.LastHour-c.FirstHour+1)
		for h := c.FirstHour; h <= c.LastHour; h++ {
			clk := Clock(h * 60)
			if _, busy := taken[Key(day, clk)]; busy {
				continue
			}
			times = append(times, clk.Format(category))
		}
		week = append(week, DayAvailability{
			DayName:  day.Format("Monday"),
			Date:     day.Format("January 2"),
			FullDate: day.Format("January 2, 2006"),
			Times:    times,
			Day:      day,
		})
	}
	return week
}

// SlotTimes returns every business-hour slot in the category's format.
func (c *Calculator) SlotTimes(category string) []string {
	out := make([]string, 0, c.LastHour-c.FirstHour+1)
	for h := c.FirstHour; h <= c.LastHour; h++ {
		out = append(out, Clock(h*60).Format(category))
	}
	return out
}

func (c *Calculator) start(reference time.Time) time.Time {
	if reference.IsZero() {
		now := time.Now
		if c.Now != nil {
			now = c.Now
		}
		reference = now().In(c.loc())
	}
	return Day(reference, c.loc())
}

func (c *Calculator) loc() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

func (c *Calculator) days() int {
	if c.Days <= 0 {
		return DefaultDays
	}
	return c.Days
}
