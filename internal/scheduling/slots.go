package scheduling

import (
	"sort"
	"time"

	"creamery/internal/apperr"
	"creamery/internal/models"
)

// WorkCalendar is the set of working days and the daily business hours
type WorkCalendar struct {
	WorkDays        []time.Weekday
	DayStartMinutes int
	DayEndMinutes   int
}

// NewWorkCalendar parses day names and "HH:MM" bounds into a calendar
func NewWorkCalendar(days []string, dayStart, dayEnd string) (WorkCalendar, error) {
	var cal WorkCalendar
	for _, name := range days {
		day, ok := models.ParseWeekday(name)
		if !ok {
			return WorkCalendar{}, apperr.Validation("unknown work day %q", name)
		}
		cal.WorkDays = append(cal.WorkDays, day)
	}
	if len(cal.WorkDays) == 0 {
		return WorkCalendar{}, apperr.Validation("at least one work day is required")
	}

	var err error
	if cal.DayStartMinutes, err = models.ParseClock(dayStart); err != nil {
		return WorkCalendar{}, apperr.Validation("workday start: %v", err)
	}
	if cal.DayEndMinutes, err = models.ParseClock(dayEnd); err != nil {
		return WorkCalendar{}, apperr.Validation("workday end: %v", err)
	}
	if cal.DayEndMinutes <= cal.DayStartMinutes {
		return WorkCalendar{}, apperr.Validation("workday end %s must be after start %s", dayEnd, dayStart)
	}
	return cal, nil
}

// IsWorkDay reports whether day is a working day
func (c WorkCalendar) IsWorkDay(day time.Weekday) bool {
	for _, d := range c.WorkDays {
		if d == day {
			return true
		}
	}
	return false
}

// Slot is an open interval on a machine. [Start, End) is the earliest
// placement of the required duration; GapEnd is where the open gap stops.
type Slot struct {
	Start  time.Time `json:"startTime"`
	End    time.Time `json:"endTime"`
	GapEnd time.Time `json:"gapEnd"`
}

// FindSlots returns, in day-then-gap order, one slot per open gap of at least
// requiredMinutes on the machine during the seven days from weekStart. Only
// live blocks on that machine occupy time.
func FindSlots(weekStart time.Time, cal WorkCalendar, requiredMinutes int, blocks []models.ProductionBlock, machineID uint) []Slot {
	if requiredMinutes <= 0 {
		return nil
	}
	required := time.Duration(requiredMinutes) * time.Minute
	midnight := startOfDay(weekStart)

	var slots []Slot
	for i := 0; i < 7; i++ {
		day := midnight.AddDate(0, 0, i)
		if !cal.IsWorkDay(day.Weekday()) {
			continue
		}
		dayStart := day.Add(time.Duration(cal.DayStartMinutes) * time.Minute)
		dayEnd := day.Add(time.Duration(cal.DayEndMinutes) * time.Minute)

		busy := dayBlocks(blocks, machineID, dayStart, dayEnd)
		cursor := dayStart
		for _, b := range busy {
			if b.StartTime.After(cursor) && b.StartTime.Sub(cursor) >= required {
				slots = append(slots, Slot{Start: cursor, End: cursor.Add(required), GapEnd: b.StartTime})
			}
			if b.EndTime.After(cursor) {
				cursor = b.EndTime
			}
		}
		if dayEnd.Sub(cursor) >= required {
			slots = append(slots, Slot{Start: cursor, End: cursor.Add(required), GapEnd: dayEnd})
		}
	}
	return slots
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dayBlocks(blocks []models.ProductionBlock, machineID uint, dayStart, dayEnd time.Time) []models.ProductionBlock {
	var busy []models.ProductionBlock
	for _, b := range blocks {
		if b.MachineID != machineID || !b.IsLive() || !b.Overlaps(dayStart, dayEnd) {
			continue
		}
		busy = append(busy, b)
	}
	sort.SliceStable(busy, func(i, j int) bool {
		if busy[i].StartTime.Equal(busy[j].StartTime) {
			return busy[i].ID < busy[j].ID
		}
		return busy[i].StartTime.Before(busy[j].StartTime)
	})
	return busy
}
