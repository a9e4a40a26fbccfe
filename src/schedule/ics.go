package schedule

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
)

const (
	icsProductID   = "-//screen-schedule//schedule-ocr//EN"
	defaultEventHr = time.Hour
)

// WriteICS writes cands as a VCALENDAR of VEVENTs and returns how many
// events it wrote. Dates and times are read in loc. A candidate without a
// start time becomes an all-day event; one without a valid date is
// skipped. UIDs are derived from title, date and start, so exporting the
// same candidate twice yields the same UID.
func WriteICS(w io.Writer, cands []Candidate, loc *time.Location, stamp time.Time) (int, error) {
	if loc == nil {
		loc = time.Local
	}
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(icsProductID)

	n := 0
	for _, c := range cands {
		day, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(c.Date), loc)
		if err != nil {
			log.Printf("schedule: ics skips %q: bad date %q", c.Title, c.Date)
			continue
		}
		ev := cal.AddEvent(eventUID(c))
		ev.SetDtStampTime(stamp)
		ev.SetSummary(c.Title)
		if c.Location != "" {
			ev.SetLocation(c.Location)
		}
		if c.Memo != "" {
			ev.SetDescription(c.Memo)
		}

		start, ok := clockOn(day, c.StartTime)
		if !ok {
			ev.SetAllDayStartAt(day)
			ev.SetAllDayEndAt(day.AddDate(0, 0, 1))
			n++
			continue
		}
		end, ok := clockOn(day, c.EndTime)
		if !ok || !end.After(start) {
			end = start.Add(defaultEventHr)
		}
		ev.SetStartAt(start)
		ev.SetEndAt(end)
		n++
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return 0, fmt.Errorf("write ics: %w", err)
	}
	return n, nil
}

// clockOn places an HH:MM clock on day.
func clockOn(day time.Time, clock string) (time.Time, bool) {
	t, err := time.Parse("15:04", strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), true
}

func eventUID(c Candidate) string {
	key := strings.Join([]string{c.Title, c.Date, c.StartTime}, "\x00")
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String() + "@screen-schedule"
}
