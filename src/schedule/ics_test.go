package schedule

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteICS(t *testing.T) {
	stamp := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	cands := []Candidate{
		{Title: "Dentist", Date: "2026-10-16", StartTime: "15:00", EndTime: "15:45", Location: "Room 2"},
		{Title: "Gym", Date: "2026-10-16", StartTime: "18:00", EndTime: "17:00"},
		{Title: "Holiday", Date: "2026-10-20", Memo: "office closed"},
		{Title: "Someday", Date: "soon"},
	}

	var b strings.Builder
	n, err := WriteICS(&b, cands, time.UTC, stamp)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	out := b.String()
	assert.Contains(t, out, "DTSTART:20261016T150000Z")
	assert.Contains(t, out, "DTEND:20261016T154500Z")
	assert.Contains(t, out, "DTEND:20261016T190000Z", "end before start falls back to one hour")
	assert.Contains(t, out, "DTSTART;VALUE=DATE:20261020")
	assert.NotContains(t, out, "Someday")

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "Dentist", events[0].GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "Room 2", events[0].GetProperty(ical.ComponentPropertyLocation).Value)
	assert.Equal(t, "office closed", events[2].GetProperty(ical.ComponentPropertyDescription).Value)
}

func TestEventUIDStable(t *testing.T) {
	c := Candidate{Title: "Dentist", Date: "2026-10-16", StartTime: "15:00"}
	assert.Equal(t, eventUID(c), eventUID(c))
	c2 := c
	c2.StartTime = "16:00"
	assert.NotEqual(t, eventUID(c), eventUID(c2))
	assert.True(t, strings.HasSuffix(eventUID(c), "@screen-schedule"))
}
