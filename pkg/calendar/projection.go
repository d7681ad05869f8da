package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/harrisonrobin/tasker/pkg/model"
	"github.com/harrisonrobin/tasker/pkg/query"
	gcal "google.golang.org/api/calendar/v3"
)

const (
	// TaskIDProperty is the private extended property that ties a Google event to a task.
	TaskIDProperty = "tasker_id"

	dateLayout = "2006-01-02"
)

// Event is one all-day entry of the calendar projection.
type Event struct {
	TaskID   int64          `json:"task_id"`
	Title    string         `json:"title"`
	Date     time.Time      `json:"date"`
	Color    string         `json:"color"`
	Priority model.Priority `json:"priority"`
	AllDay   bool           `json:"all_day"`
	Task     model.Task     `json:"-"`
}

// Start formats the event day as YYYY-MM-DD.
func (e Event) Start() string {
	return e.Date.Format(dateLayout)
}

// Color returns the display colour used for a priority.
func Color(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "#FF4B4B"
	case model.PriorityMedium:
		return "#FFA500"
	default:
		return "#008000"
	}
}

// googleColorID maps priorities onto the Google Calendar event palette.
func googleColorID(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "11" // Tomato
	case model.PriorityMedium:
		return "6" // Tangerine
	default:
		return "10" // Basil
	}
}

type Projector struct {
	engine *query.Engine
}

func NewProjector(engine *query.Engine) *Projector {
	return &Projector{engine: engine}
}

// Events projects every non-archived task with a usable deadline onto its due day.
func (p *Projector) Events() ([]Event, error) {
	tasks, err := p.engine.Query(query.Options{})
	if err != nil {
		return nil, err
	}
	return Project(tasks), nil
}

// Project builds events for tasks whose deadline parses; the rest are left out.
func Project(tasks []model.Task) []Event {
	events := make([]Event, 0, len(tasks))
	for _, t := range tasks {
		due, err := t.Deadline.Date()
		if err != nil {
			continue
		}
		events = append(events, Event{
			TaskID:   t.ID,
			Title:    t.Title,
			Date:     due,
			Color:    Color(t.Priority),
			Priority: t.Priority,
			AllDay:   true,
			Task:     t,
		})
	}
	return events
}

// ToGoogleEvent converts a projected event into a Google Calendar all-day event.
func ToGoogleEvent(e Event, now time.Time) *gcal.Event {
	t := e.Task

	prefix := ""
	if t.Status == model.StatusCompleted {
		prefix = "✓"
	} else if t.Status == model.StatusInProgress {
		prefix = "‣"
	} else if t.IsOverdue(now) {
		prefix = "!"
	}
	summary := e.Title
	if prefix != "" {
		summary = fmt.Sprintf("%s %s", prefix, e.Title)
	}

	var desc strings.Builder
	desc.WriteString(fmt.Sprintf("Status: %s\n", t.Status))
	desc.WriteString(fmt.Sprintf("Priority: %s\n", t.Priority))
	if t.Category != "" {
		desc.WriteString(fmt.Sprintf("Category: %s\n", t.Category))
	}
	desc.WriteString(fmt.Sprintf("ID: %d\n", t.ID))

	desc.WriteString("\nAccounting:\n")
	if t.EstimatedTime > 0 {
		desc.WriteString(fmt.Sprintf("• estimated: %s\n", t.Estimate()))
	}
	if t.TimeSpent > 0 {
		spent := model.HoursToDuration(t.TimeSpent)
		desc.WriteString(fmt.Sprintf("• spent: %s (%.0f%%)\n", spent, t.Progress()))
		if diff := spent - t.Estimate(); t.EstimatedTime > 0 && diff > 0 {
			desc.WriteString(fmt.Sprintf("• over estimate by: %s\n", diff))
		}
	}

	// All-day events end on the following day (exclusive).
	return &gcal.Event{
		Summary:     summary,
		ColorId:     googleColorID(e.Priority),
		Description: desc.String(),
		Start:       &gcal.EventDateTime{Date: e.Date.Format(dateLayout)},
		End:         &gcal.EventDateTime{Date: e.Date.AddDate(0, 0, 1).Format(dateLayout)},
		ExtendedProperties: &gcal.EventExtendedProperties{
			Private: map[string]string{
				TaskIDProperty: strconv.FormatInt(e.TaskID, 10),
			},
		},
	}
}

// EventNeedsUpdate returns a patch holding the fields where target differs from existing,
// or nil when they already agree.
func EventNeedsUpdate(existing, target *gcal.Event) *gcal.Event {
	patch := &gcal.Event{}
	needsUpdate := false

	if existing.Summary != target.Summary {
		patch.Summary = target.Summary
		needsUpdate = true
	}
	if existing.Description != target.Description {
		patch.Description = target.Description
		needsUpdate = true
	}
	if existing.ColorId != target.ColorId {
		patch.ColorId = target.ColorId
		needsUpdate = true
	}
	if eventDate(existing.Start) != eventDate(target.Start) || eventDate(existing.End) != eventDate(target.End) {
		patch.Start = target.Start
		patch.End = target.End
		needsUpdate = true
	}

	if needsUpdate {
		return patch
	}
	return nil
}

func eventDate(dt *gcal.EventDateTime) string {
	if dt == nil {
		return ""
	}
	if dt.Date != "" {
		return dt.Date
	}
	return dt.DateTime
}

// TaskIDFromEvent reads the task id stored on a Google event.
func TaskIDFromEvent(ev *gcal.Event) (int64, bool) {
	if ev == nil || ev.ExtendedProperties == nil {
		return 0, false
	}
	raw, ok := ev.ExtendedProperties.Private[TaskIDProperty]
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
