package matrix

import (
	"time"

	"github.com/harrisonrobin/tasker/pkg/model"
	"github.com/harrisonrobin/tasker/pkg/query"
)

// UrgentWithinDays is how close a deadline has to be for a task to count as urgent.
const UrgentWithinDays = 7

type Quadrant int

const (
	UrgentImportant Quadrant = iota
	NotUrgentImportant
	UrgentNotImportant
	NotUrgentNotImportant
)

func (q Quadrant) String() string {
	switch q {
	case UrgentImportant:
		return "Urgent & Important"
	case NotUrgentImportant:
		return "Not Urgent & Important"
	case UrgentNotImportant:
		return "Urgent & Not Important"
	default:
		return "Not Urgent & Not Important"
	}
}

// Matrix is the Eisenhower partition of a task set.
type Matrix struct {
	UrgentImportant       []model.Task `json:"urgent_important"`
	NotUrgentImportant    []model.Task `json:"not_urgent_important"`
	UrgentNotImportant    []model.Task `json:"urgent_not_important"`
	NotUrgentNotImportant []model.Task `json:"not_urgent_not_important"`
}

// Quadrants returns the buckets in grid order.
func (m *Matrix) Quadrants() [4][]model.Task {
	return [4][]model.Task{m.UrgentImportant, m.NotUrgentImportant, m.UrgentNotImportant, m.NotUrgentNotImportant}
}

func (m *Matrix) add(q Quadrant, t model.Task) {
	switch q {
	case UrgentImportant:
		m.UrgentImportant = append(m.UrgentImportant, t)
	case NotUrgentImportant:
		m.NotUrgentImportant = append(m.NotUrgentImportant, t)
	case UrgentNotImportant:
		m.UrgentNotImportant = append(m.UrgentNotImportant, t)
	default:
		m.NotUrgentNotImportant = append(m.NotUrgentNotImportant, t)
	}
}

type Classifier struct {
	engine *query.Engine
	Now    func() time.Time
}

func NewClassifier(engine *query.Engine) *Classifier {
	return &Classifier{engine: engine, Now: time.Now}
}

// Classify partitions the non-archived tasks. Each task lands in exactly one quadrant.
func (c *Classifier) Classify() (*Matrix, error) {
	tasks, err := c.engine.Query(query.Options{})
	if err != nil {
		return nil, err
	}
	return Partition(tasks, c.Now()), nil
}

// Partition classifies tasks against the given wall-clock instant.
func Partition(tasks []model.Task, now time.Time) *Matrix {
	m := &Matrix{
		UrgentImportant:       []model.Task{},
		NotUrgentImportant:    []model.Task{},
		UrgentNotImportant:    []model.Task{},
		NotUrgentNotImportant: []model.Task{},
	}
	for _, t := range tasks {
		m.add(QuadrantOf(&t, now), t)
	}
	return m
}

// QuadrantOf places a single task. Completed work always goes to the last quadrant, which
// doubles as the done list.
func QuadrantOf(t *model.Task, now time.Time) Quadrant {
	if t.Status == model.StatusCompleted {
		return NotUrgentNotImportant
	}
	urgent := IsUrgent(t, now)
	important := t.Priority.Important()
	switch {
	case urgent && important:
		return UrgentImportant
	case important:
		return NotUrgentImportant
	case urgent:
		return UrgentNotImportant
	default:
		return NotUrgentNotImportant
	}
}

// IsUrgent reports whether the deadline parses and is at most UrgentWithinDays away or already past.
// The distance is counted in whole calendar days, so the time of day never moves a deadline
// in or out of the window.
func IsUrgent(t *model.Task, now time.Time) bool {
	due, err := t.Deadline.Date()
	if err != nil {
		return false
	}
	days := model.DaysBetween(now, due)
	return days <= UrgentWithinDays || due.Before(model.DateOf(now))
}
