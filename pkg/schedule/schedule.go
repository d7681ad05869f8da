// Package schedule lays pending work out back to back on a single timeline.
//
// Placement is greedy in due-date order for one worker with no preemption. It does not reorder
// for feasibility and does not report overcommitment: a task whose slot ends after its deadline
// is still placed where the order puts it.
package schedule

import (
	"time"

	"github.com/harrisonrobin/tasker/pkg/model"
	"github.com/harrisonrobin/tasker/pkg/query"
)

// Slot is one placed task.
type Slot struct {
	TaskID   int64          `json:"task_id"`
	Title    string         `json:"title"`
	Start    time.Time      `json:"start"`
	End      time.Time      `json:"end"`
	Priority model.Priority `json:"priority"`
}

// Duration is the length of the slot.
func (s Slot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

type Scheduler struct {
	engine *query.Engine
	// Now is the instant the first slot starts.
	Now func() time.Time
}

func NewScheduler(engine *query.Engine) *Scheduler {
	return &Scheduler{engine: engine, Now: time.Now}
}

// Schedule places every open, non-archived task that has a usable deadline, earliest deadline first.
func (s *Scheduler) Schedule() ([]Slot, error) {
	tasks, err := s.engine.Query(query.Options{Sort: query.SortDueDate})
	if err != nil {
		return nil, err
	}
	return Place(tasks, s.Now()), nil
}

// Place walks tasks in the given order from start. Completed tasks and tasks without a usable
// deadline are skipped. A zero estimate yields a zero-width slot.
func Place(tasks []model.Task, start time.Time) []Slot {
	slots := make([]Slot, 0, len(tasks))
	cursor := start
	for _, t := range tasks {
		if t.Status == model.StatusCompleted || !t.Deadline.Usable() {
			continue
		}
		end := cursor.Add(t.Estimate())
		slots = append(slots, Slot{
			TaskID:   t.ID,
			Title:    t.Title,
			Start:    cursor,
			End:      end,
			Priority: t.Priority,
		})
		cursor = end
	}
	return slots
}
