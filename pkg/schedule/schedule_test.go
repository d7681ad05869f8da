package schedule

import (
	"testing"
	"time"

	"github.com/harrisonrobin/tasker/pkg/model"
	"github.com/harrisonrobin/tasker/pkg/query"
)

type taskList []model.Task

func (l taskList) List() ([]model.Task, error) { return l, nil }

var now = time.Date(2025, 6, 15, 9, 0, 0, 0, time.Local)

func newScheduler(tasks taskList) *Scheduler {
	e := query.NewEngine(tasks)
	e.Now = func() time.Time { return now }
	s := NewScheduler(e)
	s.Now = func() time.Time { return now }
	return s
}

func TestScheduleBackToBack(t *testing.T) {
	s := newScheduler(taskList{
		{ID: 2, Title: "Y", Priority: model.PriorityLow, Status: model.StatusPending, Deadline: "02/01/30", EstimatedTime: 3},
		{ID: 1, Title: "X", Priority: model.PriorityHigh, Status: model.StatusPending, Deadline: "01/01/30", EstimatedTime: 2},
	})

	slots, err := s.Schedule()
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}

	x, y := slots[0], slots[1]
	if x.Title != "X" || y.Title != "Y" {
		t.Fatalf("expected X then Y, got %s then %s", x.Title, y.Title)
	}
	if !x.Start.Equal(now) {
		t.Errorf("X should start now, got %v", x.Start)
	}
	if !x.End.Equal(now.Add(2 * time.Hour)) {
		t.Errorf("X should end 2h later, got %v", x.End)
	}
	if !y.Start.Equal(x.End) {
		t.Errorf("Y should start at X's end %v, got %v", x.End, y.Start)
	}
	if y.Duration() != 3*time.Hour {
		t.Errorf("Y should last 3h, got %v", y.Duration())
	}
	if x.Priority != model.PriorityHigh {
		t.Errorf("expected slot to carry priority, got %s", x.Priority)
	}
}

func TestScheduleSkipsIneligible(t *testing.T) {
	s := newScheduler(taskList{
		{ID: 1, Title: "done", Status: model.StatusCompleted, Deadline: "01/01/30", EstimatedTime: 1},
		{ID: 2, Title: "archived", Status: model.StatusPending, Deadline: "01/01/30", EstimatedTime: 1, Archived: true},
		{ID: 3, Title: "no deadline", Status: model.StatusPending, EstimatedTime: 1},
		{ID: 4, Title: "bad deadline", Status: model.StatusPending, Deadline: "31/02/99", EstimatedTime: 1},
		{ID: 5, Title: "kept", Status: model.StatusInProgress, Deadline: "03/01/30", EstimatedTime: 1.5},
	})

	slots, err := s.Schedule()
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if len(slots) != 1 || slots[0].TaskID != 5 {
		t.Fatalf("expected only task 5 to be scheduled, got %+v", slots)
	}
	if slots[0].Duration() != 90*time.Minute {
		t.Errorf("expected 90m slot, got %v", slots[0].Duration())
	}
}

func TestPlaceZeroEstimate(t *testing.T) {
	slots := Place([]model.Task{
		{ID: 1, Title: "instant", Status: model.StatusPending, Deadline: "01/01/30"},
		{ID: 2, Title: "after", Status: model.StatusPending, Deadline: "02/01/30", EstimatedTime: 1},
	}, now)

	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if !slots[0].Start.Equal(slots[0].End) {
		t.Errorf("zero estimate should give zero-width slot, got %v-%v", slots[0].Start, slots[0].End)
	}
	if !slots[1].Start.Equal(now) {
		t.Errorf("zero-width slot must not advance the cursor, got %v", slots[1].Start)
	}
}

func TestPlaceNeverOverlaps(t *testing.T) {
	tasks := []model.Task{
		{ID: 1, Status: model.StatusPending, Deadline: "01/01/30", EstimatedTime: 0.25},
		{ID: 2, Status: model.StatusPending, Deadline: "01/01/30", EstimatedTime: 4},
		{ID: 3, Status: model.StatusPending, Deadline: "05/01/30", EstimatedTime: 0},
		{ID: 4, Status: model.StatusPending, Deadline: "09/01/30", EstimatedTime: 7.5},
	}
	slots := Place(tasks, now)
	for i := 1; i < len(slots); i++ {
		if slots[i].Start.Before(slots[i-1].End) {
			t.Errorf("slot %d starts before slot %d ends", i, i-1)
		}
	}
}
