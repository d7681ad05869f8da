package matrix

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/harrisonrobin/tasker/pkg/model"
	"github.com/harrisonrobin/tasker/pkg/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taskList []model.Task

func (l taskList) List() ([]model.Task, error) { return l, nil }

var now = time.Date(2025, 6, 15, 16, 0, 0, 0, time.Local)

func day(offset int) model.Deadline {
	return model.NewDeadline(now.AddDate(0, 0, offset))
}

func newClassifier(tasks taskList) *Classifier {
	e := query.NewEngine(tasks)
	e.Now = func() time.Time { return now }
	c := NewClassifier(e)
	c.Now = func() time.Time { return now }
	return c
}

func TestOverdueHighIsUrgentImportant(t *testing.T) {
	m, err := newClassifier(taskList{
		{ID: 1, Title: "A", Priority: model.PriorityHigh, Status: model.StatusPending, Deadline: day(-1)},
	}).Classify()
	require.NoError(t, err)
	require.Len(t, m.UrgentImportant, 1)
	assert.Equal(t, "A", m.UrgentImportant[0].Title)
}

func TestQuadrantOf(t *testing.T) {
	tests := []struct {
		name string
		task model.Task
		want Quadrant
	}{
		{"completed overrides urgency", model.Task{Priority: model.PriorityHigh, Status: model.StatusCompleted, Deadline: day(-2)}, NotUrgentNotImportant},
		{"medium within a week", model.Task{Priority: model.PriorityMedium, Status: model.StatusPending, Deadline: day(7)}, UrgentImportant},
		{"medium beyond a week", model.Task{Priority: model.PriorityMedium, Status: model.StatusInProgress, Deadline: day(8)}, NotUrgentImportant},
		{"low due today", model.Task{Priority: model.PriorityLow, Status: model.StatusPending, Deadline: day(0)}, UrgentNotImportant},
		{"low far away", model.Task{Priority: model.PriorityLow, Status: model.StatusPending, Deadline: day(30)}, NotUrgentNotImportant},
		{"no deadline never urgent", model.Task{Priority: model.PriorityHigh, Status: model.StatusPending}, NotUrgentImportant},
		{"invalid deadline never urgent", model.Task{Priority: model.PriorityLow, Status: model.StatusPending, Deadline: "31/02/99"}, NotUrgentNotImportant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QuadrantOf(&tt.task, now))
		})
	}
}

func TestClassifyPartitionIsTotalAndDisjoint(t *testing.T) {
	tasks := taskList{
		{ID: 1, Priority: model.PriorityHigh, Status: model.StatusPending, Deadline: day(1)},
		{ID: 2, Priority: model.PriorityLow, Status: model.StatusPending, Deadline: day(2)},
		{ID: 3, Priority: model.PriorityMedium, Status: model.StatusPending, Deadline: day(40)},
		{ID: 4, Priority: model.PriorityLow, Status: model.StatusPending},
		{ID: 5, Priority: model.PriorityHigh, Status: model.StatusCompleted, Deadline: day(1)},
		{ID: 6, Priority: model.PriorityHigh, Status: model.StatusPending, Deadline: day(1), Archived: true},
		{ID: 7, Priority: model.PriorityHigh, Status: model.StatusPending, Deadline: "31/02/99"},
	}
	m, err := newClassifier(tasks).Classify()
	require.NoError(t, err)

	seen := map[int64]int{}
	for _, bucket := range m.Quadrants() {
		for _, task := range bucket {
			seen[task.ID]++
		}
	}
	for _, task := range tasks {
		if task.Archived {
			assert.Zero(t, seen[task.ID], "archived task %d classified", task.ID)
			continue
		}
		assert.Equal(t, 1, seen[task.ID], "task %d placed %d times", task.ID, seen[task.ID])
	}
	assert.Len(t, seen, 6)
}

func TestQuadrantString(t *testing.T) {
	assert.Equal(t, "Urgent & Important", UrgentImportant.String())
	assert.Equal(t, "Not Urgent & Not Important", NotUrgentNotImportant.String())
}

func TestUrgencyIgnoresTimeOfDay(t *testing.T) {
	eightDays := model.Task{Priority: model.PriorityLow, Status: model.StatusPending, Deadline: day(8)}
	sevenDays := model.Task{Priority: model.PriorityLow, Status: model.StatusPending, Deadline: day(7)}

	for _, clock := range []time.Time{
		time.Date(2025, 6, 15, 0, 0, 0, 0, time.Local),
		time.Date(2025, 6, 15, 10, 0, 0, 0, time.Local),
		time.Date(2025, 6, 15, 23, 59, 0, 0, time.Local),
	} {
		assert.False(t, IsUrgent(&eightDays, clock), "8 days out at %s", clock.Format("15:04"))
		assert.True(t, IsUrgent(&sevenDays, clock), "7 days out at %s", clock.Format("15:04"))
	}
}

func TestEmptyQuadrantsEncodeAsArrays(t *testing.T) {
	m := Partition(nil, now)
	for _, bucket := range m.Quadrants() {
		assert.NotNil(t, bucket)
	}

	raw, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"urgent_important":[],"not_urgent_important":[],"urgent_not_important":[],"not_urgent_not_important":[]}`, string(raw))
}
