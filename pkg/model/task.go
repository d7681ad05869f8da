package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Rank orders priorities for sorting, High first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// Important reports whether the priority counts as important in the Eisenhower matrix.
func (p Priority) Important() bool {
	return p == PriorityHigh || p == PriorityMedium
}

type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

type Category string

const (
	CategoryWork    Category = "Work"
	CategoryStudy   Category = "Study"
	CategoryFitness Category = "Fitness"
)

var categories = []Category{CategoryWork, CategoryStudy, CategoryFitness}

// RegisterCategory adds a category to the accepted set. It is meant to be called during startup.
func RegisterCategory(c Category) {
	for _, known := range categories {
		if known == c {
			return
		}
	}
	categories = append(categories, c)
}

// Categories returns the accepted categories in registration order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.TrimSpace(s)); p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return p, nil
	}
	return "", &ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown priority %q", s)}
}

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.TrimSpace(s)); st {
	case StatusPending, StatusInProgress, StatusCompleted:
		return st, nil
	}
	return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", s)}
}

func ParseCategory(s string) (Category, error) {
	c := Category(strings.TrimSpace(s))
	for _, known := range categories {
		if known == c {
			return c, nil
		}
	}
	return "", &ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", s)}
}

// Task is the single record kept by the store.
type Task struct {
	ID            int64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Title         string   `gorm:"column:title;not null" json:"title"`
	Priority      Priority `gorm:"column:priority;not null" json:"priority"`
	Status        Status   `gorm:"column:status;not null" json:"status"`
	Deadline      Deadline `gorm:"column:deadline;type:text" json:"deadline,omitempty"`
	EstimatedTime float64  `gorm:"column:estimated_time;not null;default:0" json:"estimated_time"`
	TimeSpent     float64  `gorm:"column:time_spent;not null;default:0" json:"time_spent"`
	Category      Category `gorm:"column:category" json:"category"`
	Archived      bool     `gorm:"column:archived;not null;default:false" json:"archived"`
}

// TableName keeps the table layout of existing tasks.db files.
func (Task) TableName() string {
	return "tasks"
}

// NewTask validates the inputs and builds a record ready to be persisted.
// A task created as Completed is archived straight away.
func NewTask(title string, priority Priority, status Status, deadline Deadline, estimated float64, category Category) (*Task, error) {
	if strings.TrimSpace(title) == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if _, err := ParsePriority(string(priority)); err != nil {
		return nil, err
	}
	if _, err := ParseStatus(string(status)); err != nil {
		return nil, err
	}
	if _, err := ParseCategory(string(category)); err != nil {
		return nil, err
	}
	if err := ValidateHours("estimated_time", estimated); err != nil {
		return nil, err
	}

	t := &Task{
		Title:         title,
		Priority:      priority,
		Status:        status,
		Deadline:      Deadline(strings.TrimSpace(string(deadline))),
		EstimatedTime: estimated,
		Category:      category,
	}
	if status == StatusCompleted {
		t.Complete()
	}
	return t, nil
}

// ValidateHours rejects negative or non-finite hour values.
func ValidateHours(field string, hours float64) error {
	if math.IsNaN(hours) || math.IsInf(hours, 0) {
		return &ValidationError{Field: field, Reason: "must be a finite number"}
	}
	if hours < 0 {
		return &ValidationError{Field: field, Reason: "must not be negative"}
	}
	return nil
}

// Complete marks the task done. Status and the archived flag always move together.
func (t *Task) Complete() {
	t.Status = StatusCompleted
	t.Archived = true
}

// Progress is the share of the estimate already spent, capped at 100 for display.
func (t *Task) Progress() float64 {
	if t.EstimatedTime <= 0 {
		return 0
	}
	return math.Min(t.TimeSpent/t.EstimatedTime*100, 100)
}

// IsOverdue reports whether the deadline parses and falls strictly before today.
func (t *Task) IsOverdue(today time.Time) bool {
	d, err := t.Deadline.Date()
	if err != nil {
		return false
	}
	return d.Before(DateOf(today))
}

// DueOn reports whether the deadline parses and falls on the given day.
func (t *Task) DueOn(today time.Time) bool {
	d, err := t.Deadline.Date()
	if err != nil {
		return false
	}
	return d.Equal(DateOf(today))
}

// Estimate converts the estimated hours into a duration.
func (t *Task) Estimate() time.Duration {
	return HoursToDuration(t.EstimatedTime)
}

func HoursToDuration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}
