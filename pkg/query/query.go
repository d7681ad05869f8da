package query

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harrisonrobin/tasker/pkg/model"
)

// Lister is the read side of the task store.
type Lister interface {
	List() ([]model.Task, error)
}

type FilterKind int

const (
	FilterNone FilterKind = iota
	FilterPriority
	FilterStatus
	FilterOverdue
	FilterToday
)

// Filter selects a subset of tasks. Priority and Status are only read for their own kinds.
type Filter struct {
	Kind     FilterKind
	Priority model.Priority
	Status   model.Status
}

func ByPriority(p model.Priority) Filter { return Filter{Kind: FilterPriority, Priority: p} }
func ByStatus(s model.Status) Filter     { return Filter{Kind: FilterStatus, Status: s} }

var (
	Overdue = Filter{Kind: FilterOverdue}
	Today   = Filter{Kind: FilterToday}
)

func (f Filter) String() string {
	switch f.Kind {
	case FilterPriority:
		return string(f.Priority)
	case FilterStatus:
		return string(f.Status)
	case FilterOverdue:
		return "Overdue"
	case FilterToday:
		return "Today"
	default:
		return "None"
	}
}

// ParseFilter accepts the labels used by the task list: None, a priority, a status, Overdue or Today.
func ParseFilter(s string) (Filter, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "none":
		return Filter{}, nil
	case "overdue":
		return Overdue, nil
	case "today":
		return Today, nil
	}
	if p, err := model.ParsePriority(s); err == nil {
		return ByPriority(p), nil
	}
	if st, err := model.ParseStatus(s); err == nil {
		return ByStatus(st), nil
	}
	return Filter{}, &model.ValidationError{Field: "filter", Reason: fmt.Sprintf("unknown filter %q", s)}
}

type Sort int

const (
	SortNone Sort = iota
	SortDueDate
	SortPriority
	SortTimeToComplete
)

func (s Sort) String() string {
	switch s {
	case SortDueDate:
		return "Due Date"
	case SortPriority:
		return "Priority"
	case SortTimeToComplete:
		return "Time to Complete"
	default:
		return "None"
	}
}

// ParseSort accepts None, "Due Date", Priority and "Time to Complete" (case and separators ignored).
func ParseSort(s string) (Sort, error) {
	key := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch key {
	case "", "none":
		return SortNone, nil
	case "duedate", "due", "deadline":
		return SortDueDate, nil
	case "priority":
		return SortPriority, nil
	case "timetocomplete", "time", "estimate":
		return SortTimeToComplete, nil
	}
	return SortNone, &model.ValidationError{Field: "sort", Reason: fmt.Sprintf("unknown sort %q", s)}
}

// Options describes one query.
type Options struct {
	Filter          Filter
	Sort            Sort
	IncludeArchived bool
}

// Engine evaluates filters and sorts against the current store contents on every call.
type Engine struct {
	src Lister
	// Now supplies the wall clock for date filters.
	Now func() time.Time
}

func NewEngine(src Lister) *Engine {
	return &Engine{src: src, Now: time.Now}
}

// Query returns the matching tasks in the requested order.
func (e *Engine) Query(opts Options) ([]model.Task, error) {
	all, err := e.src.List()
	if err != nil {
		return nil, err
	}
	today := model.DateOf(e.Now())

	out := make([]model.Task, 0, len(all))
	for _, t := range all {
		if t.Archived && !opts.IncludeArchived {
			continue
		}
		if !opts.Filter.matches(&t, today) {
			continue
		}
		out = append(out, t)
	}
	SortTasks(out, opts.Sort)
	return out, nil
}

// Archived lists archived tasks only, in storage order.
func (e *Engine) Archived() ([]model.Task, error) {
	all, err := e.src.List()
	if err != nil {
		return nil, err
	}
	var out []model.Task
	for _, t := range all {
		if t.Archived {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f Filter) matches(t *model.Task, today time.Time) bool {
	switch f.Kind {
	case FilterPriority:
		return t.Priority == f.Priority
	case FilterStatus:
		return t.Status == f.Status
	case FilterOverdue:
		return t.IsOverdue(today)
	case FilterToday:
		return t.DueOn(today)
	default:
		return true
	}
}

// SortTasks orders tasks in place. Every ordering is stable, so ties keep storage order.
func SortTasks(tasks []model.Task, by Sort) {
	switch by {
	case SortDueDate:
		type keyed struct {
			task model.Task
			due  time.Time
			ok   bool
		}
		ks := make([]keyed, len(tasks))
		for i, t := range tasks {
			d, err := t.Deadline.Date()
			ks[i] = keyed{task: t, due: d, ok: err == nil}
		}
		sort.SliceStable(ks, func(i, j int) bool {
			if ks[i].ok && ks[j].ok {
				return ks[i].due.Before(ks[j].due)
			}
			return ks[i].ok && !ks[j].ok
		})
		for i := range ks {
			tasks[i] = ks[i].task
		}
	case SortPriority:
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].Priority.Rank() < tasks[j].Priority.Rank()
		})
	case SortTimeToComplete:
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].EstimatedTime < tasks[j].EstimatedTime
		})
	}
}
