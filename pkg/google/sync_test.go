package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harrisonrobin/tasker/pkg/calendar"
	"github.com/harrisonrobin/tasker/pkg/index"
	"github.com/harrisonrobin/tasker/pkg/model"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// fakeCalendar serves the handful of Calendar API routes the client uses.
type fakeCalendar struct {
	mu     sync.Mutex
	events map[string]*gcal.Event
	nextID int
}

func (f *fakeCalendar) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/me/calendarList", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, &gcal.CalendarList{Items: []*gcal.CalendarListEntry{
			{Id: "other", Summary: "Personal"},
			{Id: "cal-1", Summary: "Tasks"},
		}})
	})
	mux.HandleFunc("GET /calendars/{cal}/events", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		want := r.URL.Query().Get("privateExtendedProperty")
		out := &gcal.Events{Items: []*gcal.Event{}}
		for _, ev := range f.events {
			if id, ok := calendar.TaskIDFromEvent(ev); ok && want == fmt.Sprintf("%s=%d", calendar.TaskIDProperty, id) {
				out.Items = append(out.Items, ev)
			}
		}
		writeJSON(w, out)
	})
	mux.HandleFunc("POST /calendars/{cal}/events", func(w http.ResponseWriter, r *http.Request) {
		var ev gcal.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.nextID++
		ev.Id = fmt.Sprintf("evt-%d", f.nextID)
		f.events[ev.Id] = &ev
		f.mu.Unlock()
		writeJSON(w, &ev)
	})
	mux.HandleFunc("GET /calendars/{cal}/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		ev, ok := f.events[r.PathValue("id")]
		if !ok {
			notFound(w)
			return
		}
		writeJSON(w, ev)
	})
	mux.HandleFunc("PATCH /calendars/{cal}/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		var patch gcal.Event
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		ev, ok := f.events[r.PathValue("id")]
		if !ok {
			notFound(w)
			return
		}
		if patch.Summary != "" {
			ev.Summary = patch.Summary
		}
		if patch.Description != "" {
			ev.Description = patch.Description
		}
		if patch.ColorId != "" {
			ev.ColorId = patch.ColorId
		}
		if patch.Start != nil {
			ev.Start, ev.End = patch.Start, patch.End
		}
		writeJSON(w, ev)
	})
	mux.HandleFunc("DELETE /calendars/{cal}/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.events[r.PathValue("id")]; !ok {
			notFound(w)
			return
		}
		delete(f.events, r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Not Found"}}`))
}

func newTestClient(t *testing.T) (*CalendarClient, *fakeCalendar, *index.EventIndex) {
	t.Helper()
	fake := &fakeCalendar{events: map[string]*gcal.Event{}}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	idx, err := index.NewEventIndex(filepath.Join(t.TempDir(), "events.json"))
	if err != nil {
		t.Fatalf("NewEventIndex failed: %v", err)
	}
	client, err := NewClientWithOptions(context.Background(), "Tasks", idx,
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	if err != nil {
		t.Fatalf("NewClientWithOptions failed: %v", err)
	}
	if client.calendarID != "cal-1" {
		t.Fatalf("Expected calendar cal-1, got %s", client.calendarID)
	}
	return client, fake, idx
}

func TestSync(t *testing.T) {
	client, fake, idx := newTestClient(t)
	now := time.Date(2029, 12, 1, 9, 0, 0, 0, time.Local)

	tasks := []model.Task{
		{ID: 1, Title: "Report", Priority: model.PriorityHigh, Status: model.StatusPending, Deadline: "01/01/30"},
		{ID: 2, Title: "Gym", Priority: model.PriorityLow, Status: model.StatusPending, Deadline: "02/01/30"},
	}

	res, err := client.Sync(calendar.Project(tasks), now)
	if err != nil {
		t.Fatalf("first Sync failed: %v", err)
	}
	if res.Created != 2 {
		t.Errorf("Expected 2 created, got %+v", res)
	}
	if idx.Get(1) == "" || idx.Get(2) == "" {
		t.Errorf("Expected both tasks indexed, got %v", idx.Mappings)
	}

	res, err = client.Sync(calendar.Project(tasks), now)
	if err != nil {
		t.Fatalf("second Sync failed: %v", err)
	}
	if res.Unchanged != 2 || res.Created != 0 {
		t.Errorf("Expected 2 unchanged, got %+v", res)
	}

	tasks[0].Title = "Quarterly report"
	res, err = client.Sync(calendar.Project(tasks[:1]), now)
	if err != nil {
		t.Fatalf("third Sync failed: %v", err)
	}
	if res.Updated != 1 || res.Deleted != 1 {
		t.Errorf("Expected 1 updated and 1 deleted, got %+v", res)
	}
	if idx.Get(2) != "" {
		t.Error("Expected task 2 to be dropped from the index")
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.events) != 1 {
		t.Fatalf("Expected 1 remaining event, got %d", len(fake.events))
	}
	for _, ev := range fake.events {
		if !strings.HasSuffix(ev.Summary, "Quarterly report") {
			t.Errorf("Expected patched summary, got %q", ev.Summary)
		}
	}
}

func TestSyncRecoversLostIndex(t *testing.T) {
	client, _, idx := newTestClient(t)
	now := time.Date(2029, 12, 1, 9, 0, 0, 0, time.Local)
	tasks := []model.Task{{ID: 9, Title: "Essay", Priority: model.PriorityMedium, Status: model.StatusPending, Deadline: "03/01/30"}}

	if _, err := client.Sync(calendar.Project(tasks), now); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	idx.Remove(9)

	res, err := client.Sync(calendar.Project(tasks), now)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if res.Created != 0 || res.Unchanged != 1 {
		t.Errorf("Expected the event to be found by extended property, got %+v", res)
	}
	if idx.Get(9) == "" {
		t.Error("Expected mapping to be restored")
	}
}
