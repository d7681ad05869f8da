package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
)

// EventIndex remembers which Google event mirrors which task.
type EventIndex struct {
	Mappings map[string]string `json:"mappings"`
	Path     string            `json:"-"`
	mu       sync.RWMutex
	dirty    bool
}

// NewEventIndex loads the index stored at path, or starts an empty one.
func NewEventIndex(path string) (*EventIndex, error) {
	idx := &EventIndex{
		Mappings: make(map[string]string),
		Path:     path,
	}

	if _, err := os.Stat(path); err == nil {
		if err := idx.Load(); err != nil {
			return nil, err
		}
	}

	return idx, nil
}

func (idx *EventIndex) Load() error {
	f, err := os.Open(idx.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(&idx.Mappings)
}

func (idx *EventIndex) Save() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if !idx.dirty {
		return nil
	}

	dir := filepath.Dir(idx.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	f, err := os.Create(idx.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(idx.Mappings); err != nil {
		return err
	}
	idx.dirty = false
	return nil
}

func key(taskID int64) string {
	return strconv.FormatInt(taskID, 10)
}

func (idx *EventIndex) Get(taskID int64) string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.Mappings[key(taskID)]
}

func (idx *EventIndex) Set(taskID int64, eventID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.Mappings[key(taskID)] != eventID {
		idx.Mappings[key(taskID)] = eventID
		idx.dirty = true
	}
}

func (idx *EventIndex) Remove(taskID int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, exists := idx.Mappings[key(taskID)]; exists {
		delete(idx.Mappings, key(taskID))
		idx.dirty = true
	}
}

// TaskIDs lists the mapped tasks in ascending order. Malformed keys are skipped.
func (idx *EventIndex) TaskIDs() []int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ids := make([]int64, 0, len(idx.Mappings))
	for k := range idx.Mappings {
		if id, err := strconv.ParseInt(k, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
