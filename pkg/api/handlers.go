package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/harrisonrobin/tasker/pkg/backup"
	"github.com/harrisonrobin/tasker/pkg/model"
	"github.com/harrisonrobin/tasker/pkg/query"
	"github.com/harrisonrobin/tasker/pkg/store"
)

type addRequest struct {
	Title         string  `json:"title"`
	Priority      string  `json:"priority"`
	Status        string  `json:"status"`
	Deadline      string  `json:"deadline"`
	EstimatedTime float64 `json:"estimated_time"`
	Category      string  `json:"category"`
}

type updateRequest struct {
	Status        *string  `json:"status"`
	TimeSpent     *float64 `json:"time_spent"`
	Title         *string  `json:"title"`
	EstimatedTime *float64 `json:"estimated_time"`
}

func (r updateRequest) changes() (store.Changes, error) {
	c := store.Changes{
		TimeSpent:     r.TimeSpent,
		Title:         r.Title,
		EstimatedTime: r.EstimatedTime,
	}
	if r.Status != nil {
		st, err := model.ParseStatus(*r.Status)
		if err != nil {
			return c, err
		}
		c.Status = &st
	}
	return c, nil
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// fail maps domain errors onto HTTP status codes.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var ve *model.ValidationError
	var nf *model.NotFoundError
	switch {
	case errors.As(err, &ve):
		status = http.StatusBadRequest
	case errors.As(err, &nf), errors.Is(err, backup.ErrNoSnapshot):
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

func taskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, &model.ValidationError{Field: "id", Reason: "must be an integer"})
		return 0, false
	}
	return id, true
}

func (s *Server) handleList(c *gin.Context) {
	filter, err := query.ParseFilter(c.Query("filter"))
	if err != nil {
		fail(c, err)
		return
	}
	sortBy, err := query.ParseSort(c.Query("sort"))
	if err != nil {
		fail(c, err)
		return
	}
	includeArchived, err := strconv.ParseBool(c.DefaultQuery("archived", "false"))
	if err != nil {
		fail(c, &model.ValidationError{Field: "archived", Reason: "must be true or false"})
		return
	}

	tasks, err := s.engine.Query(query.Options{Filter: filter, Sort: sortBy, IncludeArchived: includeArchived})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, tasks)
}

func (s *Server) handleAdd(c *gin.Context) {
	var req addRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, &model.ValidationError{Field: "body", Reason: err.Error()})
		return
	}
	in, err := store.ParseTaskInput(req.Title, req.Priority, req.Status, req.Deadline, req.Category, req.EstimatedTime)
	if err != nil {
		fail(c, err)
		return
	}
	id, err := s.store.Add(in)
	if err != nil {
		fail(c, err)
		return
	}
	task, err := s.store.Get(id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, task)
}

func (s *Server) handleGet(c *gin.Context) {
	id, valid := taskID(c)
	if !valid {
		return
	}
	task, err := s.store.Get(id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, task)
}

func (s *Server) handleUpdate(c *gin.Context) {
	id, valid := taskID(c)
	if !valid {
		return
	}
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, &model.ValidationError{Field: "body", Reason: err.Error()})
		return
	}
	changes, err := req.changes()
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.store.Update(id, changes); err != nil {
		fail(c, err)
		return
	}
	task, err := s.store.Get(id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, task)
}

func (s *Server) handleDelete(c *gin.Context) {
	id, valid := taskID(c)
	if !valid {
		return
	}
	if err := s.store.Delete(id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// transition runs a single-id store operation and answers with the resulting task.
func (s *Server) transition(c *gin.Context, op func(int64) error) {
	id, valid := taskID(c)
	if !valid {
		return
	}
	if err := op(id); err != nil {
		fail(c, err)
		return
	}
	task, err := s.store.Get(id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, task)
}

func (s *Server) handleComplete(c *gin.Context) { s.transition(c, s.store.Complete) }
func (s *Server) handleArchive(c *gin.Context)  { s.transition(c, s.store.Archive) }
func (s *Server) handleRestore(c *gin.Context)  { s.transition(c, s.store.Restore) }

func (s *Server) handleArchived(c *gin.Context) {
	tasks, err := s.engine.Archived()
	if err != nil {
		fail(c, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	ok(c, http.StatusOK, tasks)
}

func (s *Server) handleSchedule(c *gin.Context) {
	slots, err := s.scheduler.Schedule()
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, slots)
}

func (s *Server) handleMatrix(c *gin.Context) {
	m, err := s.classifier.Classify()
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, m)
}

func (s *Server) handleCalendar(c *gin.Context) {
	events, err := s.projector.Events()
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, events)
}

func (s *Server) handleReconcile(c *gin.Context) {
	n, err := s.store.ReconcileArchival()
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"archived": n})
}

func (s *Server) backupsOrFail(c *gin.Context) bool {
	if s.backups == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "backups are not configured",
		})
		return false
	}
	return true
}

func (s *Server) handleLatestBackup(c *gin.Context) {
	if !s.backupsOrFail(c) {
		return
	}
	snap, err := s.backups.Latest()
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, snap)
}

func (s *Server) handleBackup(c *gin.Context) {
	if !s.backupsOrFail(c) {
		return
	}
	snap, err := s.backups.Backup()
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, snap)
}

func (s *Server) handleRestoreBackup(c *gin.Context) {
	if !s.backupsOrFail(c) {
		return
	}
	snap, err := s.backups.Latest()
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.backups.Restore(snap); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, snap)
}
