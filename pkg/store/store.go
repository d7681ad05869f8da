package store

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/harrisonrobin/tasker/pkg/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options configures how the database file is opened.
type Options struct {
	Debug bool
}

// Store is the durable task table. Every method takes the store lock, so callers sharing one
// Store are serialised and there is at most one writer at a time.
type Store struct {
	path string
	opts Options

	mu sync.Mutex
	db *gorm.DB
}

// NewTaskInput carries the fields supplied when a task is created.
type NewTaskInput struct {
	Title         string
	Priority      model.Priority
	Status        model.Status
	Deadline      model.Deadline
	EstimatedTime float64
	Category      model.Category
}

// ParseTaskInput builds a NewTaskInput from user text. Empty priority, status or category fall
// back to Medium, Pending and Work.
func ParseTaskInput(title, priority, status, deadline, category string, estimated float64) (NewTaskInput, error) {
	in := NewTaskInput{
		Title:         title,
		Priority:      model.PriorityMedium,
		Status:        model.StatusPending,
		Deadline:      model.Deadline(deadline),
		EstimatedTime: estimated,
		Category:      model.CategoryWork,
	}
	var err error
	if strings.TrimSpace(priority) != "" {
		if in.Priority, err = model.ParsePriority(priority); err != nil {
			return in, err
		}
	}
	if strings.TrimSpace(status) != "" {
		if in.Status, err = model.ParseStatus(status); err != nil {
			return in, err
		}
	}
	if strings.TrimSpace(category) != "" {
		if in.Category, err = model.ParseCategory(category); err != nil {
			return in, err
		}
	}
	return in, nil
}

// Changes lists the fields an Update may set. Nil fields are left untouched.
type Changes struct {
	Status        *model.Status
	TimeSpent     *float64
	Title         *string
	EstimatedTime *float64
}

// Empty reports whether no field is set.
func (c Changes) Empty() bool {
	return c.Status == nil && c.TimeSpent == nil && c.Title == nil && c.EstimatedTime == nil
}

// Open connects to the sqlite file at path and migrates the tasks table.
func Open(path string, opts Options) (*Store, error) {
	s := &Store{path: path, opts: opts}
	db, err := s.connect()
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.Task{}); err != nil {
		closeDB(db)
		return nil, &model.StorageError{Op: "migrate", Err: err}
	}
	s.db = db
	log.Printf("[store] Opened task database: %s", path)
	return s, nil
}

func (s *Store) connect() (*gorm.DB, error) {
	logLevel := logger.Silent
	if s.opts.Debug {
		logLevel = logger.Info
	}
	db, err := gorm.Open(sqlite.Open(s.path), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, &model.StorageError{Op: "open", Err: err}
	}
	// A single connection keeps each statement against one sqlite handle.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Path returns the location of the database file.
func (s *Store) Path() string {
	return s.path
}

// Close releases the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := closeDB(s.db)
	s.db = nil
	if err != nil {
		return &model.StorageError{Op: "close", Err: err}
	}
	log.Println("[store] Database connection closed")
	return nil
}

// Exclusive closes the connection, runs fn against the raw database file and reconnects.
// No other store operation can run while fn executes.
func (s *Store) Exclusive(fn func(path string) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		if err := closeDB(s.db); err != nil {
			return &model.StorageError{Op: "close", Err: err}
		}
		s.db = nil
	}

	fnErr := fn(s.path)

	db, err := s.connect()
	if err != nil {
		return errors.Join(fnErr, err)
	}
	s.db = db
	return fnErr
}

func (s *Store) handle() (*gorm.DB, error) {
	if s.db == nil {
		return nil, &model.StorageError{Op: "access", Err: errors.New("store is closed")}
	}
	return s.db, nil
}

// Add validates and persists a new task, returning its id.
func (s *Store) Add(in NewTaskInput) (int64, error) {
	task, err := model.NewTask(in.Title, in.Priority, in.Status, in.Deadline, in.EstimatedTime, in.Category)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	if err := db.Create(task).Error; err != nil {
		return 0, &model.StorageError{Op: "add", Err: err}
	}
	return task.ID, nil
}

// Get returns the task with the given id.
func (s *Store) Get(id int64) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	return s.find(db, id)
}

func (s *Store) find(db *gorm.DB, id int64) (*model.Task, error) {
	var task model.Task
	if err := db.First(&task, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &model.NotFoundError{ID: id}
		}
		return nil, &model.StorageError{Op: "get", Err: err}
	}
	return &task, nil
}

// List returns every task in storage order.
func (s *Store) List() ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	var tasks []model.Task
	if err := db.Order("id").Find(&tasks).Error; err != nil {
		return nil, &model.StorageError{Op: "list", Err: err}
	}
	return tasks, nil
}

// Update applies the provided fields in one transaction. Setting the status to Completed
// also archives the task.
func (s *Store) Update(id int64, c Changes) error {
	if err := validateChanges(c); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.handle()
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		task, err := s.find(tx, id)
		if err != nil {
			return err
		}
		if c.Title != nil {
			task.Title = *c.Title
		}
		if c.TimeSpent != nil {
			task.TimeSpent = *c.TimeSpent
		}
		if c.EstimatedTime != nil {
			task.EstimatedTime = *c.EstimatedTime
		}
		if c.Status != nil {
			if *c.Status == model.StatusCompleted {
				task.Complete()
			} else {
				task.Status = *c.Status
			}
		}
		if err := tx.Save(task).Error; err != nil {
			return &model.StorageError{Op: "update", Err: err}
		}
		return nil
	})
}

func validateChanges(c Changes) error {
	if c.Title != nil && strings.TrimSpace(*c.Title) == "" {
		return &model.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if c.Status != nil {
		if _, err := model.ParseStatus(string(*c.Status)); err != nil {
			return err
		}
	}
	if c.TimeSpent != nil {
		if err := model.ValidateHours("time_spent", *c.TimeSpent); err != nil {
			return err
		}
	}
	if c.EstimatedTime != nil {
		if err := model.ValidateHours("estimated_time", *c.EstimatedTime); err != nil {
			return err
		}
	}
	return nil
}

// Complete marks a task Completed and archives it in a single write.
func (s *Store) Complete(id int64) error {
	status := model.StatusCompleted
	return s.Update(id, Changes{Status: &status})
}

// Delete permanently removes a task. Deleting an unknown id is a NotFoundError.
func (s *Store) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.handle()
	if err != nil {
		return err
	}
	result := db.Delete(&model.Task{}, "id = ?", id)
	if err := result.Error; err != nil {
		return &model.StorageError{Op: "delete", Err: err}
	}
	if result.RowsAffected == 0 {
		return &model.NotFoundError{ID: id}
	}
	return nil
}

// Archive hides a task from default views without touching its status.
func (s *Store) Archive(id int64) error {
	return s.setArchived(id, true)
}

// Restore brings an archived task back. The status is left as it is.
func (s *Store) Restore(id int64) error {
	return s.setArchived(id, false)
}

func (s *Store) setArchived(id int64, archived bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.handle()
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.find(tx, id); err != nil {
			return err
		}
		if err := tx.Model(&model.Task{}).Where("id = ?", id).Update("archived", archived).Error; err != nil {
			return &model.StorageError{Op: fmt.Sprintf("set archived=%t", archived), Err: err}
		}
		return nil
	})
}

// ReconcileArchival archives every completed task that is still visible and returns how many
// rows it changed. Running it again changes nothing.
func (s *Store) ReconcileArchival() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	result := db.Model(&model.Task{}).
		Where("status = ? AND archived = ?", model.StatusCompleted, false).
		Update("archived", true)
	if err := result.Error; err != nil {
		return 0, &model.StorageError{Op: "reconcile", Err: err}
	}
	if result.RowsAffected > 0 {
		log.Printf("[store] Reconciled %d completed task(s) into the archive", result.RowsAffected)
	}
	return result.RowsAffected, nil
}
