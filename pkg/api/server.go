package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harrisonrobin/tasker/pkg/backup"
	"github.com/harrisonrobin/tasker/pkg/calendar"
	"github.com/harrisonrobin/tasker/pkg/matrix"
	"github.com/harrisonrobin/tasker/pkg/query"
	"github.com/harrisonrobin/tasker/pkg/schedule"
	"github.com/harrisonrobin/tasker/pkg/store"
)

// Server exposes the task store and its views as JSON.
type Server struct {
	store      *store.Store
	engine     *query.Engine
	scheduler  *schedule.Scheduler
	classifier *matrix.Classifier
	projector  *calendar.Projector
	backups    *backup.Manager

	router *gin.Engine
	http   *http.Server
}

// NewServer wires every view to st. backups may be nil, in which case the backup routes answer 503.
func NewServer(st *store.Store, backups *backup.Manager) *Server {
	engine := query.NewEngine(st)
	s := &Server{
		store:      st,
		engine:     engine,
		scheduler:  schedule.NewScheduler(engine),
		classifier: matrix.NewClassifier(engine),
		projector:  calendar.NewProjector(engine),
		backups:    backups,
		router:     gin.New(),
	}
	s.router.Use(gin.Recovery(), requestLogger())

	api := s.router.Group("/api")
	{
		api.GET("/tasks", s.handleList)
		api.POST("/tasks", s.handleAdd)
		api.GET("/tasks/:id", s.handleGet)
		api.PATCH("/tasks/:id", s.handleUpdate)
		api.DELETE("/tasks/:id", s.handleDelete)
		api.POST("/tasks/:id/complete", s.handleComplete)
		api.POST("/tasks/:id/archive", s.handleArchive)
		api.POST("/tasks/:id/restore", s.handleRestore)

		api.GET("/archived", s.handleArchived)
		api.GET("/schedule", s.handleSchedule)
		api.GET("/matrix", s.handleMatrix)
		api.GET("/calendar", s.handleCalendar)
		api.POST("/reconcile", s.handleReconcile)

		api.GET("/backup", s.handleLatestBackup)
		api.POST("/backup", s.handleBackup)
		api.POST("/backup/restore", s.handleRestoreBackup)
	}
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds addr and serves in the background. A bind failure is returned to the caller.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("[api] Listening on %s", ln.Addr())
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[api] Server error: %v", err)
		}
	}()
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	log.Println("[api] Shutting down")
	return s.http.Shutdown(ctx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("[api] %s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
