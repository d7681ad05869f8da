package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/tasker/pkg/config"
	"github.com/harrisonrobin/tasker/pkg/model"
	"github.com/harrisonrobin/tasker/pkg/query"
	"github.com/harrisonrobin/tasker/pkg/store"
)

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	dbPath  string
	jsonOut bool
}

// app is the per-invocation state: loaded config and an open store.
type app struct {
	cfg       *config.Config
	configDir string
	store     *store.Store
	engine    *query.Engine
	out       io.Writer
	json      bool
}

func (g *globals) loadConfig() (*config.Config, string, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, "", fmt.Errorf("could not find path to configuration directory: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, "", err
	}
	for _, c := range cfg.Categories {
		model.RegisterCategory(model.Category(c))
	}
	if g.dbPath != "" {
		cfg.DBPath = g.dbPath
	}
	return cfg, dir, nil
}

// open loads config and opens the store. Callers must Close the returned app.
func (g *globals) open(cmd *cobra.Command) (*app, error) {
	cfg, dir, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.Open(cfg.DBPath, store.Options{Debug: cfg.DBDebug})
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:       cfg,
		configDir: dir,
		store:     st,
		engine:    query.NewEngine(st),
		out:       cmd.OutOrStdout(),
		json:      g.jsonOut,
	}, nil
}

func (a *app) Close() {
	a.store.Close()
}

// emit prints v as indented JSON when --json is set, otherwise calls text.
func (a *app) emit(v any, text func(w io.Writer)) error {
	if a.json {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(a.out)
	return nil
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:   "tasker",
		Short: "tasker - personal task manager with scheduling and an Eisenhower matrix",
		Long: `tasker keeps tasks in a local sqlite file and derives a sequential schedule,
an Eisenhower matrix and a calendar projection from them.

The calendar can be pushed to Google Calendar after running 'tasker auth'.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.dbPath, "db", "", "task database file (overrides config)")
	root.PersistentFlags().BoolVar(&g.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		addCmd(g),
		updateCmd(g),
		completeCmd(g),
		deleteCmd(g),
		archiveCmd(g),
		restoreCmd(g),
		getCmd(g),
		listCmd(g),
		archivedCmd(g),
		reconcileCmd(g),
		scheduleCmd(g),
		matrixCmd(g),
		calendarCmd(g),
		backupCmd(g),
		restoreBackupCmd(g),
		authCmd(g),
		configCmd(g),
		serveCmd(g),
	)
	return root
}

// Execute runs the root command.
func Execute(version string) error {
	if err := NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
