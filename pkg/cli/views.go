package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/tasker/pkg/calendar"
	"github.com/harrisonrobin/tasker/pkg/google"
	"github.com/harrisonrobin/tasker/pkg/index"
	"github.com/harrisonrobin/tasker/pkg/matrix"
	"github.com/harrisonrobin/tasker/pkg/schedule"
)

const (
	slotLayout  = "Mon 02/01 15:04"
	eventsIndex = "events.json"
)

func scheduleCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Lay out open tasks back to back from now, earliest deadline first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			slots, err := schedule.NewScheduler(a.engine).Schedule()
			if err != nil {
				return err
			}
			return a.emit(slots, func(w io.Writer) {
				if len(slots) == 0 {
					fmt.Fprintln(w, "Nothing to schedule.")
					return
				}
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tTITLE\tPRIORITY\tSTART\tEND")
				for _, s := range slots {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
						s.TaskID, s.Title, s.Priority, s.Start.Format(slotLayout), s.End.Format(slotLayout))
				}
				tw.Flush()
			})
		},
	}
}

func matrixCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "matrix",
		Short: "Show active tasks in the Eisenhower matrix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			m, err := matrix.NewClassifier(a.engine).Classify()
			if err != nil {
				return err
			}
			return a.emit(m, func(w io.Writer) {
				for q, tasks := range m.Quadrants() {
					fmt.Fprintf(w, "== %s (%d)\n", matrix.Quadrant(q), len(tasks))
					for _, t := range tasks {
						fmt.Fprintf(w, "  %d  %s  [%s, due %s]\n", t.ID, t.Title, t.Priority, t.Deadline)
					}
				}
			})
		},
	}
}

func calendarCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Calendar projection of tasks with a deadline",
	}
	cmd.AddCommand(calendarShowCmd(g), calendarPushCmd(g))
	return cmd
}

func calendarShowCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print one all-day event per task on its deadline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			events, err := calendar.NewProjector(a.engine).Events()
			if err != nil {
				return err
			}
			return a.emit(events, func(w io.Writer) {
				if len(events) == 0 {
					fmt.Fprintln(w, "No events.")
					return
				}
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "DATE\tID\tTITLE\tCOLOR")
				for _, e := range events {
					fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", e.Start(), e.TaskID, e.Title, e.Color)
				}
				tw.Flush()
			})
		},
	}
}

func calendarPushCmd(g *globals) *cobra.Command {
	var calendarName string

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Mirror the projection into Google Calendar",
		Long: `Create, patch or delete Google Calendar events so the calendar matches the projection.
Run 'tasker auth' once first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			selected := a.cfg.Calendar
			if calendarName != "" {
				selected = calendarName
			}

			events, err := calendar.NewProjector(a.engine).Events()
			if err != nil {
				return err
			}

			evtIndex, err := index.NewEventIndex(filepath.Join(a.configDir, eventsIndex))
			if err != nil {
				return fmt.Errorf("failed to load event index: %w", err)
			}
			client, err := google.NewClient(cmd.Context(), a.configDir, selected, evtIndex)
			if err != nil {
				return fmt.Errorf("error creating Google Calendar client: %w", err)
			}
			res, err := client.Sync(events, time.Now())
			if err != nil {
				return err
			}
			return a.emit(res, func(w io.Writer) {
				fmt.Fprintf(w, "Synced %q: %d created, %d updated, %d unchanged, %d deleted\n",
					selected, res.Created, res.Updated, res.Unchanged, res.Deleted)
			})
		},
	}
	cmd.Flags().StringVar(&calendarName, "calendar", "", "Google Calendar name to sync with (overrides config)")
	return cmd
}
