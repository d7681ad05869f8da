package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/tasker/pkg/model"
	"github.com/harrisonrobin/tasker/pkg/query"
	"github.com/harrisonrobin/tasker/pkg/store"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &model.ValidationError{Field: "id", Reason: fmt.Sprintf("%q is not an integer", s)}
	}
	return id, nil
}

func printTasks(w io.Writer, tasks []model.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPRIORITY\tSTATUS\tDEADLINE\tEST\tSPENT\tPROGRESS\tCATEGORY")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%.1fh\t%.1fh\t%.0f%%\t%s\n",
			t.ID, t.Title, t.Priority, t.Status, t.Deadline, t.EstimatedTime, t.TimeSpent, t.Progress(), t.Category)
	}
	tw.Flush()
}

func addCmd(g *globals) *cobra.Command {
	var priority, status, deadline, category string
	var estimate float64

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Long: `Add a task. The deadline is DD/MM/YY; text that does not parse is kept as entered
and the task is left out of the schedule and the calendar.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := store.ParseTaskInput(strings.Join(args, " "), priority, status, deadline, category, estimate)
			if err != nil {
				return err
			}
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.store.Add(in)
			if err != nil {
				return err
			}
			task, err := a.store.Get(id)
			if err != nil {
				return err
			}
			if _, err := task.Deadline.Date(); task.Deadline.IsSet() && err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
			}
			return a.emit(task, func(w io.Writer) {
				fmt.Fprintf(w, "Added task %d: %s\n", task.ID, task.Title)
			})
		},
	}
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "High, Medium or Low (default Medium)")
	cmd.Flags().StringVarP(&status, "status", "s", "", "Pending, In Progress or Completed (default Pending)")
	cmd.Flags().StringVarP(&deadline, "deadline", "d", "", "deadline as DD/MM/YY")
	cmd.Flags().Float64VarP(&estimate, "estimate", "e", 0, "estimated hours")
	cmd.Flags().StringVarP(&category, "category", "c", "", "task category (default Work)")
	return cmd
}

func updateCmd(g *globals) *cobra.Command {
	var status, title string
	var spent, estimate float64

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update status, time spent, title or estimate of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var c store.Changes
			flags := cmd.Flags()
			if flags.Changed("status") {
				st, err := model.ParseStatus(status)
				if err != nil {
					return err
				}
				c.Status = &st
			}
			if flags.Changed("spent") {
				c.TimeSpent = &spent
			}
			if flags.Changed("title") {
				c.Title = &title
			}
			if flags.Changed("estimate") {
				c.EstimatedTime = &estimate
			}
			if c.Empty() {
				return fmt.Errorf("nothing to update, pass at least one of --status, --spent, --title, --estimate")
			}

			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.Update(id, c); err != nil {
				return err
			}
			task, err := a.store.Get(id)
			if err != nil {
				return err
			}
			return a.emit(task, func(w io.Writer) {
				printTasks(w, []model.Task{*task})
			})
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "new status")
	cmd.Flags().Float64Var(&spent, "spent", 0, "hours spent so far")
	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().Float64VarP(&estimate, "estimate", "e", 0, "new estimate in hours")
	return cmd
}

// idCmd builds a command that runs one store operation per id argument.
func idCmd(g *globals, use, short, verb string, op func(*store.Store, int64) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			for _, id := range ids {
				if err := op(a.store, id); err != nil {
					return err
				}
				if !a.json {
					fmt.Fprintf(a.out, "%s task %d\n", verb, id)
				}
			}
			if a.json {
				return a.emit(map[string]any{"ids": ids, "action": strings.ToLower(verb)}, nil)
			}
			return nil
		},
	}
}

func completeCmd(g *globals) *cobra.Command {
	return idCmd(g, "complete", "Mark tasks Completed (this also archives them)", "Completed", (*store.Store).Complete)
}

func deleteCmd(g *globals) *cobra.Command {
	return idCmd(g, "delete", "Delete tasks permanently", "Deleted", (*store.Store).Delete)
}

func archiveCmd(g *globals) *cobra.Command {
	return idCmd(g, "archive", "Hide tasks from the active views", "Archived", (*store.Store).Archive)
}

func restoreCmd(g *globals) *cobra.Command {
	return idCmd(g, "restore", "Bring archived tasks back into the active views", "Restored", (*store.Store).Restore)
}

func getCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			task, err := a.store.Get(id)
			if err != nil {
				return err
			}
			return a.emit(task, func(w io.Writer) {
				printTasks(w, []model.Task{*task})
			})
		},
	}
}

func listCmd(g *globals) *cobra.Command {
	var filter, sortBy string
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active tasks",
		Long: `List tasks that are not archived.

Filters: None, High, Medium, Low, Pending, "In Progress", Completed, Overdue, Today.
Sorts: None, "Due Date", Priority, "Time to Complete".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := query.ParseFilter(filter)
			if err != nil {
				return err
			}
			s, err := query.ParseSort(sortBy)
			if err != nil {
				return err
			}
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			tasks, err := a.engine.Query(query.Options{Filter: f, Sort: s, IncludeArchived: all})
			if err != nil {
				return err
			}
			return a.emit(tasks, func(w io.Writer) {
				printTasks(w, tasks)
			})
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "filter to apply")
	cmd.Flags().StringVar(&sortBy, "sort", "", "sort order")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include archived tasks")
	return cmd
}

func archivedCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "archived",
		Short: "List archived tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			tasks, err := a.engine.Archived()
			if err != nil {
				return err
			}
			return a.emit(tasks, func(w io.Writer) {
				printTasks(w, tasks)
			})
		},
	}
}

func reconcileCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Archive every Completed task that is still active",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.store.ReconcileArchival()
			if err != nil {
				return err
			}
			return a.emit(map[string]int64{"archived": n}, func(w io.Writer) {
				fmt.Fprintf(w, "Archived %d completed task(s)\n", n)
			})
		},
	}
}
