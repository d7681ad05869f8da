package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/tasker/pkg/backup"
)

func (a *app) backups() *backup.Manager {
	return backup.NewManager(a.store, a.cfg.BackupPath)
}

func backupCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Copy the task database into the backup slot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := a.backups().Backup()
			if err != nil {
				return err
			}
			return a.emit(snap, func(w io.Writer) {
				fmt.Fprintf(w, "Backup %s written to %s (%d bytes)\n", snap.ID, snap.Path, snap.Size)
			})
		},
	}
}

func restoreBackupCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "restore-backup",
		Short: "Replace the task database with the last backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			m := a.backups()
			snap, err := m.Latest()
			if err != nil {
				return err
			}
			if err := m.Restore(snap); err != nil {
				return err
			}
			return a.emit(snap, func(w io.Writer) {
				fmt.Fprintf(w, "Restored backup %s taken %s\n", snap.ID, snap.CreatedAt.Local().Format("02/01/06 15:04"))
			})
		},
	}
}
