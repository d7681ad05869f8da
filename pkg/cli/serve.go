package cli

import (
	"context"
	"log"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/spf13/cobra"

	"github.com/harrisonrobin/tasker/pkg/api"
)

const shutdownTimeout = 30 * time.Second

// exitCode is reported by serve once shutdown completes; main passes it to os.Exit.
var exitCode int

// ExitCode returns the status the last serve run finished with.
func ExitCode() int {
	return exitCode
}

func serveCmd(g *globals) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			addr := a.cfg.Listen
			if listen != "" {
				addr = listen
			}

			srv := api.NewServer(a.store, a.backups())
			if err := srv.Start(addr); err != nil {
				a.Close()
				return err
			}

			wait := gfshutdown.GracefulShutdown(
				context.Background(),
				shutdownTimeout,
				map[string]gfshutdown.Operation{
					// The store closes only after in-flight requests have drained.
					"tasker-api": func(ctx context.Context) error {
						if err := srv.Shutdown(ctx); err != nil {
							return err
						}
						return a.store.Close()
					},
				},
			)

			exitCode = <-wait
			log.Printf("Server exited with code: %d", exitCode)
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (overrides config)")
	return cmd
}
