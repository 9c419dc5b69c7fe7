package console

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/km-arc/go-fenix/framework/app"
)

type serveCmd struct {
	envFiles []string
}

func (c *serveCmd) registerFlags() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Boot the application and serve the registry inspector",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringSliceVar(&c.envFiles, "env-file", nil, ".env files to load (default .env)")
	return cmd
}

func (c *serveCmd) run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return serve(ctx, c.envFiles)
}

func serve(ctx context.Context, envFiles []string) error {
	a, err := app.New(envFiles...)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}
