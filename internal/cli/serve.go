package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eigerco/ubjson/pkg/docserver"
	"github.com/eigerco/ubjson/pkg/docstore"
	"github.com/eigerco/ubjson/pkg/log"
)

func (a *app) serveCmd() *cobra.Command {
	var socketPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the document store over a unix socket",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return a.withStore(func(s *docstore.Store) error {
				srv := docserver.NewServer(socketPath, s, docserver.PeerInfo{
					Name:    "ubjson",
					Version: docserver.Version{Major: 0, Minor: 1, Patch: 0},
				}, a.decoderOptions()...)
				if err := srv.Listen(); err != nil {
					return err
				}
				go func() {
					<-ctx.Done()
					log.CLI.Info().Msg("shutting down")
					_ = srv.Stop()
				}()
				return srv.Serve(context.WithoutCancel(ctx))
			})
		},
	}
	cmd.Flags().StringVar(&socketPath, "socket", "/tmp/ubjson.sock", "unix socket path")
	return cmd
}
