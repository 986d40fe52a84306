package main

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/sonirico/talespin/internal/fakeserver"
)

func devServerCmd(a *app) *cobra.Command {
	var (
		addr  string
		rooms []string
	)

	cmd := &cobra.Command{
		Use:   "dev-server",
		Short: "Run a local stand-in game server",
		Long: `Run a local stand-in game server.

It speaks the wire protocol and answers JoinRoom, but applies no game
rules. Useful to try the client or to exercise reconnects by killing
and restarting it.

Examples:
  talespin dev-server --addr 127.0.0.1:8081 --room ab12`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			game := fakeserver.New()
			for _, r := range rooms {
				game.AddRoom(r)
			}
			return serveHTTP(cmd.Context(), a, addr, game)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8081", "listen address")
	cmd.Flags().StringSliceVar(&rooms, "room", nil, "room ids to create on start")
	return cmd
}

// serveHTTP runs h on addr until ctx is done.
func serveHTTP(ctx context.Context, a *app, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}

	errC := make(chan error, 1)
	go func() {
		a.logger.Infof("listening on %s", addr)
		errC <- srv.ListenAndServe()
	}()

	select {
	case err := <-errC:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
