package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sonirico/talespin"
)

func playCmd(a *app) *cobra.Command {
	var room, name, metricsAddr string

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Join a room and play from the terminal",
		Long: `Join a room and play from the terminal.

Events from the server are printed as they arrive. Type commands on
stdin; they are delivered in order even across reconnects.

` + commandHelp + `

Examples:
  talespin play --room ab12 --name Ann
  talespin play --room ab12 --name Ann --metrics-addr 127.0.0.1:9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("metrics-addr") {
				a.cfg.MetricsAddr = metricsAddr
			}
			return runPlay(cmd.Context(), a, room, name, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&room, "room", "r", "", "room id to join")
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name, up to 30 characters")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	_ = cmd.MarkFlagRequired("room")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// lockedWriter serialises prints coming from the dispatch goroutine and the prompt.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) println(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func runPlay(ctx context.Context, a *app, room, name string, in io.Reader, out io.Writer) error {
	exists, err := a.lobby().RoomExists(ctx, room)
	if err != nil {
		return err
	}
	if !exists {
		return errors.Wrap(talespin.ErrRoomNotFound, room)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := talespin.NewMetrics(talespin.WithRegistry(reg))

	opts := append(a.cfg.SessionOptions(),
		talespin.WithLogger(a.logger),
		talespin.WithMetrics(metrics),
	)
	session := talespin.NewWebsocketSession(a.cfg.Endpoints(), nil, opts...)
	defer session.Close()

	w := &lockedWriter{w: out}
	session.AddHandler(func(ev talespin.Event) {
		w.println(describe(ev, name))
	})
	session.OnLifecycle(talespin.EventConnect, func(talespin.LifecycleEvent) {
		w.println("-- connected")
	})
	session.OnLifecycle(talespin.EventClose, func(talespin.LifecycleEvent) {
		w.println("-- connection lost, reconnecting")
	})

	coordinator, err := talespin.NewRejoinCoordinator(session, room, name, a.logger)
	if err != nil {
		return err
	}
	coordinator.Start()

	if err := session.Open(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	lines := make(chan string)
	go readLines(in, lines)

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				session.Close()
				return nil
			case <-session.CloseChan():
				return nil
			case line, ok := <-lines:
				if !ok {
					session.Close()
					return nil
				}
				intent, quit, err := parseCommand(line)
				switch {
				case err != nil:
					w.println(err.Error() + "\n" + commandHelp)
				case quit:
					session.Close()
					return nil
				case intent != nil:
					session.Send(intent)
				}
			}
		}
	})

	g.Go(func() error {
		<-session.Done()
		select {
		case <-coordinator.Abandoned():
			return errors.Wrap(talespin.ErrRoomNotFound, coordinator.RoomID())
		default:
		}
		if err := session.Err(); err != nil && !errors.Is(err, talespin.ErrSessionClosed) {
			return err
		}
		return nil
	})

	if addr := a.cfg.MetricsAddr; addr != "" {
		r := chi.NewRouter()
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		g.Go(func() error {
			// stop serving once the session is over
			sctx, cancel := context.WithCancel(gctx)
			defer cancel()
			go func() {
				select {
				case <-session.Done():
					cancel()
				case <-sctx.Done():
				}
			}()
			return serveHTTP(sctx, a, addr, r)
		})
	}

	return g.Wait()
}

// readLines forwards stdin line by line until EOF. It is not supervised: a blocked
// read on a terminal cannot be interrupted.
func readLines(in io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
}
