// cmd/server/main.go
//
// Command monopolyd runs the authoritative session server for the online
// board game: lobby lifecycle, turn sequencing, dice and tile resolution,
// and the WebSocket broadcast contract. All game state is in-memory and
// lost on exit.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/monopoly-online/session-service/internal/catalog"
	"github.com/monopoly-online/session-service/internal/game"
	"github.com/monopoly-online/session-service/internal/handlers"
	"github.com/monopoly-online/session-service/internal/middleware"
)

func main() {
	cmd := &cli.Command{
		Name:  "monopolyd",
		Usage: "authoritative session server for the online board game",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   ":8080",
				Usage:   "listen address",
				Sources: cli.EnvVars("MONOPOLY_ADDR"),
			},
			&cli.StringFlag{
				Name:    "board",
				Usage:   "path to a board catalog JSON file (embedded default if unset)",
				Sources: cli.EnvVars("MONOPOLY_BOARD"),
			},
			&cli.StringFlag{
				Name:    "pawns",
				Usage:   "path to a pawn set JSON file (embedded default if unset)",
				Sources: cli.EnvVars("MONOPOLY_PAWNS"),
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable debug logging",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	logger := logrus.New()
	if cmd.Bool("verbose") {
		logger.SetLevel(logrus.DebugLevel)
	}

	cat, err := catalog.Load(cmd.String("board"), cmd.String("pawns"))
	if err != nil {
		return fmt.Errorf("load board catalog: %w", err)
	}
	logger.Infof("catalog loaded: %d tiles, %d pawns", len(cat.Board), len(cat.Pawns))

	registry := game.NewRegistry(cat)

	mux := http.NewServeMux()
	mux.HandleFunc("/", handlers.PingHandler)
	mux.Handle("/ws", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.GameWSHandler(logger, registry),
	)))

	server := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	l, err := net.Listen("tcp", cmd.String("addr"))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	logger.Infof("listening on %s", l.Addr())

	errc := make(chan error, 1)
	go func() {
		errc <- server.Serve(l)
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	select {
	case err := <-errc:
		logger.Errorf("failed to serve: %v", err)
		return err
	case sig := <-sigs:
		logger.Infof("terminating: %v", sig)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
