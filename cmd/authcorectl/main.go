// authcorectl runs the session store's out-of-band maintenance operations:
// the expiry sweep, device-counter reconciliation, and a statistics read.
// Intended for cron or an operator shell, not the request path.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/eduportal/authcore/session"
)

var cli struct {
	RedisAddr string `help:"Redis address." default:"localhost:6379"`
	RedisDB   int    `help:"Redis database." default:"0"`
	Prefix    string `help:"Key namespace prefix." default:"ac"`
	Debug     bool   `help:"Enable debug logging."`

	Sweep     SweepCmd     `cmd:"" help:"Destroy expired sessions and prune stale membership entries."`
	Reconcile ReconcileCmd `cmd:"" help:"Re-derive device counters from live sessions."`
	Stats     StatsCmd     `cmd:"" help:"Print the aggregate session statistics."`
}

type Globals struct {
	Store  *session.Store
	Logger zerolog.Logger
}

type SweepCmd struct{}

func (c *SweepCmd) Run(g *Globals) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	destroyed, err := g.Store.SweepExpired(ctx)
	if err != nil {
		return err
	}
	g.Logger.Info().Int("destroyed", destroyed).Msg("sweep finished")
	return nil
}

type ReconcileCmd struct{}

func (c *ReconcileCmd) Run(g *Globals) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	return g.Store.ReconcileCounters(ctx)
}

type StatsCmd struct{}

func (c *StatsCmd) Run(g *Globals) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stats := g.Store.Statistics(ctx)
	fmt.Printf("active users:   %d\n", stats.ActiveUsers)
	fmt.Printf("total sessions: %d\n", stats.TotalSessions)
	for _, category := range session.Categories {
		fmt.Printf("  %-8s %d\n", category.String(), stats.ByDevice[category.String()])
	}
	return nil
}

func setupLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()
}

func main() {
	cmd := kong.Parse(&cli,
		kong.Name("authcorectl"),
		kong.Description("Session store maintenance."))

	logger := setupLogger(cli.Debug)
	client := redis.NewClient(&redis.Options{Addr: cli.RedisAddr, DB: cli.RedisDB})
	defer client.Close()

	store := session.NewStore(client, cli.Prefix, session.Config{}, logger)

	err := cmd.Run(&Globals{Store: store, Logger: logger})
	cmd.FatalIfErrorf(err)
}
