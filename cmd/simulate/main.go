// Command simulate plays a scenario for a number of turns in-process and
// prints a per-turn summary, optionally archiving every turn to SQLite.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"

	"github.com/freeeve/warfront/internal/corps"
	"github.com/freeeve/warfront/internal/logger"
	"github.com/freeeve/warfront/internal/repository/memory"
	"github.com/freeeve/warfront/internal/repository/sqlite"
	"github.com/freeeve/warfront/internal/service"
	"github.com/freeeve/warfront/pkg/warfront"
)

type options struct {
	scenario string
	doctrine string
	turns    int
	db       string
	jsonOut  bool
	logLevel string
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("Simulation failed")
	}
}

func parseFlags(args []string) (*options, error) {
	var o options
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	fs.StringVarP(&o.scenario, "scenario", "s", "configs/scenarios/grid.yaml", "Scenario YAML file")
	fs.StringVarP(&o.doctrine, "doctrine", "d", "configs/doctrine.yaml", "Corps AI doctrine YAML file")
	fs.IntVarP(&o.turns, "turns", "n", 10, "Number of turns to play")
	fs.StringVar(&o.db, "db", ":memory:", "SQLite archive path")
	fs.BoolVar(&o.jsonOut, "json", false, "Print one JSON turn report per line")
	fs.StringVar(&o.logLevel, "log-level", "warn", "Log level")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.turns < 1 {
		return nil, fmt.Errorf("--turns must be at least 1")
	}
	return &o, nil
}

func run(ctx context.Context, args []string, out io.Writer) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(logger.ParseLevel(o.logLevel))
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	data, err := os.ReadFile(o.scenario)
	if err != nil {
		return fmt.Errorf("read scenario: %w", err)
	}
	doctrine, err := corps.LoadDoctrine(o.doctrine)
	if err != nil {
		return err
	}
	archive, err := sqlite.Open(o.db)
	if err != nil {
		return err
	}
	defer archive.Close()

	engine := service.NewEngine(corps.New(doctrine, log.Logger.With().Str("component", "corps").Logger()))
	svc := service.NewRunService(memory.NewCache(), archive, engine, nil, nil)

	r, err := svc.CreateRun(ctx, "", data)
	if err != nil {
		return err
	}
	log.Info().Str("runId", r.ID).Str("scenario", r.Scenario).Int("turns", o.turns).Msg("Simulation started")

	enc := json.NewEncoder(out)
	for i := 0; i < o.turns; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		turn, err := svc.PlayTurn(ctx, r.ID, nil)
		if err != nil {
			return fmt.Errorf("turn %d: %w", i, err)
		}
		if o.jsonOut {
			if err := enc.Encode(turn); err != nil {
				return fmt.Errorf("encode turn: %w", err)
			}
			continue
		}
		fmt.Fprintln(out, summarize(turn))
	}

	if !o.jsonOut {
		st, err := svc.GetState(ctx, r.ID)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, controlSummary(st))
	}
	return nil
}

// summarize renders one turn as a single line.
func summarize(t *service.Turn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "turn %3d: %d battles, %d flips, %d dropped", t.Report.Turn, len(t.Report.Battles), t.Report.Flips, len(t.Report.Dropped))
	for _, br := range t.Report.Battles {
		fmt.Fprintf(&b, "\n  %-10s %s -> %s  %s (%.2f)", br.Location, br.AttackerFaction, br.DefenderFaction, br.Outcome, br.Ratio)
	}
	if t.CorpsAI != nil {
		ids := make([]string, 0, len(t.CorpsAI.Stances))
		for id := range t.CorpsAI.Stances {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(&b, "\n  corps %-6s %s", id, t.CorpsAI.Stances[id])
		}
	}
	return b.String()
}

// controlSummary counts settlements held per faction.
func controlSummary(s *warfront.State) string {
	held := make(map[warfront.Faction]int)
	for _, f := range s.Control {
		held[f]++
	}
	parts := make([]string, 0, len(held))
	for _, f := range warfront.AllFactions() {
		parts = append(parts, fmt.Sprintf("%s=%d", f, held[f]))
	}
	return fmt.Sprintf("after turn %d: %s", s.Turn-1, strings.Join(parts, " "))
}
