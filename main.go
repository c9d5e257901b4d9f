// sc2run launches and drives one match of the SC2 runtime against a
// configured engine instance, serving a status dashboard alongside it.
// Bot logic lives in the agent package; this binary runs the default
// no-op agent.BaseAgent for every seat, which is enough to referee a
// match without any custom logic. The roster needs at least one Player or
// Observer seat: a Computer-only match has no participant to create the
// game and fails with coordinator.ErrNoCreator.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"sc2runtime/agent"
	"sc2runtime/config"
	"sc2runtime/coordinator"
	"sc2runtime/dashboard"
	"sc2runtime/logging"
)

var (
	configPath    *string
	enginePath    *string
	basePort      *uint
	mapName       *string
	mapPath       *string
	realtime      *bool
	stepSize      *uint
	wine          *bool
	dashboardAddr *string
	debug         *bool
)

func init() {
	configPath = flag.String("config", "./config.yaml", "path to the match config file")
	enginePath = flag.String("engine", "", "path to the engine executable (overrides config)")
	basePort = flag.Uint("base-port", 0, "base port for launched instances (overrides config)")
	mapName = flag.String("map", "", "map name known to the engine (overrides config)")
	mapPath = flag.String("map-path", "", "local map file path (overrides config)")
	realtime = flag.Bool("realtime", false, "run in realtime mode (overrides config)")
	stepSize = flag.Uint("step-size", 0, "simulation steps per Update in non-realtime mode (overrides config)")
	wine = flag.Bool("wine", false, "launch the engine under wine (overrides config)")
	dashboardAddr = flag.String("dashboard-addr", "", "dashboard listen address (overrides config)")
	debug = flag.Bool("debug", false, "enable debug-level logging")
	flag.Parse()
}

func run() error {
	if *debug {
		logging.Configure(os.Stderr, zerolog.DebugLevel)
	}

	cfg, err := config.FromYAML(*configPath)
	if err != nil {
		return err
	}
	cfg = config.ApplyOverrides(cfg, *enginePath, uint16(*basePort), *mapName, *mapPath, *realtime, uint32(*stepSize), *wine, *dashboardAddr)
	if err := cfg.Validate(); err != nil {
		return err
	}

	agents := make([]agent.Agent, len(cfg.Participants))
	for i := range agents {
		agents[i] = agent.BaseAgent{}
	}

	coord, err := coordinator.FromSettings(cfg, agents)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	board := dashboard.New(cfg.DashboardAddr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return board.Serve(gctx, coord.Stats())
	})
	g.Go(func() error {
		defer cancel()
		return coord.Run(gctx)
	})

	return g.Wait()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
