// Package coordinator orchestrates a whole match: launching one engine
// instance per non-Computer participant, driving the create/join handshake,
// and running the tick barrier that fans observation requests out and
// commands back in across every participant each step (spec.md §4.5).
package coordinator

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sync/errgroup"

	"sc2runtime/agent"
	"sc2runtime/config"
	"sc2runtime/launcher"
	"sc2runtime/logging"
	"sc2runtime/participant"
	"sc2runtime/protocol"
	"sc2runtime/transport"
	"sc2runtime/worldstate"
)

// Outcome is the coordinator-wide result of one Update call (spec.md §4.5:
// "update() -> StepOutcome in {Continue, End, Error(e)}"; the Error variant
// is carried as Update's returned error instead of a third Outcome value).
type Outcome uint8

const (
	OutcomeContinue Outcome = iota
	OutcomeEnd
)

func (o Outcome) String() string {
	if o == OutcomeEnd {
		return "End"
	}
	return "Continue"
}

// Coordinator owns every Participant in a match plus the shared static
// GameData fetched once after the lobby forms.
type Coordinator struct {
	settings     config.Settings
	participants []*participant.Participant
	gameData     *worldstate.GameData

	launched  bool
	fullStart bool
	tick      uint32

	stats chan Stats
}

// FromSettings builds a Coordinator and one Participant per configured seat,
// in Created state (spec.md §4.5 "from_settings(cfg) -> Coordinator"). agents
// must have exactly one entry per settings.Participants slot; nil is allowed
// for a seat that runs no bot logic (e.g. a bare Computer opponent).
func FromSettings(cfg config.Settings, agents []agent.Agent) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(agents) != len(cfg.Participants) {
		return nil, ErrAgentCountMismatch
	}

	parts := make([]*participant.Participant, len(cfg.Participants))
	for i, spec := range cfg.Participants {
		parts[i] = participant.New(spec, agents[i], cfg.StepSize, cfg.Realtime, cfg.CallTimeout)
	}

	return &Coordinator{
		settings:     cfg,
		participants: parts,
		stats:        make(chan Stats, 1),
	}, nil
}

// Stats returns the channel the dashboard (or any other consumer) can read
// match snapshots from; sends are non-blocking and drop when unread.
func (c *Coordinator) Stats() <-chan Stats { return c.stats }

// Launch starts one engine instance per non-Computer participant and opens
// its transport (spec.md §4.5 "launch(match_spec, agents[])"). Computer
// participants are left in Created state; they never get an instance.
func (c *Coordinator) Launch(ctx context.Context) error {
	if c.launched {
		return ErrAlreadyLaunched
	}

	nonComputer := c.settings.NonComputerCount()
	ports, err := launcher.ProbePorts(c.settings.BasePort, nonComputer)
	if err != nil {
		return fmt.Errorf("coordinator: %w", err)
	}

	retry := transport.DefaultRetryPolicy()
	retry.Deadline = c.settings.ReadyTimeout + c.settings.CallTimeout

	portIdx := 0
	for _, p := range c.participants {
		if p.IsComputer() {
			continue
		}
		port := ports[portIdx]
		portIdx++
		if err := p.Launch(ctx, c.settings.EnginePath, port, c.settings.WindowRect, c.settings.Wine, c.settings.ReadyTimeout, retry); err != nil {
			return fmt.Errorf("coordinator: launch participant %s: %w", p.Spec.Name, err)
		}
	}

	c.launched = true
	return nil
}

// StartGame drives the create/join handshake and blocks until every
// participant reports InGame(0) (spec.md §4.3, §4.5). Exactly the first
// non-Computer participant issues CreateGame; every other participant
// either joins (Player/Observer) or enters directly (Computer).
func (c *Coordinator) StartGame(ctx context.Context) error {
	if !c.launched {
		return ErrNotLaunched
	}

	// An unset map plus a configured replay path means there is no lobby to
	// negotiate at all: the match is pure replay playback (spec.md §2,
	// the mandatory §8 Replay scenario), not a live match that merely saves
	// a replay alongside it.
	if c.settings.Map.Name == "" && c.settings.Map.LocalPath == "" && c.settings.ReplayPath != "" {
		return c.startReplay(ctx)
	}

	creatorIdx := -1
	players := make([]protocol.PlayerSetup, len(c.participants))
	for i, p := range c.participants {
		players[i] = protocol.PlayerSetup{Role: p.Role(), Race: p.Race(), Difficulty: p.Difficulty()}
		if creatorIdx == -1 && !p.IsComputer() {
			creatorIdx = i
		}
	}
	if creatorIdx == -1 {
		return ErrNoCreator
	}

	mapPath, err := c.translateIfWine(c.settings.Map.LocalPath)
	if err != nil {
		return fmt.Errorf("coordinator: %w", err)
	}
	replaySavePath, err := c.translateIfWine(c.settings.ReplayPath)
	if err != nil {
		return fmt.Errorf("coordinator: %w", err)
	}

	createReq := protocol.CreateGameRequest{
		MapName:    c.settings.Map.Name,
		MapPath:    mapPath,
		Realtime:   c.settings.Realtime,
		Players:    players,
		ReplayPath: replaySavePath,
	}
	if err := c.participants[creatorIdx].SendCreateGame(ctx, createReq); err != nil {
		return fmt.Errorf("coordinator: create game: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	basePort := int(c.settings.BasePort)
	for i, p := range c.participants {
		i, p := i, p
		if p.IsComputer() {
			p.EnterAsComputer()
			continue
		}
		if i == creatorIdx {
			if err := c.joinOne(gctx, p, basePort); err != nil {
				return fmt.Errorf("coordinator: join %s: %w", p.Spec.Name, err)
			}
			continue
		}
		g.Go(func() error {
			if err := p.MarkLobbied(); err != nil {
				return fmt.Errorf("coordinator: lobby %s: %w", p.Spec.Name, err)
			}
			return c.joinOne(gctx, p, basePort)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := c.fetchGameData(ctx); err != nil {
		return fmt.Errorf("coordinator: fetch game data: %w", err)
	}
	for _, p := range c.participants {
		p.Data = c.gameData
	}

	c.fullStart = true
	return nil
}

func (c *Coordinator) joinOne(ctx context.Context, p *participant.Participant, basePort int) error {
	req := protocol.JoinGameRequest{
		Race:        p.Race(),
		AsObserver:  p.Role() == protocol.RoleObserver,
		ServerPorts: protocol.PortSet{GamePort: basePort, BasePort: basePort + 1},
	}
	return p.JoinGame(ctx, req)
}

// translateIfWine runs path through launcher.TranslatePath when the match
// is configured to run under wine (spec.md §4.1, §6: "translation failures
// are fatal" — a mistranslated path would otherwise surface as a confusing
// map/replay-not-found error from the engine instead). A blank path is
// left alone, since not every match configures both a map and a replay
// save path.
func (c *Coordinator) translateIfWine(path string) (string, error) {
	if !c.settings.Wine || path == "" {
		return path, nil
	}
	return launcher.TranslatePath(path)
}

// startReplay drives replay playback instead of a live match (spec.md §2,
// §8 Replay scenario): the first non-Computer participant gathers replay
// info, starts playback, and enters InGame directly — there is no
// CreateGame/Join lobby to negotiate for a replay.
func (c *Coordinator) startReplay(ctx context.Context) error {
	var p *participant.Participant
	for _, cand := range c.participants {
		if !cand.IsComputer() {
			p = cand
			break
		}
	}
	if p == nil {
		return ErrNoCreator
	}

	replayPath, err := c.translateIfWine(c.settings.ReplayPath)
	if err != nil {
		return fmt.Errorf("coordinator: %w", err)
	}

	if err := p.GatherReplayInfo(ctx, replayPath); err != nil {
		return fmt.Errorf("coordinator: gather replay info: %w", err)
	}

	req := protocol.StartReplayRequest{
		ReplayPath: replayPath,
		Realtime:   c.settings.Realtime,
	}
	if err := p.StartReplay(ctx, req); err != nil {
		return fmt.Errorf("coordinator: start replay: %w", err)
	}

	if err := c.fetchGameData(ctx); err != nil {
		return fmt.Errorf("coordinator: fetch game data: %w", err)
	}
	p.Data = c.gameData

	c.fullStart = true
	return nil
}

// fetchGameData fetches static unit/ability/upgrade reference data once,
// using whichever participant has a transport open (spec.md §6 Data).
func (c *Coordinator) fetchGameData(ctx context.Context) error {
	for _, p := range c.participants {
		if p.Transport == nil {
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, c.settings.CallTimeout)
		raw, err := p.Transport.Call(cctx, protocol.KindData, protocol.DataRequest{})
		cancel()
		if err != nil {
			return err
		}
		resp, ok := raw.(protocol.DataResponse)
		if !ok {
			return fmt.Errorf("coordinator: unexpected data payload type %T", raw)
		}
		c.gameData = worldstate.NewGameData(resp)
		return nil
	}
	c.gameData = worldstate.NewGameData(protocol.DataResponse{})
	return nil
}

// Update advances one logical step across every participant (spec.md §4.5
// tick barrier): observation requests fan out in parallel and are all
// collected before any agent callback runs; only after every participant's
// commands are sent does the tick advance. A participant exceeding
// settings.TickDeadline is fatal to the whole match.
func (c *Coordinator) Update(ctx context.Context) (Outcome, error) {
	active := make([]*participant.Participant, 0, len(c.participants))
	for _, p := range c.participants {
		if !p.IsComputer() {
			active = append(active, p)
		}
	}

	events := make([][]worldstate.Event, len(active))
	fullStart := c.fullStart
	c.fullStart = false

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range active {
		i, p := i, p
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, c.settings.TickDeadline)
			defer cancel()
			ev, err := p.Observe(cctx, fullStart)
			if err != nil {
				if cctx.Err() != nil {
					return fmt.Errorf("%w: %s: %v", ErrTickDeadline, p.Spec.Name, err)
				}
				return err
			}
			events[i] = ev
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return OutcomeContinue, err
	}

	for i, p := range active {
		p.Dispatch(ctx, events[i])
	}

	outcomes := make([]participant.StepOutcome, len(active))
	g, gctx = errgroup.WithContext(ctx)
	for i, p := range active {
		i, p := i, p
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, c.settings.TickDeadline)
			defer cancel()
			oc, err := p.Flush(cctx)
			if err != nil {
				return err
			}
			outcomes[i] = oc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return OutcomeContinue, err
	}

	c.tick += c.settings.StepSize
	outcome := OutcomeContinue
	for _, oc := range outcomes {
		if oc == participant.StepEnded {
			outcome = OutcomeEnd
			break
		}
	}

	exportStats(c.stats, snapshot(c.tick, outcome.String(), c.participants))
	return outcome, nil
}

// Cleanup performs an orderly shutdown of every participant, bounded by
// settings.ShutdownGrace; idempotent (spec.md §4.5, §5).
func (c *Coordinator) Cleanup(ctx context.Context) error {
	var firstErr error
	for _, p := range c.participants {
		if err := p.Cleanup(ctx, c.settings.ShutdownGrace); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Run drives Launch, StartGame, and the Update loop to completion, honoring
// Ctrl-C via os/signal (the idiomatic stand-in for the ctrlc crate the
// original client used): the signal handler only enqueues a stop request on
// a channel the loop itself reads, never touching Coordinator state from
// the signal goroutine.
func (c *Coordinator) Run(ctx context.Context) error {
	log := logging.With("coordinator")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	stop := make(chan struct{}, 1)
	go func() {
		select {
		case <-sigCh:
			select {
			case stop <- struct{}{}:
			default:
			}
		case <-ctx.Done():
		}
	}()

	if err := c.Launch(ctx); err != nil {
		return err
	}
	if err := c.StartGame(ctx); err != nil {
		_ = c.Cleanup(ctx)
		return err
	}

	for {
		select {
		case <-stop:
			log.Info().Msg("interrupt received, shutting down")
			return c.Cleanup(ctx)
		default:
		}

		outcome, err := c.Update(ctx)
		if err != nil {
			log.Error().Err(err).Msg("match faulted")
			_ = c.Cleanup(ctx)
			return err
		}
		if outcome == OutcomeEnd {
			log.Info().Uint32("tick", c.tick).Msg("match ended")
			return c.Cleanup(ctx)
		}

		if c.settings.Realtime {
			time.Sleep(50 * time.Millisecond)
		}
	}
}
