package participant

import (
	"context"
	"fmt"
	"time"

	"sc2runtime/agent"
	"sc2runtime/config"
	"sc2runtime/launcher"
	"sc2runtime/protocol"
	"sc2runtime/transport"
	"sc2runtime/worldstate"
)

// StepOutcome is the per-participant result of one Step call; the
// Coordinator aggregates these into its own coordinator.Outcome
// (Continue/End, with errors returned alongside; spec.md §4.5).
type StepOutcome uint8

const (
	StepContinue StepOutcome = iota
	StepEnded
)

// Participant is one addressable party in a match (spec.md §3). Computer
// participants have no Instance, Transport, or Agent — the engine
// simulates them — and enter InGame directly once the lobby starts.
type Participant struct {
	Spec config.ParticipantSpec

	role       protocol.Role
	race       protocol.Race
	difficulty protocol.Difficulty

	state      State
	tick       uint32
	faultCause error
	started    bool

	pendingGameEnd bool
	pendingTick    uint32

	Instance   *launcher.Instance
	Transport  *transport.Transport
	Agent      agent.Agent
	World      *worldstate.World
	Data       *worldstate.GameData
	ReplayInfo *protocol.ReplayInfoResponse

	outbox         []protocol.Command
	observerOutbox []protocol.ObserverCommand
	stepSize       uint32
	realtime       bool
	callTimeout    time.Duration
}

func roleOf(r config.Role) protocol.Role {
	switch r {
	case config.RolePlayer:
		return protocol.RolePlayer
	case config.RoleComputer:
		return protocol.RoleComputer
	case config.RoleObserver:
		return protocol.RoleObserver
	default:
		return protocol.RoleUnknown
	}
}

func raceOf(name string) protocol.Race {
	switch name {
	case "terran", "Terran":
		return protocol.RaceTerran
	case "zerg", "Zerg":
		return protocol.RaceZerg
	case "protoss", "Protoss":
		return protocol.RaceProtoss
	default:
		return protocol.RaceRandom
	}
}

func difficultyOf(d config.Difficulty) protocol.Difficulty {
	switch d {
	case config.DifficultyVeryEasy:
		return protocol.DifficultyVeryEasy
	case config.DifficultyEasy:
		return protocol.DifficultyEasy
	case config.DifficultyMedium:
		return protocol.DifficultyMedium
	case config.DifficultyHard:
		return protocol.DifficultyHard
	case config.DifficultyVeryHard:
		return protocol.DifficultyVeryHard
	case config.DifficultyCheatVision:
		return protocol.DifficultyCheatVision
	case config.DifficultyCheatMoney:
		return protocol.DifficultyCheatMoney
	case config.DifficultyCheatInsane:
		return protocol.DifficultyCheatInsane
	default:
		return protocol.DifficultyUnknown
	}
}

// New constructs a Participant in the Created state. ag may be nil for
// Computer participants (spec.md §3: "A Computer participant has no
// transport and no agent").
func New(spec config.ParticipantSpec, ag agent.Agent, stepSize uint32, realtime bool, callTimeout time.Duration) *Participant {
	return &Participant{
		Spec:        spec,
		role:        roleOf(spec.Role),
		race:        raceOf(spec.Race),
		difficulty:  difficultyOf(spec.Difficulty),
		state:       StateCreated,
		Agent:       ag,
		stepSize:    stepSize,
		realtime:    realtime,
		callTimeout: callTimeout,
	}
}

func (p *Participant) Role() protocol.Role             { return p.role }
func (p *Participant) Race() protocol.Race             { return p.race }
func (p *Participant) Difficulty() protocol.Difficulty { return p.difficulty }
func (p *Participant) State() State                    { return p.state }
func (p *Participant) Tick() uint32                    { return p.tick }
func (p *Participant) IsComputer() bool                { return p.role == protocol.RoleComputer }
func (p *Participant) FaultCause() error               { return p.faultCause }

func (p *Participant) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.callTimeout)
}

// Launch spawns the engine instance and opens the transport (Created ->
// Launched, spec.md §4.3). Computer participants never call this.
func (p *Participant) Launch(ctx context.Context, exe string, port uint16, window config.Rect, wine bool, readyTimeout time.Duration, retry transport.RetryPolicy) error {
	if p.IsComputer() {
		return fmt.Errorf("participant: computer participants have no instance to launch")
	}

	inst, err := launcher.Launch(exe, port, window, wine)
	if err != nil {
		return p.fault(err)
	}
	p.Instance = inst

	url, err := launcher.AwaitReady(ctx, inst, readyTimeout)
	if err != nil {
		return p.fault(err)
	}

	t, err := transport.Connect(ctx, url, retry)
	if err != nil {
		return p.fault(err)
	}
	p.Transport = t

	return p.transitionTo(StateLaunched)
}

// SendCreateGame is called on exactly the one elected non-Computer
// participant (spec.md §4.3: "Exactly one participant ... issues
// CreateGame; others must not"). On success that participant moves
// Launched -> Lobbied; call MarkLobbied on every other participant.
func (p *Participant) SendCreateGame(ctx context.Context, req protocol.CreateGameRequest) error {
	cctx, cancel := p.callCtx(ctx)
	defer cancel()
	if _, err := p.Transport.Call(cctx, protocol.KindCreateGame, req); err != nil {
		return p.fault(err)
	}
	return p.transitionTo(StateLobbied)
}

// MarkLobbied transitions a non-creator participant once CreateGame has
// succeeded elsewhere in the match (no message is sent by this participant).
func (p *Participant) MarkLobbied() error {
	return p.transitionTo(StateLobbied)
}

// JoinGame sends JoinGame and enters InGame(0) (spec.md §4.3). Computer
// participants never join; they were already listed in CreateGame.
func (p *Participant) JoinGame(ctx context.Context, req protocol.JoinGameRequest) error {
	if p.IsComputer() {
		return fmt.Errorf("participant: computer participants do not join")
	}
	cctx, cancel := p.callCtx(ctx)
	defer cancel()
	if _, err := p.Transport.Call(cctx, protocol.KindJoinGame, req); err != nil {
		return p.fault(err)
	}
	if err := p.transitionTo(StateInGame); err != nil {
		return err
	}
	p.tick = 0
	p.World = worldstate.New(p.race)
	return nil
}

// EnterAsComputer puts a Computer participant directly into InGame(0);
// it never holds Launched/Lobbied state since it has no transport of its
// own (spec.md §3, §4.3).
func (p *Participant) EnterAsComputer() {
	p.state = StateInGame
	p.tick = 0
}

// GatherReplayInfo asks the engine instance for metadata about a replay
// file before starting playback (spec.md §3 ReplayInfo component; grounded
// on original_source's participant/replay.rs gather_replay_info). Legal
// only once Launched, before StartReplay.
func (p *Participant) GatherReplayInfo(ctx context.Context, replayPath string) error {
	if p.state != StateLaunched {
		return ErrIllegalTransition{From: p.state, To: StateLaunched}
	}
	cctx, cancel := p.callCtx(ctx)
	defer cancel()
	raw, err := p.Transport.Call(cctx, protocol.KindReplayInfo, protocol.ReplayInfoRequest{ReplayPath: replayPath})
	if err != nil {
		return p.fault(err)
	}
	resp, ok := raw.(protocol.ReplayInfoResponse)
	if !ok {
		return p.fault(fmt.Errorf("participant: unexpected replay info payload type %T", raw))
	}
	p.ReplayInfo = &resp
	return nil
}

// StartReplay requests replay playback and enters InGame(0) directly from
// Launched (spec.md §2 "negotiates a multi-player match or a replay
// playback"; original_source req_start_replay/await_replay). Replay
// participants skip CreateGame/JoinGame entirely: there is no lobby to
// negotiate.
func (p *Participant) StartReplay(ctx context.Context, req protocol.StartReplayRequest) error {
	if p.state != StateLaunched {
		return ErrIllegalTransition{From: p.state, To: StateInGame}
	}
	cctx, cancel := p.callCtx(ctx)
	defer cancel()
	if _, err := p.Transport.Call(cctx, protocol.KindStartReplay, req); err != nil {
		return p.fault(err)
	}
	p.state = StateInGame
	p.tick = 0
	p.World = worldstate.New(p.race)
	return nil
}

// Fault moves the participant to Faulted from any state (spec.md §4.3 "any
// -> Faulted"), used when the Coordinator observes a transport error on
// this participant's behalf.
func (p *Participant) Fault(cause error) error { return p.fault(cause) }

// Cleanup sends an orderly Quit if a transport is open, closes the
// transport, and terminates the instance, bounded by grace (spec.md
// §4.1, §5), then moves the participant to Closed from whatever state it
// was in. Idempotent.
func (p *Participant) Cleanup(ctx context.Context, grace time.Duration) error {
	if p.state == StateClosed {
		return nil
	}
	if p.Transport != nil && !p.Transport.Closed() {
		cctx, cancel := p.callCtx(ctx)
		_, _ = p.Transport.Call(cctx, protocol.KindQuit, protocol.QuitRequest{})
		cancel()
	}
	if p.Instance != nil {
		var closeFn func() error
		if p.Transport != nil {
			closeFn = p.Transport.Close
		}
		launcher.Terminate(p.Instance, closeFn, grace)
	}
	// Teardown is complete whatever state the participant was in: a Computer
	// seat never leaves InGame on its own, and an interrupt can arrive
	// mid-match, so Cleanup closes from any state rather than only from
	// Ended/Faulted.
	p.state = StateClosed
	return nil
}
