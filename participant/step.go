package participant

import (
	"context"
	"fmt"

	"sc2runtime/agent"
	"sc2runtime/protocol"
	"sc2runtime/worldstate"
)

// Observe, Dispatch and Flush split one logical step into the three phases
// the Coordinator's tick barrier needs (spec.md §4.5): "issues observation
// requests to all participants in parallel; waits for all responses before
// invoking any agent callback; then collects commands from all agents and
// sends them in parallel." Step glues the three together for callers (tests,
// single-participant runs) that don't need the barrier.

// Observe requests one observation and diffs it against World, returning the
// ordered event list (with lifecycle events folded in) without touching the
// Agent or the network again. fullStart is true only on the coordinator's
// very first barrier round across the whole match.
func (p *Participant) Observe(ctx context.Context, fullStart bool) ([]worldstate.Event, error) {
	if p.state != StateInGame {
		return nil, ErrIllegalTransition{From: p.state, To: StateInGame}
	}
	if len(p.outbox) != 0 || len(p.observerOutbox) != 0 {
		// Invariant 3 (spec.md §3): outbox is empty at the start of each tick.
		return nil, fmt.Errorf("participant: outbox not drained before tick %d", p.tick)
	}

	cctx, cancel := p.callCtx(ctx)
	raw, err := p.Transport.Call(cctx, protocol.KindObservation, protocol.ObservationRequest{})
	cancel()
	if err != nil {
		return nil, p.fault(err)
	}
	obs, ok := raw.(protocol.RawObservation)
	if !ok {
		return nil, p.fault(fmt.Errorf("participant: unexpected observation payload type %T", raw))
	}

	events := p.World.Diff(obs)
	gameStart := !p.started
	p.pendingGameEnd = len(obs.GameResults) > 0
	events = worldstate.WithLifecycle(events, gameStart, fullStart && gameStart, p.pendingGameEnd)
	p.started = true
	p.pendingTick = obs.GameLoop
	return events, nil
}

// Dispatch runs every event through the Agent's callbacks, then the
// unconditional OnStep hook, queuing whatever commands the Agent issues. It
// performs no network I/O (spec.md §4.6).
func (p *Participant) Dispatch(ctx context.Context, events []worldstate.Event) {
	if p.Agent == nil {
		return
	}
	handle := agent.NewHandle(ctx, p.World, p.Data, &p.outbox, &p.observerOutbox, p.runQuery, p.role)
	for _, ev := range events {
		p.dispatch(handle, ev)
	}
	p.Agent.OnStep(handle)
}

func (p *Participant) dispatch(h *agent.Handle, ev worldstate.Event) {
	switch ev.Kind {
	case worldstate.EventGameStart:
		p.Agent.OnGameStart(h)
	case worldstate.EventGameFullStart:
		p.Agent.OnGameFullStart(h)
	case worldstate.EventUnitDetected:
		p.Agent.OnUnitDetected(h, ev.UnitTag)
	case worldstate.EventUnitCreated:
		p.Agent.OnUnitCreated(h, ev.UnitTag)
	case worldstate.EventBuildingComplete:
		p.Agent.OnBuildingComplete(h, ev.UnitTag)
	case worldstate.EventUpgradeComplete:
		p.Agent.OnUpgradeComplete(h, ev.UpgradeID)
	case worldstate.EventUnitIdle:
		p.Agent.OnUnitIdle(h, ev.UnitTag)
	case worldstate.EventUnitDestroyed:
		p.Agent.OnUnitDestroyed(h, ev.UnitTag)
	case worldstate.EventNukeDetected:
		p.Agent.OnNukeDetected(h)
	case worldstate.EventNydusDetected:
		p.Agent.OnNydusDetected(h)
	case worldstate.EventGameEnd:
		p.Agent.OnGameEnd(h)
	}
}

// Flush sends every queued command (grouped by the request kind the engine
// expects: Debug, Action, ObserverAction), clears both outboxes, advances
// the tick counter, and transitions to Ended if the last Observe saw a game
// result. Restores invariant 3 at the tick boundary.
func (p *Participant) Flush(ctx context.Context) (StepOutcome, error) {
	defer func() {
		p.outbox = p.outbox[:0]
		p.observerOutbox = p.observerOutbox[:0]
	}()

	if len(p.outbox) > 0 || len(p.observerOutbox) > 0 {
		cctx, cancel := p.callCtx(ctx)
		defer cancel()

		var debugCmds []protocol.DebugCommand
		var actionCmds []protocol.Command
		for _, c := range p.outbox {
			if c.Debug != nil {
				debugCmds = append(debugCmds, *c.Debug)
				continue
			}
			actionCmds = append(actionCmds, c)
		}

		if len(debugCmds) > 0 {
			if _, err := p.Transport.Call(cctx, protocol.KindDebug, protocol.DebugRequest{Commands: debugCmds}); err != nil {
				return StepContinue, p.fault(err)
			}
		}
		if len(actionCmds) > 0 {
			if _, err := p.Transport.Call(cctx, protocol.KindAction, protocol.ActionRequest{Commands: actionCmds}); err != nil {
				return StepContinue, p.fault(err)
			}
		}
		if len(p.observerOutbox) > 0 {
			req := protocol.ObserverActionRequest{Commands: p.observerOutbox}
			if _, err := p.Transport.Call(cctx, protocol.KindObserverAction, req); err != nil {
				return StepContinue, p.fault(err)
			}
		}
	}

	if p.pendingGameEnd {
		if err := p.end(); err != nil {
			return StepContinue, err
		}
		return StepEnded, nil
	}

	if p.realtime {
		p.tick = p.pendingTick
	} else {
		p.tick += p.stepSize
	}
	return StepContinue, nil
}

// Step runs Observe, Dispatch and Flush back to back, for callers that don't
// need the Coordinator's cross-participant barrier (tests, single-instance
// runs driven directly rather than through coordinator.Update).
func (p *Participant) Step(ctx context.Context, fullStart bool) (StepOutcome, error) {
	events, err := p.Observe(ctx, fullStart)
	if err != nil {
		return StepContinue, err
	}
	p.Dispatch(ctx, events)
	return p.Flush(ctx)
}

// runQuery performs one Query round trip; it is the sole exception to "no
// network I/O from callbacks" (spec.md §4.6), serialized here since it runs
// synchronously on the participant's own tick goroutine.
func (p *Participant) runQuery(ctx context.Context, req protocol.QueryRequest) (protocol.QueryResponse, error) {
	cctx, cancel := p.callCtx(ctx)
	defer cancel()
	resp, err := p.Transport.Call(cctx, protocol.KindQuery, req)
	if err != nil {
		return protocol.QueryResponse{}, err
	}
	qr, ok := resp.(protocol.QueryResponse)
	if !ok {
		return protocol.QueryResponse{}, fmt.Errorf("participant: unexpected query payload type %T", resp)
	}
	return qr, nil
}
