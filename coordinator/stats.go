package coordinator

import "sc2runtime/participant"

// ParticipantStats is one participant's slice of a Stats snapshot, adapted
// from the teacher's per-cell state view (server/cell_views) to per-seat
// match progress instead of grid-world cell values.
type ParticipantStats struct {
	Name     string
	Role     string
	State    string
	Tick     uint32
	Minerals uint32
	Vespene  uint32
	Units    int
	Score    float64
}

// Stats is a point-in-time snapshot of the whole match, published after
// every tick for the dashboard to render (spec.md §6 domain-stack addition).
type Stats struct {
	Tick         uint32
	Outcome      string
	Participants []ParticipantStats
}

func snapshot(tick uint32, outcome string, participants []*participant.Participant) Stats {
	ps := make([]ParticipantStats, len(participants))
	for i, p := range participants {
		st := ParticipantStats{
			Name:  p.Spec.Name,
			Role:  string(p.Spec.Role),
			State: p.State().String(),
			Tick:  p.Tick(),
		}
		if w := p.World; w != nil {
			st.Minerals = w.Minerals
			st.Vespene = w.Vespene
			st.Units = len(w.Units)
			st.Score = w.Score.Load()
		}
		ps[i] = st
	}
	return Stats{Tick: tick, Outcome: outcome, Participants: ps}
}

// exportStats is the teacher's exportStates pattern (reinforcement/learning.go,
// server.NewServer's stateUpdates channel): a non-blocking best-effort send so
// a slow or absent dashboard consumer never stalls the tick loop.
func exportStats(ch chan<- Stats, s Stats) {
	if ch == nil {
		return
	}
	select {
	case ch <- s:
	default:
	}
}
