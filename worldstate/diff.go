package worldstate

import (
	"sort"

	"sc2runtime/protocol"
)

// Diff ingests a raw observation and the World's prior tick, mutates World
// in place to the new tick, and returns the ordered event list (spec.md
// §4.4). Steps below are numbered to match spec.md §4.4 exactly.
func (w *World) Diff(raw protocol.RawObservation) []Event {
	prev := w.Units
	next := make(map[uint64]Unit, len(raw.Units))
	for _, ru := range raw.Units {
		next[ru.Tag] = unitFromRaw(ru)
	}

	dead := make(map[uint64]struct{}, len(raw.EventsRaw.DeadUnitTags))
	for _, tag := range raw.EventsRaw.DeadUnitTags {
		dead[tag] = struct{}{}
	}

	var events []Event

	// Step 2: creation, plus first-sighting Detected for Enemy units.
	for tag, u := range next {
		if _, existed := prev[tag]; existed {
			continue
		}
		events = append(events, unitEvent(EventUnitCreated, tag))
		if u.Alliance == protocol.AllianceEnemy {
			if _, seenBefore := w.everDetected[tag]; !seenBefore {
				events = append(events, unitEvent(EventUnitDetected, tag))
				w.everDetected[tag] = struct{}{}
			}
		}
	}

	// Step 3: vanished units.
	for tag, u := range prev {
		if _, stillPresent := next[tag]; stillPresent {
			continue
		}
		if _, wasReportedDead := dead[tag]; wasReportedDead {
			events = append(events, unitEvent(EventUnitDestroyed, tag))
			delete(w.lastSeen, tag)
			continue
		}
		if u.Alliance == protocol.AllianceEnemy {
			// Fog of war, not destruction: retain for visibility-fog
			// reasoning (spec.md §9 Open Question), no event emitted.
			w.lastSeen[tag] = u
			continue
		}
		// Domestic/Neutral/Ally disappearance without a destroy event:
		// emitted defensively (spec.md §4.4 step 3).
		events = append(events, unitEvent(EventUnitDestroyed, tag))
	}

	// Step 4: orders went non-empty -> empty.
	for tag, u := range next {
		if pu, existed := prev[tag]; existed && !pu.isIdle() && u.isIdle() {
			events = append(events, unitEvent(EventUnitIdle, tag))
		}
	}

	// Step 5: build_progress crossed 1.0.
	for tag, u := range next {
		if pu, existed := prev[tag]; existed && pu.BuildProgress < 1.0 && u.BuildProgress >= 1.0 {
			events = append(events, unitEvent(EventBuildingComplete, tag))
		}
	}

	// Step 6: new upgrades.
	for _, id := range raw.Upgrades {
		if !w.HasUpgrade(id) {
			events = append(events, upgradeEvent(id))
		}
	}

	// Step 7: engine-level alerts, passed through.
	if raw.EventsRaw.NydusDetected {
		events = append(events, bareEvent(EventNydusDetected))
	}
	if raw.EventsRaw.NukeDetected {
		events = append(events, bareEvent(EventNukeDetected))
	}

	sortEvents(events)

	w.Tick = raw.GameLoop
	w.Units = next
	w.Minerals = raw.PlayerCommon.Minerals
	w.Vespene = raw.PlayerCommon.Vespene
	w.FoodUsed = raw.PlayerCommon.FoodUsed
	w.FoodCap = raw.PlayerCommon.FoodCap
	w.Score.Store(raw.PlayerCommon.Score)
	for _, id := range raw.Upgrades {
		w.Upgrades[id] = struct{}{}
	}

	return events
}

// WithLifecycle appends the lifecycle events (GameStart/GameFullStart/
// GameEnd) that the participant state machine knows about but the raw
// per-tick diff doesn't, and re-sorts per the same class ordering so the
// combined list still satisfies spec.md §4.4's tie-break rule.
func WithLifecycle(events []Event, gameStart, gameFullStart, gameEnd bool) []Event {
	if gameStart {
		events = append(events, bareEvent(EventGameStart))
	}
	if gameFullStart {
		events = append(events, bareEvent(EventGameFullStart))
	}
	if gameEnd {
		events = append(events, bareEvent(EventGameEnd))
	}
	sortEvents(events)
	return events
}

// sortEvents implements the tie-break ordering from spec.md §4.4: stable by
// class, then by tag (or upgrade ID) ascending within a class.
func sortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		ci, cj := eventClassOrder[events[i].Kind], eventClassOrder[events[j].Kind]
		if ci != cj {
			return ci < cj
		}
		return sortKey(events[i]) < sortKey(events[j])
	})
}

func sortKey(e Event) uint64 {
	if e.Kind == EventUpgradeComplete {
		return uint64(e.UpgradeID)
	}
	return e.UnitTag
}
