// Package worldstate keeps the per-participant incremental game-state cache
// coherent across ticks and derives discrete events by diffing consecutive
// observations (spec.md §3 World/Unit, §4.4 Observation & Event Diff Engine).
package worldstate

import (
	"sc2runtime/atomicstat"
	"sc2runtime/protocol"
)

// Unit mirrors spec.md §3: attributes are replaced wholesale each tick, but
// Tag identity persists across ticks (invariant 1, spec.md §3).
type Unit struct {
	Tag           uint64
	UnitType      uint32
	Alliance      protocol.Alliance
	DisplayType   protocol.DisplayType
	OwnerID       uint32
	Pos           protocol.Point3D
	FacingRadians float32
	Radius        float32
	Health        float32
	HealthMax     float32
	Shield        float32
	ShieldMax     float32
	Energy        float32
	EnergyMax     float32
	IsFlying      bool
	IsBuilding    bool
	BuildProgress float32
	Orders        []protocol.UnitOrder
}

func (u Unit) isIdle() bool { return len(u.Orders) == 0 }

func unitFromRaw(r protocol.RawUnit) Unit {
	return Unit{
		Tag:           r.Tag,
		UnitType:      r.UnitType,
		Alliance:      r.Alliance,
		DisplayType:   r.DisplayType,
		OwnerID:       r.OwnerID,
		Pos:           r.Pos,
		FacingRadians: r.FacingRadians,
		Radius:        r.Radius,
		Health:        r.Health,
		HealthMax:     r.HealthMax,
		Shield:        r.Shield,
		ShieldMax:     r.ShieldMax,
		Energy:        r.Energy,
		EnergyMax:     r.EnergyMax,
		IsFlying:      r.IsFlying,
		IsBuilding:    r.IsBuilding,
		BuildProgress: r.BuildProgress,
		Orders:        r.Orders,
	}
}

// World is the curated per-participant game-state view (spec.md §3).
type World struct {
	Tick       uint32
	SelfRace   protocol.Race
	MapInfo    protocol.MapInfo
	Units      map[uint64]Unit
	Minerals   uint32
	Vespene    uint32
	FoodUsed   float32
	FoodCap    float32
	Upgrades   map[uint32]struct{}

	// Score is read concurrently by the dashboard while the tick loop
	// writes it, so it is backed by atomicstat rather than a plain float64
	// (spec.md §6 domain-stack addition).
	Score *atomicstat.Float64

	// lastSeen retains the last-known state of an Enemy unit that has
	// vanished from vision without a destroy event, per spec.md §4.4 step 3
	// and the Open Question in spec.md §9: enemy vanishing is retained for
	// visibility-fog reasoning rather than treated as destruction.
	lastSeen map[uint64]Unit
	// everDetected tracks which Enemy tags have already fired UnitDetected,
	// so re-sighting after a fog gap emits UnitCreated again (per the
	// diff algorithm, spec.md §4.4 step 2) without a duplicate Detected.
	everDetected map[uint64]struct{}
}

// New returns an empty World ready to receive its first Diff.
func New(selfRace protocol.Race) *World {
	return &World{
		SelfRace:     selfRace,
		Units:        map[uint64]Unit{},
		Upgrades:     map[uint32]struct{}{},
		Score:        atomicstat.NewFloat64(0),
		lastSeen:     map[uint64]Unit{},
		everDetected: map[uint64]struct{}{},
	}
}

// LastSeen returns the shadow record of an Enemy unit that has vanished
// from vision without being destroyed, if any (spec.md §4.4 step 3).
func (w *World) LastSeen(tag uint64) (Unit, bool) {
	u, ok := w.lastSeen[tag]
	return u, ok
}

func (w *World) UnitByTag(tag uint64) (Unit, bool) {
	u, ok := w.Units[tag]
	return u, ok
}

// FilterUnits returns every unit for which pred returns true. Order is not
// guaranteed; callers that need determinism should sort by Tag.
func (w *World) FilterUnits(pred func(Unit) bool) []Unit {
	out := make([]Unit, 0, len(w.Units))
	for _, u := range w.Units {
		if pred(u) {
			out = append(out, u)
		}
	}
	return out
}

func (w *World) HasUpgrade(id uint32) bool {
	_, ok := w.Upgrades[id]
	return ok
}
