package agent

import (
	"context"
	"fmt"

	"sc2runtime/protocol"
	"sc2runtime/worldstate"
)

// QueryFunc performs one Query round trip. Participant supplies this so
// Handle never touches the network directly (spec.md §4.6: "callbacks ...
// can push into outbox, but not perform network I/O directly; queries are
// exceptions, which the adapter serializes internally").
type QueryFunc func(ctx context.Context, req protocol.QueryRequest) (protocol.QueryResponse, error)

// Handle is the borrowed, callback-duration-scoped view into a
// Participant's World and outbox (spec.md §9 design note: callbacks
// receive a borrowed handle valid only for the callback's duration,
// eliminating any Agent<->Participant ownership cycle). It is read-only
// over World and write-only (append) over the outbox.
type Handle struct {
	ctx          context.Context
	world        *worldstate.World
	data         *worldstate.GameData
	outbox       *[]protocol.Command
	observerBox  *[]protocol.ObserverCommand
	queryFn      QueryFunc
	role         protocol.Role
}

// NewHandle is called by the participant package once per tick; exported
// so participant can construct it without agent depending on participant
// (which would create an import cycle).
func NewHandle(
	ctx context.Context,
	world *worldstate.World,
	data *worldstate.GameData,
	outbox *[]protocol.Command,
	observerBox *[]protocol.ObserverCommand,
	queryFn QueryFunc,
	role protocol.Role,
) *Handle {
	return &Handle{ctx: ctx, world: world, data: data, outbox: outbox, observerBox: observerBox, queryFn: queryFn, role: role}
}

// --- observation ---

func (h *Handle) Units() map[uint64]worldstate.Unit { return h.world.Units }

func (h *Handle) FilterUnits(pred func(worldstate.Unit) bool) []worldstate.Unit {
	return h.world.FilterUnits(pred)
}

func (h *Handle) UnitByTag(tag uint64) (worldstate.Unit, bool) { return h.world.UnitByTag(tag) }

func (h *Handle) UnitTypeData(id uint32) protocol.UnitTypeData { return h.data.UnitTypeData(id) }
func (h *Handle) AbilityData(id uint32) protocol.AbilityData   { return h.data.AbilityData(id) }
func (h *Handle) UpgradeData(id uint32) protocol.UpgradeData   { return h.data.UpgradeData(id) }

func (h *Handle) MapInfo() protocol.MapInfo { return h.world.MapInfo }
func (h *Handle) GameLoop() uint32          { return h.world.Tick }
func (h *Handle) Minerals() uint32          { return h.world.Minerals }
func (h *Handle) Vespene() uint32           { return h.world.Vespene }
func (h *Handle) FoodUsed() float32         { return h.world.FoodUsed }
func (h *Handle) FoodCap() float32          { return h.world.FoodCap }
func (h *Handle) Score() float64            { return h.world.Score.Load() }

// --- commands ---

// commandAllowed enforces spec.md §4.3: Observer outboxes are restricted to
// debug/query commands only, never unit/spatial/selection commands.
func (h *Handle) commandAllowed(cmd protocol.Command) error {
	if h.role != protocol.RoleObserver {
		return nil
	}
	if cmd.Debug != nil {
		return nil
	}
	return fmt.Errorf("agent: observer participant may only issue debug commands")
}

func (h *Handle) push(cmd protocol.Command) {
	if err := h.commandAllowed(cmd); err != nil {
		// Silently dropped commands would hide a bot bug; since Handle has
		// no error return path for pushes (spec.md §4.6 keeps the command
		// API fire-and-forget), the illegal command is simply not queued.
		return
	}
	*h.outbox = append(*h.outbox, cmd)
}

func (h *Handle) CommandUnits(units []uint64, abilityID uint32, target protocol.Target) {
	h.push(protocol.UnitCmd(units, abilityID, target))
}

func (h *Handle) ToggleAutocast(units []uint64, abilityID uint32) {
	h.push(protocol.Command{Unit: &protocol.UnitCommand{UnitTags: units, AbilityID: abilityID}})
}

func (h *Handle) CommandDebug(cmd protocol.DebugCommand) {
	h.push(protocol.DebugCmd(cmd))
}

func (h *Handle) CommandSpatial(cmd protocol.SpatialCommand) {
	h.push(protocol.SpatialCmd(cmd))
}

func (h *Handle) CommandSelection(units []uint64) {
	h.push(protocol.SelectionCmd(units))
}

// SetCameraPos moves the observer camera. Only meaningful for Observer
// participants; callers driving a Player/Computer seat should use
// CommandSpatial instead.
func (h *Handle) SetCameraPos(pos protocol.Point2D) {
	*h.observerBox = append(*h.observerBox, protocol.ObserverCommand{SetCameraPos: &pos})
}

// ObservePlayer switches the observer's perspective to playerID.
func (h *Handle) ObservePlayer(playerID uint32) {
	*h.observerBox = append(*h.observerBox, protocol.ObserverCommand{ObservePlayer: &playerID})
}

// --- queries ---

// QueryAbilities returns, for each requested unit (in request order), the
// ability IDs it may currently use (spec.md §4.6, §8 query alignment).
func (h *Handle) QueryAbilities(items []protocol.AbilitiesQueryItem) ([]protocol.AbilitiesQueryResult, error) {
	resp, err := h.queryFn(h.ctx, protocol.QueryRequest{Abilities: items})
	if err != nil {
		return nil, err
	}
	return resp.Abilities, nil
}

// QueryPathing returns a distance per requested pair, in request order; an
// unreachable pair returns protocol.PathingUnreachable rather than failing
// the whole call (spec.md §8 concrete scenario).
func (h *Handle) QueryPathing(items []protocol.PathingQueryItem) ([]float32, error) {
	resp, err := h.queryFn(h.ctx, protocol.QueryRequest{Pathing: items})
	if err != nil {
		return nil, err
	}
	return resp.Pathing, nil
}

// QueryPlacement returns a placement-allowed boolean per request item, in order.
func (h *Handle) QueryPlacement(items []protocol.PlacementQueryItem) ([]bool, error) {
	resp, err := h.queryFn(h.ctx, protocol.QueryRequest{Placement: items})
	if err != nil {
		return nil, err
	}
	return resp.Placement, nil
}
