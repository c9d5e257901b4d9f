package protocol

// Target discriminates what a unit Command is aimed at: another unit, a
// point in the world, or nothing (spec.md §3 Command).
type Target struct {
	kind      targetKind
	unitTag   uint64
	location  Point2D
}

type targetKind uint8

const (
	targetNone targetKind = iota
	targetUnitTag
	targetLocation
)

func NoTarget() Target                     { return Target{kind: targetNone} }
func UnitTagTarget(tag uint64) Target       { return Target{kind: targetUnitTag, unitTag: tag} }
func LocationTarget(p Point2D) Target       { return Target{kind: targetLocation, location: p} }

func (t Target) IsNone() bool     { return t.kind == targetNone }
func (t Target) IsUnitTag() bool  { return t.kind == targetUnitTag }
func (t Target) IsLocation() bool { return t.kind == targetLocation }
func (t Target) UnitTag() (uint64, bool) {
	return t.unitTag, t.kind == targetUnitTag
}
func (t Target) Location() (Point2D, bool) {
	return t.location, t.kind == targetLocation
}

// Command is a tagged variant over everything an agent can queue into its
// outbox during a tick (spec.md §3 Command): unit commands, debug draws,
// feature-layer spatial commands, and selection commands.
type Command struct {
	Unit      *UnitCommand
	Debug     *DebugCommand
	Spatial   *SpatialCommand
	Selection *SelectionCommand
}

// UnitCommand issues an ability, optionally with a target, to a set of units.
type UnitCommand struct {
	UnitTags     []uint64
	AbilityID    uint32
	Target       Target
	QueueCommand bool
}

// DebugCommand is a rendering directive drawn by the engine for developer
// visualization; only the command types are modeled here (spec.md §1), not
// their rendering.
type DebugCommand struct {
	Text  *DebugText
	Line  *DebugLine
	Box   *DebugBox
	Sphere *DebugSphere
}

type DebugText struct {
	Message string
	Pos     *Point3D // nil means screen-space overlay
	Color   Color
}
type DebugLine struct {
	P0, P1 Point3D
	Color  Color
}
type DebugBox struct {
	Min, Max Point3D
	Color    Color
}
type DebugSphere struct {
	Center Point3D
	Radius float32
	Color  Color
}
type Color struct{ R, G, B uint8 }

// SpatialCommand expresses a command in screen- or minimap-space
// coordinates rather than world coordinates (spec.md GLOSSARY: feature-layer action).
type SpatialCommand struct {
	AbilityID uint32
	ScreenPos *Point2D
	MinimapPos *Point2D
}

// SelectionCommand changes which units a participant's client considers selected.
type SelectionCommand struct {
	UnitTags []uint64
}

// ObserverCommand is the restricted command set available to Observer
// participants and replay playback (spec.md §4.3, §4.6): camera moves and
// player-perspective switches, no unit or debug commands.
type ObserverCommand struct {
	SetCameraPos  *Point2D
	ObservePlayer *uint32
}

func UnitCmd(tags []uint64, abilityID uint32, target Target) Command {
	return Command{Unit: &UnitCommand{UnitTags: tags, AbilityID: abilityID, Target: target}}
}

func DebugCmd(cmd DebugCommand) Command {
	return Command{Debug: &cmd}
}

func SpatialCmd(cmd SpatialCommand) Command {
	return Command{Spatial: &cmd}
}

func SelectionCmd(tags []uint64) Command {
	return Command{Selection: &SelectionCommand{UnitTags: tags}}
}
