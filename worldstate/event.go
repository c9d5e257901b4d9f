package worldstate

// EventKind tags the variant of an Event (spec.md §3).
type EventKind uint8

const (
	EventUnitCreated EventKind = iota
	EventUnitDestroyed
	EventUnitIdle
	EventBuildingComplete
	EventUpgradeComplete
	EventNydusDetected
	EventNukeDetected
	EventUnitDetected
	EventGameStart
	EventGameFullStart
	EventGameEnd
)

// eventClassOrder implements the tie-break ordering from spec.md §4.4:
// GameStart/FullStart first, then Detected, Created, BuildingComplete,
// UpgradeComplete, Idle, Destroyed, alerts, GameEnd; stable within a class
// by tag ascending.
var eventClassOrder = map[EventKind]int{
	EventGameFullStart:    0,
	EventGameStart:        0,
	EventUnitDetected:     1,
	EventUnitCreated:      2,
	EventBuildingComplete: 3,
	EventUpgradeComplete:  4,
	EventUnitIdle:         5,
	EventUnitDestroyed:    6,
	EventNukeDetected:     7,
	EventNydusDetected:    7,
	EventGameEnd:          8,
}

// Event is the tagged variant emitted by the diff engine (spec.md §3).
// UnitTag/UpgradeID are populated according to Kind; both zero for the
// alert/lifecycle events that carry no payload.
type Event struct {
	Kind      EventKind
	UnitTag   uint64
	UpgradeID uint32
}

func unitEvent(kind EventKind, tag uint64) Event { return Event{Kind: kind, UnitTag: tag} }
func upgradeEvent(id uint32) Event               { return Event{Kind: EventUpgradeComplete, UpgradeID: id} }
func bareEvent(kind EventKind) Event             { return Event{Kind: kind} }
