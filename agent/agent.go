// Package agent exposes the capability set a user's bot logic is written
// against (spec.md §4.6 Agent Adapter), decoupled from protocol types: a
// flattened callback interface plus a Handle for reading World state,
// queuing commands, and issuing synchronous queries.
package agent

// Agent is the full set of optional callbacks a bot may implement (spec.md
// §9 design note: "flatten [the] deep trait hierarchy to a single Agent
// capability set with optional callbacks", mirroring the original client's
// Agent trait in client/agent.rs where every method has a default empty
// body). Embed BaseAgent to get every method as a no-op and override only
// what matters.
type Agent interface {
	OnGameFullStart(h *Handle)
	OnGameStart(h *Handle)
	OnStep(h *Handle)
	OnUnitCreated(h *Handle, tag uint64)
	OnUnitDestroyed(h *Handle, tag uint64)
	OnUnitIdle(h *Handle, tag uint64)
	OnBuildingComplete(h *Handle, tag uint64)
	OnUpgradeComplete(h *Handle, upgradeID uint32)
	OnNydusDetected(h *Handle)
	OnNukeDetected(h *Handle)
	OnUnitDetected(h *Handle, tag uint64)
	OnGameEnd(h *Handle)
}

// BaseAgent implements Agent with every callback a no-op. Bots embed this
// so that adding a new callback to the interface doesn't break every
// existing implementation.
type BaseAgent struct{}

func (BaseAgent) OnGameFullStart(*Handle)               {}
func (BaseAgent) OnGameStart(*Handle)                   {}
func (BaseAgent) OnStep(*Handle)                        {}
func (BaseAgent) OnUnitCreated(*Handle, uint64)         {}
func (BaseAgent) OnUnitDestroyed(*Handle, uint64)       {}
func (BaseAgent) OnUnitIdle(*Handle, uint64)            {}
func (BaseAgent) OnBuildingComplete(*Handle, uint64)    {}
func (BaseAgent) OnUpgradeComplete(*Handle, uint32)     {}
func (BaseAgent) OnNydusDetected(*Handle)               {}
func (BaseAgent) OnNukeDetected(*Handle)                {}
func (BaseAgent) OnUnitDetected(*Handle, uint64)        {}
func (BaseAgent) OnGameEnd(*Handle)                     {}

var _ Agent = BaseAgent{}
