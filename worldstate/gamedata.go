package worldstate

import "sc2runtime/protocol"

// GameData is the static reference data fetched once per match via the
// engine's Data request (spec.md §6): unit type costs, ability names,
// upgrade costs. It never changes mid-match, unlike World.
type GameData struct {
	UnitTypes map[uint32]protocol.UnitTypeData
	Abilities map[uint32]protocol.AbilityData
	Upgrades  map[uint32]protocol.UpgradeData
}

func NewGameData(resp protocol.DataResponse) *GameData {
	gd := &GameData{
		UnitTypes: make(map[uint32]protocol.UnitTypeData, len(resp.UnitTypes)),
		Abilities: make(map[uint32]protocol.AbilityData, len(resp.Abilities)),
		Upgrades:  make(map[uint32]protocol.UpgradeData, len(resp.Upgrades)),
	}
	for _, u := range resp.UnitTypes {
		gd.UnitTypes[u.ID] = u
	}
	for _, a := range resp.Abilities {
		gd.Abilities[a.ID] = a
	}
	for _, u := range resp.Upgrades {
		gd.Upgrades[u.ID] = u
	}
	return gd
}

// UnitTypeData, AbilityData and UpgradeData return a placeholder entry named
// "Unknown", rather than an error, when an ID has no matching entry: a newer
// engine's data should never break the loop (spec.md §4.2).
func (gd *GameData) UnitTypeData(id uint32) protocol.UnitTypeData {
	if u, ok := gd.UnitTypes[id]; ok {
		return u
	}
	return protocol.UnitTypeData{ID: id, Name: "Unknown"}
}

func (gd *GameData) AbilityData(id uint32) protocol.AbilityData {
	if a, ok := gd.Abilities[id]; ok {
		return a
	}
	return protocol.AbilityData{ID: id, Name: "Unknown"}
}

func (gd *GameData) UpgradeData(id uint32) protocol.UpgradeData {
	if u, ok := gd.Upgrades[id]; ok {
		return u
	}
	return protocol.UpgradeData{ID: id, Name: "Unknown"}
}
