// Package config loads match settings: engine location, port range, map
// reference, participant roster, and the timing knobs the coordinator and
// transport enforce. Loading mirrors the teacher's viper+yaml.v3 pattern in
// reinforcement.FromYaml, flattened to a single struct since our config has
// no algorithm-selector layer to unwrap.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Errors returned from entry points (FromSettings/Launch/StartGame never
// return these mid-match; per spec.md §7 Configuration errors surface only
// at construction time).
var (
	ErrExeNotSpecified  = errors.New("config: no engine executable specified")
	ErrNoMapSpecified   = errors.New("config: no map specified")
	ErrConflictingMaps  = errors.New("config: both map name and local map path specified")
	ErrInvalidPortRange = errors.New("config: invalid port range")
	ErrNoParticipants   = errors.New("config: match must have at least one participant")
)

// Rect describes the window geometry handed to a launched engine instance.
type Rect struct {
	X, Y, W, H uint32
}

// DefaultWindowRect matches the default used by every known engine launch
// invocation in the original client (window_rect::default in coordinator.rs).
var DefaultWindowRect = Rect{X: 100, Y: 200, W: 1024, H: 768}

// Role mirrors protocol.Role without importing it, to keep config
// dependency-free; protocol.Role is a numeric enum, and participant.New
// converts this string form into it.
type Role string

const (
	RolePlayer   Role = "player"
	RoleComputer Role = "computer"
	RoleObserver Role = "observer"
)

// Difficulty applies only to Computer participants.
type Difficulty string

const (
	DifficultyVeryEasy   Difficulty = "very_easy"
	DifficultyEasy       Difficulty = "easy"
	DifficultyMedium     Difficulty = "medium"
	DifficultyHard       Difficulty = "hard"
	DifficultyVeryHard   Difficulty = "very_hard"
	DifficultyCheatVision Difficulty = "cheat_vision"
	DifficultyCheatMoney Difficulty = "cheat_money"
	DifficultyCheatInsane Difficulty = "cheat_insane"
)

// ParticipantSpec describes one seat in the match.
type ParticipantSpec struct {
	Role       Role       `mapstructure:"role" yaml:"role"`
	Race       string     `mapstructure:"race" yaml:"race"`
	Difficulty Difficulty `mapstructure:"difficulty" yaml:"difficulty"`
	Name       string     `mapstructure:"name" yaml:"name"`
}

// MapRef is either a map name known to the engine, or a local file path.
// Exactly one of the two must be set (ErrConflictingMaps/ErrNoMapSpecified).
type MapRef struct {
	Name      string `mapstructure:"name" yaml:"name"`
	LocalPath string `mapstructure:"localPath" yaml:"localPath"`
}

func (m MapRef) validate() error {
	if m.Name != "" && m.LocalPath != "" {
		return ErrConflictingMaps
	}
	if m.Name == "" && m.LocalPath == "" {
		return ErrNoMapSpecified
	}
	return nil
}

// Settings is the full match configuration: everything the Coordinator
// needs to launch instances, negotiate the game, and drive the tick loop.
type Settings struct {
	EnginePath string `mapstructure:"enginePath" yaml:"enginePath"`
	Wine       bool   `mapstructure:"wine" yaml:"wine"`

	BasePort uint16 `mapstructure:"basePort" yaml:"basePort"`
	NumPorts uint16 `mapstructure:"numPorts" yaml:"numPorts"`

	Map       MapRef            `mapstructure:"map" yaml:"map"`
	Realtime  bool              `mapstructure:"realtime" yaml:"realtime"`
	StepSize  uint32            `mapstructure:"stepSize" yaml:"stepSize"`
	ReplayPath string           `mapstructure:"replayPath" yaml:"replayPath"`
	WindowRect Rect             `mapstructure:"windowRect" yaml:"windowRect"`
	Participants []ParticipantSpec `mapstructure:"participants" yaml:"participants"`

	// CallTimeout bounds a single protocol request/response (spec.md §5, default 10s).
	CallTimeout time.Duration `mapstructure:"callTimeout" yaml:"callTimeout"`
	// TickDeadline bounds how far behind a single participant may fall before
	// the match is aborted (spec.md §4.5, default 30s).
	TickDeadline time.Duration `mapstructure:"tickDeadline" yaml:"tickDeadline"`
	// ReadyTimeout bounds how long the launcher waits for a child's port to
	// accept connections (spec.md §4.1).
	ReadyTimeout time.Duration `mapstructure:"readyTimeout" yaml:"readyTimeout"`
	// ShutdownGrace bounds orderly child termination before a kill (spec.md §5).
	ShutdownGrace time.Duration `mapstructure:"shutdownGrace" yaml:"shutdownGrace"`

	DashboardAddr string `mapstructure:"dashboardAddr" yaml:"dashboardAddr"`
}

// Default returns settings with every timing knob at its spec-mandated
// default; callers still must fill in EnginePath, Map and Participants.
func Default() Settings {
	return Settings{
		BasePort:      9168,
		NumPorts:      1,
		StepSize:      1,
		WindowRect:    DefaultWindowRect,
		CallTimeout:   10 * time.Second,
		TickDeadline:  30 * time.Second,
		ReadyTimeout:  30 * time.Second,
		ShutdownGrace: 5 * time.Second,
		DashboardAddr: ":8642",
	}
}

// Validate enforces the Configuration-kind invariants from spec.md §7.
// These never surface from the tick loop, only from entry points.
func (s Settings) Validate() error {
	if s.EnginePath == "" {
		return ErrExeNotSpecified
	}
	if err := s.Map.validate(); err != nil && s.ReplayPath == "" {
		return err
	}
	if s.NumPorts == 0 || int(s.BasePort)+int(s.NumPorts) > 65535 {
		return ErrInvalidPortRange
	}
	if len(s.Participants) == 0 {
		return ErrNoParticipants
	}
	return nil
}

// NonComputerCount returns how many participants need a launched instance
// and transport (Player and Observer roles); Computer participants are
// simulated by the engine and counted out (spec.md §4.1 port allocation).
func (s Settings) NonComputerCount() int {
	n := 0
	for _, p := range s.Participants {
		if p.Role != RoleComputer {
			n++
		}
	}
	return n
}

func (s Settings) String() string {
	return fmt.Sprintf("Settings{engine=%s map=%+v participants=%d realtime=%v}",
		s.EnginePath, s.Map, len(s.Participants), s.Realtime)
}
