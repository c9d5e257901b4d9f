package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// FromYAML reads match settings from a YAML file, starting from Default()
// so a config file only needs to override what it cares about. Mirrors
// reinforcement.FromYaml's use of a standalone viper instance rather than
// the package-level viper singleton, since a host program may load more
// than one config over its lifetime (viper's singleton is awkward for
// that, a lesson the teacher notes directly in learning.go).
func FromYAML(path string) (Settings, error) {
	settings := Default()

	vp := viper.New()
	vp.SetConfigFile(filepath.Base(path))
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return Settings{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	// viper's default decode hooks already include StringToTimeDurationHookFunc,
	// so duration fields in the file (e.g. "30s") unmarshal directly.
	decoded := settings
	if err := vp.Unmarshal(&decoded); err != nil {
		return Settings{}, fmt.Errorf("config: unmarshalling %s: %w", path, err)
	}

	if err := decoded.Validate(); err != nil {
		return Settings{}, err
	}
	return decoded, nil
}

// ApplyOverrides layers non-zero CLI flag values onto settings loaded from
// a config file, flags winning over file contents.
func ApplyOverrides(s Settings, enginePath string, basePort uint16, mapName string, mapPath string, realtime bool, stepSize uint32, wine bool, dashboardAddr string) Settings {
	if enginePath != "" {
		s.EnginePath = enginePath
	}
	if basePort != 0 {
		s.BasePort = basePort
	}
	if mapName != "" {
		s.Map = MapRef{Name: mapName}
	}
	if mapPath != "" {
		s.Map = MapRef{LocalPath: mapPath}
	}
	if realtime {
		s.Realtime = true
	}
	if stepSize != 0 {
		s.StepSize = stepSize
	}
	if wine {
		s.Wine = true
	}
	if dashboardAddr != "" {
		s.DashboardAddr = dashboardAddr
	}
	if s.CallTimeout == 0 {
		s.CallTimeout = 10 * time.Second
	}
	if s.TickDeadline == 0 {
		s.TickDeadline = 30 * time.Second
	}
	return s
}
