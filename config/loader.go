package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Default returns the configuration used when no file is given. The snap
// thresholds match the historical dataset's calibration: 5km on-network,
// 15km near-network, 50km maximum snap.
func Default() AppConfig {
	return AppConfig{
		Snap: SnapConfig{
			OnNetworkKM:    5,
			NearNetworkKM:  15,
			MaxSnapKM:      50,
			NodeCollapseKM: 0.25,
		},
		Builder: BuilderConfig{
			JunctionGridM: 50,
			NodeMergeM:    500,
		},
		Repair: RepairConfig{
			SmallComponentMax: 1,
			MaxBridgeKM:       2,
		},
		Verify: VerifyConfig{
			WarnKM:  5,
			ErrorKM: 15,
		},
		Connections: ConnectionsConfig{
			SharedRailwayOnly: true,
		},
	}
}

// Load reads and validates a YAML configuration file. Zero-valued fields
// fall back to the defaults, so a config file only needs to name the knobs
// it changes.
func Load(path string) (AppConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	def := Default()
	if cfg.Snap.OnNetworkKM == 0 {
		cfg.Snap.OnNetworkKM = def.Snap.OnNetworkKM
	}
	if cfg.Snap.NearNetworkKM == 0 {
		cfg.Snap.NearNetworkKM = def.Snap.NearNetworkKM
	}
	if cfg.Snap.MaxSnapKM == 0 {
		cfg.Snap.MaxSnapKM = def.Snap.MaxSnapKM
	}
	if cfg.Builder.JunctionGridM == 0 {
		cfg.Builder.JunctionGridM = def.Builder.JunctionGridM
	}
	if cfg.Builder.NodeMergeM == 0 {
		cfg.Builder.NodeMergeM = def.Builder.NodeMergeM
	}
	if cfg.Repair.MaxBridgeKM == 0 {
		cfg.Repair.MaxBridgeKM = def.Repair.MaxBridgeKM
	}
	if cfg.Verify.WarnKM == 0 {
		cfg.Verify.WarnKM = def.Verify.WarnKM
	}
	if cfg.Verify.ErrorKM == 0 {
		cfg.Verify.ErrorKM = def.Verify.ErrorKM
	}
}
