package config

// SnapConfig holds the snap-quality distance thresholds. The thresholds are
// policy, not structure: tuning them changes classification only, never the
// snapping algorithm.
type SnapConfig struct {
	OnNetworkKM    float64 `yaml:"on_network_km" validate:"gt=0"`
	NearNetworkKM  float64 `yaml:"near_network_km" validate:"gt=0"`
	MaxSnapKM      float64 `yaml:"max_snap_km" validate:"gt=0"`
	NodeCollapseKM float64 `yaml:"node_collapse_km" validate:"gte=0"`
}

// BuilderConfig holds the network builder tolerances.
type BuilderConfig struct {
	// JunctionGridM is the coincidence tolerance in meters for detecting
	// that two segments meet at a physical junction.
	JunctionGridM float64 `yaml:"junction_grid_m" validate:"gt=0"`
	// NodeMergeM is the clustering tolerance in meters for merging endpoint
	// nodes that represent the same physical junction.
	NodeMergeM float64 `yaml:"node_merge_m" validate:"gt=0"`
}

// BridgeConfig is one manual connectivity-repair override: two node IDs
// independently verified to be the same or adjacent physical location.
type BridgeConfig struct {
	From      string `yaml:"from" validate:"required"`
	To        string `yaml:"to" validate:"required"`
	Company   string `yaml:"company"`
	BuiltYear int    `yaml:"built_year"`
}

// RepairConfig controls the connectivity-repair pass.
type RepairConfig struct {
	SmallComponentMax int            `yaml:"small_component_max" validate:"gte=0"`
	MaxBridgeKM       float64        `yaml:"max_bridge_km" validate:"gte=0"`
	Bridges           []BridgeConfig `yaml:"bridges"`
}

// VerifyConfig holds the route-verification proximity thresholds: how close
// the assembled geometry must get to each settlement.
type VerifyConfig struct {
	WarnKM  float64 `yaml:"warn_km" validate:"gt=0"`
	ErrorKM float64 `yaml:"error_km" validate:"gt=0"`
}

// ConnectionsConfig controls which settlement pairs get a connection record.
type ConnectionsConfig struct {
	// MaxPairKM limits pair generation by direct distance; 0 means no limit.
	MaxPairKM float64 `yaml:"max_pair_km" validate:"gte=0"`
	// SharedRailwayOnly restricts pairs to settlements sharing a railway.
	SharedRailwayOnly bool `yaml:"shared_railway_only"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	Snap        SnapConfig        `yaml:"snap"`
	Builder     BuilderConfig     `yaml:"builder"`
	Repair      RepairConfig      `yaml:"repair"`
	Verify      VerifyConfig      `yaml:"verify"`
	Connections ConnectionsConfig `yaml:"connections"`
}
