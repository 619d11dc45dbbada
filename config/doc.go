// Package config provides typed YAML configuration for the railnet
// pipeline: snap-quality thresholds, builder tolerances, connectivity-repair
// bridge overrides and verification limits, with struct-tag validation and
// defaults for every knob.
package config
