// Package config loads the assistant's settings from ./config.yaml (or the
// file named by SCRY_CONFIG) and SCRY_* environment variables, applies the
// defaults and validates the result. EngineConfig carries the limits of the
// conversation state machine.
package config
