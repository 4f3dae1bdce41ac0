package config

// GetDefaults returns the default configuration values applied before any
// config file or environment override.
func GetDefaults() map[string]interface{} {
	return map[string]interface{}{
		"registry":      "registry.json",
		"constraints":   "",
		"artifacts_dir": "./artifacts",
		"scheme":        "spec",
		"strict":        false,
		"no_color":      false,
		"show_progress": true,
	}
}
