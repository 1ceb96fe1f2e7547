package config

// EnabledTextProviders returns the names of text-generation providers that
// are currently usable (enabled and credentialed), in fixed dispatch priority
// order. Pure function of the snapshot.
func EnabledTextProviders(cfg *Config) []string {
	var names []string
	for _, p := range cfg.TextProviders() {
		if p.Usable() {
			names = append(names, p.Name)
		}
	}
	return names
}

// EnabledServices extends the text-provider rule to every integration
// category. The result always contains EnabledTextProviders as a prefix.
func EnabledServices(cfg *Config) []string {
	names := EnabledTextProviders(cfg)
	if cfg.Stability.Usable() {
		names = append(names, cfg.Stability.Name)
	}
	return names
}
