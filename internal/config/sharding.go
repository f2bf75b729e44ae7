package config

// ShardingConfig configures the built-in sharding generator.
type ShardingConfig struct {
	// Operator INI config file holding the sharding section.
	ConfigFile string `yaml:"config_file"`

	// INI section mapping port -> space-separated host list.
	Section string `yaml:"section"`

	// Upstream selected when no host matches.
	DefaultUpstream string `yaml:"default_upstream"`

	// Suffix appended to bare hostnames (no dot).
	HostSuffix string `yaml:"host_suffix"`

	// Bare hostnames that additionally get a staging alias.
	StagingHosts  []string `yaml:"staging_hosts"`
	StagingSuffix string   `yaml:"staging_suffix"`
}

func defaultShardingConfig() ShardingConfig {
	return ShardingConfig{
		ConfigFile:      "/etc/zulip/zulip.conf",
		Section:         "tornado_sharding",
		DefaultUpstream: "tornado9800",
		HostSuffix:      ".zulipchat.com",
		StagingHosts:    []string{"zephyr", "recurse"},
		StagingSuffix:   ".zulipstaging.com",
	}
}
