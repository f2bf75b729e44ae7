// Package sharding generates the nginx sharding fragment and the shard
// map from the operator configuration. It is the built-in equivalent of
// the per-deployment generation script, for hosts where no deployment
// root carries one.
package sharding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"shardctl/internal/config"
	"shardctl/internal/logging"

	"gopkg.in/ini.v1"
)

// Entry maps one external hostname to its backend port. Alias marks a
// staging hostname that only exists for proxy routing; aliases appear in
// the nginx fragment but never in the shard map, which the application
// server consumes with canonical hosts only.
type Entry struct {
	Host  string
	Port  int
	Alias bool
}

// Generator renders the sharding artifacts from the operator config.
type Generator struct {
	cfg       config.ShardingConfig
	nginxPath string
	mapPath   string
}

// NewGenerator builds a Generator writing to the configured artifact
// paths.
func NewGenerator(cfg config.ShardingConfig, artifacts config.ArtifactsConfig) *Generator {
	return &Generator{
		cfg:       cfg,
		nginxPath: artifacts.ProxyVariable.Path,
		mapPath:   artifacts.ShardMap.Path,
	}
}

// Run loads the operator config, renders both artifacts and writes them
// atomically. It reports whether any artifact's bytes actually changed,
// which is what gates the proxy reload.
func (g *Generator) Run() (changed bool, err error) {
	entries, err := g.Load()
	if err != nil {
		return false, err
	}

	nginxConf, err := RenderNginx(g.cfg.DefaultUpstream, entries)
	if err != nil {
		return false, err
	}
	shardMap, err := RenderShardMap(entries)
	if err != nil {
		return false, err
	}

	nginxChanged, err := writeIfChanged(g.nginxPath, nginxConf)
	if err != nil {
		return false, err
	}
	mapChanged, err := writeIfChanged(g.mapPath, shardMap)
	if err != nil {
		return nginxChanged, err
	}

	logging.Sharding("generated sharding config: %d shard(s), nginx changed=%v, map changed=%v",
		len(entries), nginxChanged, mapChanged)
	return nginxChanged || mapChanged, nil
}

// Load parses the sharding section of the operator config into entries.
// A missing file or section yields an empty layout, which is valid.
func (g *Generator) Load() ([]Entry, error) {
	if _, err := os.Stat(g.cfg.ConfigFile); os.IsNotExist(err) {
		return nil, nil // No operator config yet
	}
	file, err := ini.Load(g.cfg.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", g.cfg.ConfigFile, err)
	}

	section, err := file.GetSection(g.cfg.Section)
	if err != nil {
		return nil, nil // No sharding configured
	}

	var entries []Entry
	seen := make(map[string]bool)
	for _, key := range section.Keys() {
		port, err := strconv.Atoi(key.Name())
		if err != nil {
			return nil, fmt.Errorf("%s: section [%s] key %q is not a port number", g.cfg.ConfigFile, g.cfg.Section, key.Name())
		}
		for _, shard := range strings.Fields(key.String()) {
			host := shard
			if !strings.Contains(shard, ".") {
				host = shard + g.cfg.HostSuffix
			}
			if seen[host] {
				return nil, fmt.Errorf("%s: host %s mapped to multiple ports; remove the duplicate from [%s]", g.cfg.ConfigFile, host, g.cfg.Section)
			}
			seen[host] = true
			entries = append(entries, Entry{Host: host, Port: port})

			if g.stagingAlias(shard) {
				alias := shard + g.cfg.StagingSuffix
				if seen[alias] {
					return nil, fmt.Errorf("%s: host %s mapped to multiple ports; remove the duplicate from [%s]", g.cfg.ConfigFile, alias, g.cfg.Section)
				}
				seen[alias] = true
				entries = append(entries, Entry{Host: alias, Port: port, Alias: true})
			}
		}
	}
	return entries, nil
}

func (g *Generator) stagingAlias(shard string) bool {
	if g.cfg.StagingSuffix == "" {
		return false
	}
	for _, s := range g.cfg.StagingHosts {
		if s == shard {
			return true
		}
	}
	return false
}

// RenderNginx renders the proxy-variable fragment: a default upstream
// line followed by one host match block per entry.
func RenderNginx(defaultUpstream string, entries []Entry) ([]byte, error) {
	if defaultUpstream == "" {
		return nil, fmt.Errorf("default upstream is required")
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "set $tornado_server http://%s;\n", defaultUpstream)
	lastPort := -1
	for _, e := range entries {
		if lastPort != -1 && e.Port != lastPort {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(&buf, "if ($host = '%s') {\n    set $tornado_server http://tornado%d;\n}\n", e.Host, e.Port)
		lastPort = e.Port
	}
	if len(entries) > 0 {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// RenderShardMap renders the host-to-port map as JSON with a trailing
// newline, skipping staging aliases. An empty layout renders as "{}\n",
// matching the materializer default.
func RenderShardMap(entries []Entry) ([]byte, error) {
	shardMap := make(map[string]int, len(entries))
	for _, e := range entries {
		if e.Alias {
			continue
		}
		shardMap[e.Host] = e.Port
	}
	data, err := json.Marshal(shardMap)
	if err != nil {
		return nil, fmt.Errorf("marshal shard map: %w", err)
	}
	return append(data, '\n'), nil
}

// writeIfChanged writes content atomically (temp + rename) unless the
// file already holds exactly these bytes. Mode and ownership of an
// existing file are preserved.
func writeIfChanged(path string, content []byte) (changed bool, err error) {
	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, content) {
		return false, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("read %s: %w", path, err)
	}

	mode := os.FileMode(0o644)
	var uid, gid = -1, -1
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
		if sys, ok := sysIdentity(info); ok {
			uid, gid = sys.uid, sys.gid
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return false, fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return false, fmt.Errorf("chmod %s: %w", path, err)
	}
	if uid >= 0 {
		if err := tmp.Chown(uid, gid); err != nil {
			tmp.Close()
			return false, fmt.Errorf("chown %s: %w", path, err)
		}
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return false, fmt.Errorf("replace %s: %w", path, err)
	}
	return true, nil
}
