// Package config holds the flat, primitive-typed configuration structs for
// kassandra's CLI binaries, in the shape of the teacher's gocql.ClusterConfig
// (common/persistence/nosql/nosqlplugin/cassandra/gocql.ClusterConfig): plain
// fields, no interfaces, YAML-decodable.
package config

import (
	"os"

	yaml "gopkg.in/yaml.v2"
)

// ServerConfig configures the kassandra-server binary.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	DataPath string `yaml:"dataPath"`
}

// DefaultServerConfig returns the spec's documented defaults (§6 CLI).
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:     9044,
		DataPath: "./kassandra.data.json",
	}
}

// ProxyConfig configures the kassandra-proxy binary.
type ProxyConfig struct {
	Port         int    `yaml:"port"`
	UpstreamPort int    `yaml:"upstreamPort"`
	UpstreamHost string `yaml:"upstreamHost"`
	DataPath     string `yaml:"dataPath"`
}

// DefaultProxyConfig returns the spec's documented defaults (§6 CLI).
func DefaultProxyConfig() ProxyConfig {
	return ProxyConfig{
		Port:         9044,
		UpstreamPort: 9042,
		UpstreamHost: "127.0.0.1",
		DataPath:     "./kassandra.data.json",
	}
}

// LoadServerConfig decodes a YAML file into a ServerConfig starting from the defaults.
func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
