// Package config loads visread settings from a yaml file and VISREAD_*
// environment variables, environment winning.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the visread tools.
type Config struct {
	LogLevel string

	Bridge   BridgeConfig
	Database DatabaseConfig
	Store    StoreConfig
	Export   ExportConfig
	Fetch    FetchConfig
}

// BridgeConfig covers both sides of the table bridge.
type BridgeConfig struct {
	// Addr is the bridge the analysis host talks to (host:port).
	Addr string
	// Listen is the bind address of visread-bridge.
	Listen string
	// SliceRows caps rows per streamed slice.
	SliceRows int64
	// Tables maps served names to table URLs, parsed from
	// "name=url;name2=url2" (semicolons, since table URLs carry commas).
	Tables map[string]string
}

// DatabaseConfig holds the catalog connection.
type DatabaseConfig struct {
	URL string
}

// StoreConfig holds the object store used for run transfer.
type StoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
	// Local switches to an on-disk store rooted here instead of S3.
	Local string
}

// IsLocal reports whether transfers should use the local store.
func (s StoreConfig) IsLocal() bool { return s.Local != "" }

// ExportConfig holds exporter defaults.
type ExportConfig struct {
	Dir             string
	Formats         []string
	MaxRowsPerChunk int
}

// FetchConfig throttles archive downloads.
type FetchConfig struct {
	RateLimit  float64
	MaxRetries int
}

// Load reads configuration. path may name a config file explicitly;
// otherwise visread.yaml is searched for in the working directory and
// ~/.config/visread. A missing file is fine, defaults plus environment
// carry a full setup.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("bridge.addr", "")
	v.SetDefault("bridge.listen", ":7040")
	v.SetDefault("bridge.slice_rows", 8192)
	v.SetDefault("bridge.tables", "")
	v.SetDefault("database.url", "")
	v.SetDefault("store.endpoint", "")
	v.SetDefault("store.access_key", "")
	v.SetDefault("store.secret_key", "")
	v.SetDefault("store.bucket", "visread")
	v.SetDefault("store.prefix", "")
	v.SetDefault("store.use_ssl", false)
	v.SetDefault("store.local", "")
	v.SetDefault("export.dir", "export")
	v.SetDefault("export.formats", "npz")
	v.SetDefault("export.max_rows_per_chunk", 0)
	v.SetDefault("fetch.rate_limit", 2.0)
	v.SetDefault("fetch.max_retries", 3)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName("visread")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/visread")
		// Missing file is fine, defaults plus environment apply.
		_ = v.ReadInConfig()
	}

	v.SetEnvPrefix("VISREAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	cfg.LogLevel = v.GetString("log_level")
	cfg.Bridge.Addr = v.GetString("bridge.addr")
	cfg.Bridge.Listen = v.GetString("bridge.listen")
	cfg.Bridge.SliceRows = v.GetInt64("bridge.slice_rows")
	tables, err := ParseTables(v.GetString("bridge.tables"))
	if err != nil {
		return nil, err
	}
	cfg.Bridge.Tables = tables
	cfg.Database.URL = v.GetString("database.url")
	cfg.Store.Endpoint = v.GetString("store.endpoint")
	cfg.Store.AccessKey = v.GetString("store.access_key")
	cfg.Store.SecretKey = v.GetString("store.secret_key")
	cfg.Store.Bucket = v.GetString("store.bucket")
	cfg.Store.Prefix = v.GetString("store.prefix")
	cfg.Store.UseSSL = v.GetBool("store.use_ssl")
	cfg.Store.Local = v.GetString("store.local")
	cfg.Export.Dir = v.GetString("export.dir")
	cfg.Export.Formats = splitList(v.GetStringSlice("export.formats"))
	cfg.Export.MaxRowsPerChunk = v.GetInt("export.max_rows_per_chunk")
	cfg.Fetch.RateLimit = v.GetFloat64("fetch.rate_limit")
	cfg.Fetch.MaxRetries = v.GetInt("fetch.max_retries")
	return cfg, nil
}

// ParseTables parses "name=url;name2=url2" into a map. Empty input
// yields an empty map.
func ParseTables(s string) (map[string]string, error) {
	out := map[string]string{}
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, u, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		u = strings.TrimSpace(u)
		if !ok || name == "" || u == "" {
			return nil, fmt.Errorf("config: bad table entry %q, want name=url", pair)
		}
		out[name] = u
	}
	return out, nil
}

// splitList flattens comma-joined entries so both yaml lists and
// VISREAD_EXPORT_FORMATS="npz,parquet" work.
func splitList(vals []string) []string {
	var out []string
	for _, v := range vals {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
