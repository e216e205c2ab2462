package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const DefaultChunkSize = 4096

// TLSConfig mirrors transport.SecurityConfig for the TOML surface.
type TLSConfig struct {
	Enabled     bool   `toml:"enabled"`
	CertFile    string `toml:"cert_file"`
	KeyFile     string `toml:"key_file"`
	TrustAnchor string `toml:"trust_anchor"`
}

type ClientConfig struct {
	Addr      string    `toml:"addr"`
	Port      int       `toml:"port"`
	ChunkSize int       `toml:"chunk_size"`
	Repeat    int       `toml:"repeat"`
	TLS       TLSConfig `toml:"tls"`
}

type ServerConfig struct {
	BindAddr    string    `toml:"bind_addr"`
	Port        int       `toml:"port"`
	ReceiveDir  string    `toml:"receive_dir"`
	MetricsFile string    `toml:"metrics_file"`
	AdminAddr   string    `toml:"admin_addr"`
	ChunkSize   int       `toml:"chunk_size"`
	TLS         TLSConfig `toml:"tls"`
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ChunkSize: DefaultChunkSize,
		Repeat:    1,
	}
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		BindAddr:  "0.0.0.0",
		ChunkSize: DefaultChunkSize,
	}
}

func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	if err := loadToml(path, &cfg); err != nil {
		return ClientConfig{}, err
	}
	fillClientDefaults(&cfg)
	if err := ValidateClientConfig(cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if err := loadToml(path, &cfg); err != nil {
		return ServerConfig{}, err
	}
	FillServerDefaults(&cfg)
	if err := ValidateServerConfig(cfg); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

func fillClientDefaults(cfg *ClientConfig) {
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Repeat == 0 {
		cfg.Repeat = 1
	}
}

// FillServerDefaults resolves the mode-dependent defaults: the secure
// server keeps its artifacts apart from the plain one so the offline
// comparison tooling can read both stores side by side.
func FillServerDefaults(cfg *ServerConfig) {
	if cfg.BindAddr == "" {
		cfg.BindAddr = "0.0.0.0"
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ReceiveDir == "" {
		if cfg.TLS.Enabled {
			cfg.ReceiveDir = "received_tls"
		} else {
			cfg.ReceiveDir = "received"
		}
	}
	if cfg.MetricsFile == "" {
		if cfg.TLS.Enabled {
			cfg.MetricsFile = "metrics_tls.csv"
		} else {
			cfg.MetricsFile = "metrics.csv"
		}
	}
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateClientConfig(cfg ClientConfig) error {
	if cfg.ChunkSize <= 0 {
		return fmt.Errorf("client config chunk_size must be positive")
	}
	if cfg.Repeat < 1 {
		return fmt.Errorf("client config repeat must be at least 1")
	}
	if cfg.Port != 0 && (cfg.Port < 1 || cfg.Port > 65535) {
		return fmt.Errorf("client config port out of range: %d", cfg.Port)
	}
	return nil
}

func ValidateServerConfig(cfg ServerConfig) error {
	if strings.TrimSpace(cfg.BindAddr) == "" {
		return fmt.Errorf("server config missing bind_addr")
	}
	if cfg.ChunkSize <= 0 {
		return fmt.Errorf("server config chunk_size must be positive")
	}
	if cfg.Port != 0 && (cfg.Port < 1 || cfg.Port > 65535) {
		return fmt.Errorf("server config port out of range: %d", cfg.Port)
	}
	if strings.TrimSpace(cfg.ReceiveDir) == "" {
		return fmt.Errorf("server config missing receive_dir")
	}
	if strings.TrimSpace(cfg.MetricsFile) == "" {
		return fmt.Errorf("server config missing metrics_file")
	}
	return nil
}
