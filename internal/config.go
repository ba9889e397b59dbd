package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig carries everything the serving endpoint needs: where to
// bind, which directory to offer, and the data-phase tuning knobs. The
// defaults are the protocol's reference constants; changing the window
// or payload sizing on one side only will break a transfer, so the
// knobs exist for tests and symmetric deployments, not per-side tuning.
type ServerConfig struct {
	Port              int    `mapstructure:"port"`
	ServeDir          string `mapstructure:"serve_dir"`
	WindowSize        int    `mapstructure:"window_size"`
	AckTimeoutMs      int    `mapstructure:"ack_timeout_ms"`
	MaxRetries        int    `mapstructure:"max_retries"`
	UDPReadBufferSize int    `mapstructure:"udp_read_buffer_size"`
	LogLevel          string `mapstructure:"log_level"`
}

// ClientConfig mirrors ServerConfig for the fetching endpoint.
type ClientConfig struct {
	LocalPort         int    `mapstructure:"local_port"`
	ServerAddr        string `mapstructure:"server_addr"`
	ServerPort        int    `mapstructure:"server_port"`
	OutputDir         string `mapstructure:"output_dir"`
	WindowSize        int    `mapstructure:"window_size"`
	ReceiveTimeoutMs  int    `mapstructure:"receive_timeout_ms"`
	MaxStalledRounds  int    `mapstructure:"max_stalled_rounds"`
	HandshakeAttempts int    `mapstructure:"handshake_attempts"`
	LogLevel          string `mapstructure:"log_level"`
}

func LoadServerConfig(configPath string) (*ServerConfig, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	v, err := initViper(configPath, filepath.Join(home, ".gust"), "server_config", "toml", "GUST_SERVER")
	if err != nil {
		return nil, err
	}

	v.SetDefault("port", 7077)
	v.SetDefault("serve_dir", "files")
	v.SetDefault("window_size", 5)
	v.SetDefault("ack_timeout_ms", 2000)
	v.SetDefault("max_retries", 100)
	v.SetDefault("udp_read_buffer_size", 64*1024)
	v.SetDefault("log_level", "info")

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal server config: %w", err)
	}
	cfg.ServeDir = expandPath(cfg.ServeDir)

	// Create-on-first-run ONLY (no config file was read)
	if v.ConfigFileUsed() == "" {
		writePath := configPath
		if writePath == "" {
			writePath = filepath.Join(home, ".gust", "server_config.toml")
		}
		if _, statErr := os.Stat(writePath); errors.Is(statErr, os.ErrNotExist) {
			if _, err := cfg.Save(writePath); err != nil {
				return nil, fmt.Errorf("persist default server config: %w", err)
			}
			Info("server config written", Fields{
				ConfigPath: writePath,
			})
		}
	}

	return &cfg, nil
}

func LoadClientConfig(configPath string) (*ClientConfig, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	v, err := initViper(configPath, filepath.Join(home, ".gust"), "client_config", "toml", "GUST_CLIENT")
	if err != nil {
		return nil, err
	}

	v.SetDefault("local_port", 0)
	v.SetDefault("server_addr", "")
	v.SetDefault("server_port", 7077)
	v.SetDefault("output_dir", ".")
	v.SetDefault("window_size", 5)
	v.SetDefault("receive_timeout_ms", 5000)
	v.SetDefault("max_stalled_rounds", 3)
	v.SetDefault("handshake_attempts", 3)
	v.SetDefault("log_level", "info")

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal client config: %w", err)
	}
	cfg.OutputDir = expandPath(cfg.OutputDir)

	if v.ConfigFileUsed() == "" {
		writePath := configPath
		if writePath == "" {
			writePath = filepath.Join(home, ".gust", "client_config.toml")
		}
		if _, statErr := os.Stat(writePath); errors.Is(statErr, os.ErrNotExist) {
			if _, err := cfg.Save(writePath); err != nil {
				return nil, fmt.Errorf("persist default client config: %w", err)
			}
			Info("client config written", Fields{
				ConfigPath: writePath,
			})
		}
	}

	return &cfg, nil
}

func initViper(configPath, defaultDir, defaultName, defaultType, envPrefix string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType(defaultType)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(defaultDir)
		v.AddConfigPath(".")
		v.SetConfigName(defaultName)
	}

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if errors.Is(err, os.ErrNotExist) {
			// An explicit --config path that does not exist yet falls
			// through to defaults and create-on-first-run.
			notFound = true
		}
		if !notFound {
			Error("config file not readable", Fields{
				ConfigPath: configPath,
			})
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

func (cfg *ServerConfig) Save(path string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if path == "" {
		path = filepath.Join(home, ".gust", "server_config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("port", cfg.Port)
	v.Set("serve_dir", cfg.ServeDir)
	v.Set("window_size", cfg.WindowSize)
	v.Set("ack_timeout_ms", cfg.AckTimeoutMs)
	v.Set("max_retries", cfg.MaxRetries)
	v.Set("udp_read_buffer_size", cfg.UDPReadBufferSize)
	v.Set("log_level", cfg.LogLevel)

	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("write server config: %w", err)
	}
	_ = os.Chmod(path, 0o600)
	return path, nil
}

func (cfg *ClientConfig) Save(path string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if path == "" {
		path = filepath.Join(home, ".gust", "client_config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("local_port", cfg.LocalPort)
	v.Set("server_addr", cfg.ServerAddr)
	v.Set("server_port", cfg.ServerPort)
	v.Set("output_dir", cfg.OutputDir)
	v.Set("window_size", cfg.WindowSize)
	v.Set("receive_timeout_ms", cfg.ReceiveTimeoutMs)
	v.Set("max_stalled_rounds", cfg.MaxStalledRounds)
	v.Set("handshake_attempts", cfg.HandshakeAttempts)
	v.Set("log_level", cfg.LogLevel)

	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("write client config: %w", err)
	}
	_ = os.Chmod(path, 0o600)
	return path, nil
}

func expandPath(p string) string {
	if p == "" {
		return p
	}
	p = os.ExpandEnv(p)
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
