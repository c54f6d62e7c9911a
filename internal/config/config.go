// Package config defines swapbytes's runtime configuration, following
// the teacher's WithDefaultConfig pattern (internal/config.defaultConfig,
// pkg/config/global.go) generalized from a torrent client's
// resource-limit knobs to the small set of operator-facing settings a
// LAN chat/file-share peer needs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v1"

	"github.com/swapbytes/swapbytes/internal/presence"
	"github.com/swapbytes/swapbytes/internal/transfer"
)

// Config is swapbytes's full set of operator-facing settings. Fields
// carry yaml tags so a config file can override any subset; CLI flags
// overlay on top of that (see cmd/swapbytes/main.go).
type Config struct {
	// Nickname is the display name advertised in every heartbeat and
	// chat message until changed with /setname.
	Nickname string `yaml:"nickname"`

	// ListenAddr is the host:port the transport listens on for inbound
	// peer connections. Port 0 picks any free port.
	ListenAddr string `yaml:"listen_addr"`

	// DownloadDir is where accepted file transfers are written.
	DownloadDir string `yaml:"download_dir"`

	// Visible is the initial presence visibility; /hide and /show
	// toggle it at runtime.
	Visible bool `yaml:"visible"`

	// HeartbeatInterval and PeerTimeout default to the presence
	// subsystem's constants and can be set in the config file, but no
	// other package reads them: the network task always uses
	// presence.HeartbeatInterval and presence.PeerTimeout.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	PeerTimeout       time.Duration `yaml:"peer_timeout"`

	// ChunkSize and ProgressUpdateBytes default to the transfer engine's
	// constants and can be set in the config file, but no other package
	// reads them: the transfer package always uses its own constants.
	ChunkSize           int `yaml:"chunk_size"`
	ProgressUpdateBytes int `yaml:"progress_update_bytes"`
}

// WithDefaultConfig returns sensible defaults for a first run: a
// hostname-derived nickname, an ephemeral listen port, and the
// platform's default downloads directory.
func WithDefaultConfig() (Config, error) {
	downloadDir, err := defaultDownloadDir()
	if err != nil {
		return Config{}, err
	}

	return Config{
		Nickname:            defaultNickname(),
		ListenAddr:          "0.0.0.0:0",
		DownloadDir:         downloadDir,
		Visible:             true,
		HeartbeatInterval:   presence.HeartbeatInterval,
		PeerTimeout:         presence.PeerTimeout,
		ChunkSize:           transfer.ChunkSize,
		ProgressUpdateBytes: transfer.ProgressUpdateBytes,
	}, nil
}

// LoadFile overlays cfg with any fields set in the YAML file at path. A
// missing file is not an error; it leaves cfg at its defaults, matching
// a first-run bootstrap with no config file written yet.
func LoadFile(cfg Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func defaultDownloadDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("config: default download dir: %w", err)
		}
		return filepath.Join(cwd, "downloads"), nil
	}
	return filepath.Join(home, "Downloads", "swapbytes"), nil
}

func defaultNickname() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "anon"
	}
	return host
}
