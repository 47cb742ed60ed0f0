package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model. It captures the
// instance to talk to, credentials, and timeline/notification behavior.
type Config struct {
	Instance      InstanceConfig      `yaml:"instance"`
	Credentials   CredentialsConfig   `yaml:"credentials"`
	Account       AccountConfig       `yaml:"account"`
	Timelines     TimelinesConfig     `yaml:"timelines"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Actions       ActionsConfig       `yaml:"actions"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

type InstanceConfig struct {
	URL string `yaml:"url"`
}

type CredentialsConfig struct {
	// OAuth bearer token. If empty, read from env SOUNDREEL_ACCESS_TOKEN
	AccessToken string `yaml:"accessToken"`
}

type AccountConfig struct {
	Username string `yaml:"username"`
	ID       string `yaml:"id"`
}

type TimelinesConfig struct {
	// Poll period for every timeline stream
	PollInterval time.Duration `yaml:"pollInterval"`
	// When false, fetches pass with_muted so muted posts still arrive
	HideMutedPosts bool `yaml:"hideMutedPosts"`
}

type NotificationsConfig struct {
	// Desktop notification allow-list
	Visibility VisibilityConfig `yaml:"visibility"`
	Desktop    bool             `yaml:"desktop"`
}

type VisibilityConfig struct {
	Likes    bool `yaml:"likes"`
	Mentions bool `yaml:"mentions"`
	Repeats  bool `yaml:"repeats"`
	Follows  bool `yaml:"follows"`
}

type ActionsConfig struct {
	// Whether a failed optimistic action reverts its local flip. The
	// observed client leaves the flip in place and relies on the next
	// refetch, so this defaults to false.
	RollbackOnFailure bool `yaml:"rollbackOnFailure"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// VisibleTypes flattens the visibility section into the notification
// type allow-list.
func (n NotificationsConfig) VisibleTypes() []string {
	var out []string
	if n.Visibility.Likes {
		out = append(out, "like")
	}
	if n.Visibility.Mentions {
		out = append(out, "mention")
	}
	if n.Visibility.Repeats {
		out = append(out, "repeat")
	}
	if n.Visibility.Follows {
		out = append(out, "follow")
	}
	return out
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Instance:    InstanceConfig{URL: "https://sound.example"},
		Credentials: CredentialsConfig{AccessToken: ""},
		Account:     AccountConfig{Username: ""},
		Timelines:   TimelinesConfig{PollInterval: 10 * time.Second, HideMutedPosts: true},
		Notifications: NotificationsConfig{
			Visibility: VisibilityConfig{Likes: true, Mentions: true, Repeats: true, Follows: true},
			Desktop:    true,
		},
		Actions: ActionsConfig{RollbackOnFailure: false},
		Metrics: MetricsConfig{Addr: ""},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.Credentials.AccessToken == "" {
		c.Credentials.AccessToken = os.Getenv("SOUNDREEL_ACCESS_TOKEN")
	}
	if c.Instance.URL == "" {
		c.Instance.URL = os.Getenv("SOUNDREEL_INSTANCE_URL")
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = os.Getenv("METRICS_ADDR")
	}
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Timelines.PollInterval <= 0 {
		cfg.Timelines.PollInterval = 10 * time.Second
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
