// Package config loads the YAML application config. Secrets may be
// overridden from the environment so the file can be committed.
package config

import (
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type DB struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	User string `yaml:"user"`
	Pass string `yaml:"password"`
	Name string `yaml:"database"`
}

func (d DB) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", d.User, d.Pass, d.Host, d.Port, d.Name)
}

type MQ struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	User    string `yaml:"user"`
	Pass    string `yaml:"password"`
}

// Store selects the shared key-value backend. "memory" is for tests
// and demos only; it does not survive a restart and cannot be shared
// between processes.
type Store struct {
	Backend  string `yaml:"backend"` // memory, pebble or postgres
	Path     string `yaml:"path"`    // pebble data directory
	Database DB     `yaml:"database"`
}

type HTTP struct {
	CustomerAddr string `yaml:"customer_addr"`
	KitchenAddr  string `yaml:"kitchen_addr"`
	WaiterAddr   string `yaml:"waiter_addr"`
}

// Duration unmarshals from YAML strings like "2.5s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	dur, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Poll struct {
	Customer Duration `yaml:"customer"`
	Kitchen  Duration `yaml:"kitchen"`
	Waiter   Duration `yaml:"waiter"`
}

type Suggest struct {
	GatewayURL string `yaml:"gateway_url"`
	APIKey     string `yaml:"api_key"`
}

type App struct {
	MenuPath string  `yaml:"menu"`
	BaseURL  string  `yaml:"base_url"` // printed in activation references
	Store    Store   `yaml:"store"`
	Rabbit   MQ      `yaml:"rabbitmq"`
	HTTP     HTTP    `yaml:"http"`
	Poll     Poll    `yaml:"poll"`
	Suggest  Suggest `yaml:"suggest"`
}

func Load(path string) (App, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return App{}, fmt.Errorf("read config: %w", err)
	}
	a := Defaults()
	if err := yaml.Unmarshal(b, &a); err != nil {
		return App{}, fmt.Errorf("parse config: %w", err)
	}
	a.applyEnv()
	if err := a.validate(); err != nil {
		return App{}, err
	}
	return a, nil
}

func Defaults() App {
	return App{
		MenuPath: "menu.yaml",
		BaseURL:  "http://localhost:8082",
		Store:    Store{Backend: "pebble", Path: "data/menuquick"},
		HTTP: HTTP{
			CustomerAddr: ":8081",
			KitchenAddr:  ":8082",
			WaiterAddr:   ":8083",
		},
		Poll: Poll{
			Customer: Duration(2500 * time.Millisecond),
			Kitchen:  Duration(3 * time.Second),
			Waiter:   Duration(5 * time.Second),
		},
	}
}

func (a *App) applyEnv() {
	if v := os.Getenv("MENUQUICK_DB_PASSWORD"); v != "" {
		a.Store.Database.Pass = v
	}
	if v := os.Getenv("MENUQUICK_AMQP_PASSWORD"); v != "" {
		a.Rabbit.Pass = v
	}
	if v := os.Getenv("MENUQUICK_SUGGEST_URL"); v != "" {
		a.Suggest.GatewayURL = v
	}
	if v := os.Getenv("MENUQUICK_SUGGEST_API_KEY"); v != "" {
		a.Suggest.APIKey = v
	}
}

func (a *App) validate() error {
	switch a.Store.Backend {
	case "memory":
	case "pebble":
		if a.Store.Path == "" {
			return fmt.Errorf("invalid config: pebble backend needs store.path")
		}
	case "postgres":
		if a.Store.Database.Host == "" {
			return fmt.Errorf("invalid config: postgres backend needs store.database.host")
		}
	default:
		return fmt.Errorf("invalid config: unknown store backend %q", a.Store.Backend)
	}
	if a.Rabbit.Enabled && a.Rabbit.Host == "" {
		return fmt.Errorf("invalid config: rabbitmq enabled but no host")
	}
	if a.Poll.Customer <= 0 || a.Poll.Kitchen <= 0 || a.Poll.Waiter <= 0 {
		return fmt.Errorf("invalid config: poll periods must be positive")
	}
	return nil
}

// FindConfig returns the first config file present in the usual spots.
func FindConfig() (string, error) {
	candidates := []string{"config.yaml", "config.example.yaml"}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fs.ErrNotExist
}
