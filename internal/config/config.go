package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/monkeyescape/monkeyescape/internal/core/agent"
	"github.com/monkeyescape/monkeyescape/internal/core/observability/log"
	"github.com/monkeyescape/monkeyescape/internal/core/systems/physics"
	"github.com/monkeyescape/monkeyescape/internal/core/world"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full process configuration. Zero sections in a loaded
// file keep the values from Default.
type Config struct {
	Sim      Sim      `yaml:"sim"`
	Arena    Arena    `yaml:"arena"`
	Profiles Profiles `yaml:"profiles"`
	Server   Server   `yaml:"server"`
	Log      Log      `yaml:"log"`
}

// Sim holds the session rules and the fixed-rate loop settings.
type Sim struct {
	TickHz          int     `yaml:"tick_hz"`
	MaxTickDelta    float64 `yaml:"max_tick_delta"`
	SurvivalGoal    float64 `yaml:"survival_goal"`
	CaptureDistance float64 `yaml:"capture_distance"`
	MenuGrace       float64 `yaml:"menu_grace"`
	// Seed fixes the behavior RNG; 0 picks a random seed per process.
	Seed uint64 `yaml:"seed"`
}

type Arena struct {
	Width       float64        `yaml:"width"`
	Height      float64        `yaml:"height"`
	Restitution float64        `yaml:"restitution"`
	Obstacles   []physics.Rect `yaml:"obstacles"`
	Spawns      *Spawns        `yaml:"spawns,omitempty"`
}

// Spawns overrides the default spawn points. Keys of Monkeys are variant
// names as accepted by agent.ParseVariant.
type Spawns struct {
	Hunter  *physics.Vec2           `yaml:"hunter,omitempty"`
	Monkeys map[string]physics.Vec2 `yaml:"monkeys,omitempty"`
}

type Profiles struct {
	Jimi     agent.Stats `yaml:"jimi"`
	Adamo    agent.Stats `yaml:"adamo"`
	ElGrande agent.Stats `yaml:"el_grande"`
	Hunter   agent.Stats `yaml:"hunter"`
}

type Server struct {
	ListenAddr string `yaml:"listen_addr"`
	// BroadcastEvery sends a snapshot to viewers every N ticks.
	BroadcastEvery int   `yaml:"broadcast_every"`
	MaxMessageSize int64 `yaml:"max_message_size"`
	// MessageRate caps viewer messages per second; 0 disables the limit.
	MessageRate     float64       `yaml:"message_rate"`
	MessageBurst    int           `yaml:"message_burst"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type Log struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns the stock configuration: the 960×540 arena, the
// built-in profiles and a 60 Hz loop.
func Default() Config {
	layout := world.DefaultLayout()
	return Config{
		Sim: Sim{
			TickHz:          60,
			MaxTickDelta:    0.05,
			SurvivalGoal:    45,
			CaptureDistance: 32,
			MenuGrace:       2.2,
		},
		Arena: Arena{
			Width:       layout.Width,
			Height:      layout.Height,
			Restitution: layout.Restitution,
			Obstacles:   layout.Obstacles,
		},
		Profiles: Profiles{
			Jimi:     agent.Profiles[agent.Jimi],
			Adamo:    agent.Profiles[agent.Adamo],
			ElGrande: agent.Profiles[agent.ElGrande],
			Hunter:   agent.HunterStats,
		},
		Server: Server{
			ListenAddr:      "127.0.0.1:8080",
			BroadcastEvery:  1,
			MaxMessageSize:  4 * 1024,
			MessageRate:     120,
			MessageBurst:    30,
			WriteTimeout:    2 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Log: Log{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// Load reads a YAML file over Default and validates the result.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return LoadYAML(f)
}

// LoadYAML decodes YAML from r over Default and validates the result.
// An empty document yields Default.
func LoadYAML(r io.Reader) (Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate fails fast on settings the simulation cannot run with.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Sim.TickHz > 0, "sim.tick_hz must be positive, got %d", c.Sim.TickHz)
	check(c.Sim.MaxTickDelta > 0, "sim.max_tick_delta must be positive, got %v", c.Sim.MaxTickDelta)
	check(c.Sim.SurvivalGoal > 0, "sim.survival_goal must be positive, got %v", c.Sim.SurvivalGoal)
	check(c.Sim.CaptureDistance > 0, "sim.capture_distance must be positive, got %v", c.Sim.CaptureDistance)
	check(c.Sim.MenuGrace >= 0, "sim.menu_grace must not be negative, got %v", c.Sim.MenuGrace)

	for name, s := range map[string]agent.Stats{
		"jimi": c.Profiles.Jimi, "adamo": c.Profiles.Adamo, "el_grande": c.Profiles.ElGrande,
	} {
		check(s.MaxSpeed > 0 && s.Acceleration > 0, "profiles.%s needs positive max_speed and acceleration", name)
		check(s.StaminaMax >= 0 && s.StaminaRegen >= 0, "profiles.%s stamina must not be negative", name)
		check(s.SprintMultiplier >= 1, "profiles.%s.sprint_multiplier must be at least 1", name)
	}
	check(c.Profiles.Hunter.MaxSpeed >= 0 && c.Profiles.Hunter.Acceleration >= 0,
		"profiles.hunter must not have negative speed or acceleration")

	check(c.Server.ListenAddr != "", "server.listen_addr is empty")
	check(c.Server.BroadcastEvery > 0, "server.broadcast_every must be positive, got %d", c.Server.BroadcastEvery)
	check(c.Server.MaxMessageSize > 0, "server.max_message_size must be positive")
	check(c.Server.MessageRate >= 0, "server.message_rate must not be negative")

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	if _, err := c.Layout(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Layout converts the arena section into a validated world layout.
func (c Config) Layout() (world.Layout, error) {
	l := world.Layout{
		Width:       c.Arena.Width,
		Height:      c.Arena.Height,
		Obstacles:   c.Arena.Obstacles,
		Spawns:      world.DefaultSpawns(c.Arena.Width, c.Arena.Height),
		Restitution: c.Arena.Restitution,
	}
	if sp := c.Arena.Spawns; sp != nil {
		if sp.Hunter != nil {
			l.Spawns.Hunter = *sp.Hunter
		}
		for name, pos := range sp.Monkeys {
			v, err := agent.ParseVariant(name)
			if err != nil {
				return world.Layout{}, fmt.Errorf("arena.spawns.monkeys: %w", err)
			}
			l.Spawns.Monkeys[v] = pos
		}
	}
	if err := l.Validate(); err != nil {
		return world.Layout{}, err
	}
	return l, nil
}

// Roster converts the profiles section into world agent stats.
func (c Config) Roster() world.Roster {
	return world.Roster{
		Profiles: map[agent.Variant]agent.Stats{
			agent.Jimi:     c.Profiles.Jimi,
			agent.Adamo:    c.Profiles.Adamo,
			agent.ElGrande: c.Profiles.ElGrande,
		},
		Hunter: c.Profiles.Hunter,
	}
}

// LogOptions converts the log section into logger options.
func (c Config) LogOptions() log.Options {
	level, _ := log.ParseLevel(c.Log.Level)
	return log.Options{
		Level:      level,
		Format:     c.Log.Format,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		Compress:   c.Log.Compress,
	}
}

// TickInterval is the wall-clock period of the simulation loop.
func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.Sim.TickHz)
}
