package injector

import (
	"math/rand/v2"

	"github.com/google/wire"

	"github.com/monkeyescape/monkeyescape/internal/config"
	"github.com/monkeyescape/monkeyescape/internal/core/events/bus"
	"github.com/monkeyescape/monkeyescape/internal/core/observability/log"
	"github.com/monkeyescape/monkeyescape/internal/core/session"
	"github.com/monkeyescape/monkeyescape/internal/core/world"
	"github.com/monkeyescape/monkeyescape/internal/server"
)

// SessionSet builds a Session and everything it depends on from a Config.
var SessionSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	bus.New,
	ProvideRand,
	ProvideWorld,
	ProvideSessionOptions,
	session.New,
)

// ServerSet adds the websocket server on top of SessionSet.
var ServerSet = wire.NewSet(
	SessionSet,
	ProvideServerConfig,
	server.New,
)

// ProvideLogger builds the process logger. The cleanup flushes buffered
// entries.
func ProvideLogger(cfg config.Config) (*log.Logger, func(), error) {
	logger, err := log.NewWithOptions(cfg.LogOptions())
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

// ProvideRand seeds the behaviour RNG. A zero seed draws one at random.
func ProvideRand(cfg config.Config) *rand.Rand {
	seed := cfg.Sim.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func ProvideWorld(cfg config.Config, rng *rand.Rand) (*world.World, error) {
	layout, err := cfg.Layout()
	if err != nil {
		return nil, err
	}
	return world.New(layout, cfg.Roster(), rng)
}

func ProvideSessionOptions(cfg config.Config) session.Options {
	return session.Options{
		SurvivalGoal:    cfg.Sim.SurvivalGoal,
		CaptureDistance: cfg.Sim.CaptureDistance,
		MenuGrace:       cfg.Sim.MenuGrace,
		MaxTickDelta:    cfg.Sim.MaxTickDelta,
	}
}

func ProvideServerConfig(cfg config.Config) server.Config {
	return server.Config{
		ListenAddr:      cfg.Server.ListenAddr,
		TickInterval:    cfg.TickInterval(),
		BroadcastEvery:  cfg.Server.BroadcastEvery,
		MaxMessageSize:  cfg.Server.MaxMessageSize,
		MessageRate:     cfg.Server.MessageRate,
		MessageBurst:    cfg.Server.MessageBurst,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
}
