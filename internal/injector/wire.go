//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/monkeyescape/monkeyescape/internal/config"
	"github.com/monkeyescape/monkeyescape/internal/core/session"
	"github.com/monkeyescape/monkeyescape/internal/server"
)

func InitializeSession(cfg config.Config) (*session.Session, func(), error) {
	wire.Build(SessionSet)
	return nil, nil, nil
}

func InitializeServer(cfg config.Config) (*server.Server, func(), error) {
	wire.Build(ServerSet)
	return nil, nil, nil
}
