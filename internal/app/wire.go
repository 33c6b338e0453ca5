//go:build wireinject

package app

import (
	"context"

	"github.com/google/wire"

	"spotpilot/internal/config"
)

func buildAppWithWire(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(ProviderSet)
	return nil, nil, nil
}
