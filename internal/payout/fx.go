package payout

import (
	"github.com/railzwaylabs/caremarket/internal/payout/repository"
	"github.com/railzwaylabs/caremarket/internal/payout/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payout.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
