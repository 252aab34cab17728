package discount

import (
	"github.com/railzwaylabs/caremarket/internal/discount/repository"
	"github.com/railzwaylabs/caremarket/internal/discount/service"
	"go.uber.org/fx"
)

var Module = fx.Module("discount.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
