package invoice

import (
	"github.com/railzwaylabs/caremarket/internal/invoice/render"
	"github.com/railzwaylabs/caremarket/internal/invoice/repository"
	"github.com/railzwaylabs/caremarket/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(render.NewRenderer),
	fx.Provide(service.NewService),
)
