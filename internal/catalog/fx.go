package catalog

import (
	"github.com/railzwaylabs/caremarket/internal/catalog/repository"
	"github.com/railzwaylabs/caremarket/internal/catalog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
