package scheduler

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("scheduler",
	fx.Provide(New),
	fx.Invoke(register),
)

func register(lc fx.Lifecycle, s *Scheduler, log *zap.Logger) {
	if !s.cfg.Enabled {
		log.Info("scheduler disabled by configuration")
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			s.Start()
			return nil
		},
		OnStop: s.Stop,
	})
}
