package clock

import (
	"time"

	"go.uber.org/fx"
)

type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type System struct{}

func (System) Now() time.Time {
	return time.Now().UTC()
}

func (System) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

var Module = fx.Module("clock",
	fx.Provide(func() Clock { return System{} }),
)
