package notifications

import "time"

// Config tunes the engine and dispatcher from the environment.
type Config struct {
	PushWorkers     int           `env:"NOTIFY_PUSH_WORKERS" envDefault:"8"`        // PushWorkers caps concurrent per-token sends within one fanout.
	PushSendTimeout time.Duration `env:"NOTIFY_PUSH_SEND_TIMEOUT" envDefault:"10s"` // PushSendTimeout bounds each per-token gateway call.
	BulkWorkers     int           `env:"NOTIFY_BULK_WORKERS" envDefault:"4"`        // BulkWorkers caps concurrent per-user work in SendBulk.
	DefaultTimezone string        `env:"NOTIFY_DEFAULT_TIMEZONE" envDefault:"UTC"`  // DefaultTimezone is used for quiet hours when a preference carries none.
}

// DispatcherOptions converts the config into dispatcher options.
func (c Config) DispatcherOptions() []DispatcherOption {
	return []DispatcherOption{
		WithWorkers(c.PushWorkers),
		WithSendTimeout(c.PushSendTimeout),
	}
}

// EngineOptions converts the config into engine options.
func (c Config) EngineOptions() []EngineOption {
	return []EngineOption{
		WithBulkWorkers(c.BulkWorkers),
		WithDefaultTimezone(c.DefaultTimezone),
	}
}
