// Package pg bootstraps the PostgreSQL layer of the notification engine using
// the pgx/v5 driver.
//
// It exposes three cooperating pieces:
//
//   - Config: a declarative struct populated from environment variables,
//     controlling pool limits and migration settings.
//   - Connect: opens a *pgxpool.Pool with retry and linear back-off so
//     service startup tolerates a database that is still coming up.
//   - Migrate: applies embedded goose migrations before the engine starts
//     accepting sends, guaranteeing the notification schema is current.
//
// Error helpers (IsNotFoundError, IsDuplicateKeyError) give the storage
// implementations in pkg/notifications a uniform way to translate driver
// errors into the engine's typed sentinels.
//
// # Usage
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, migrations.FS, cfg, slog.Default()); err != nil {
//	    return err
//	}
package pg
