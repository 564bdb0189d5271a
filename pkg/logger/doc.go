// Package logger provides a configured slog.Logger factory and typed
// attribute helpers shared by the notification engine packages.
//
// The factory uses functional options with environment presets:
//
//	log := logger.New(logger.WithProduction("notifykit"))
//	logger.SetAsDefault(log)
//
// Attribute helpers keep log field names consistent across packages:
//
//	log.InfoContext(ctx, "push dispatched",
//	    logger.UserID(userID),
//	    logger.EventKey(eventKey),
//	    logger.SuccessCount(outcome.SuccessCount),
//	)
package logger
