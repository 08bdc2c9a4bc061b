// Package logging provides zerolog setup shared by every stork package.
//
// Loggers are built from a Config (level, format, output, file) and attached to a
// context.Context so that deep call paths can log without threading a logger
// argument through every signature:
//
//	result := logging.NewLoggerWithPath(cfg)
//	log := logging.ComponentLogger(result.Logger, "cli")
//	ctx = log.WithContext(ctx)
//	...
//	logging.FromContext(ctx).Debug().Ctx(ctx).Str("component", "cache").Msg("hit")
//
// Trace IDs are ULIDs stored on the context; the TraceHook copies them onto every
// event logged with .Ctx(ctx).
package logging
