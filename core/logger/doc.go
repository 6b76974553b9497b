// Package logger provides structured logging helpers built on log/slog.
//
// New builds a logger from functional options:
//
//	log := logger.New(
//		logger.WithProduction("api"),
//		logger.WithContextExtractors(reqctx.LogExtractor),
//	)
//
// Attribute helpers keep call sites uniform and are nil safe, so an error attribute
// can be passed without checking the error first:
//
//	log.WarnContext(ctx, "teardown hook failed",
//		logger.Component("dispatch"),
//		logger.Error(err),
//	)
//
// Components in this module default to Discard and accept a logger via WithLogger.
package logger
