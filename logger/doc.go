// Package logger provides structured logging for the corpus preparation
// pipeline using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers carrying the pipeline's standard fields
// (meeting, speaker, channel, stage).
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "console"
//
// # Usage
//
//	log := logger.Get("slicer")
//	log.Info("sliced meeting", logger.Fields(logger.FieldMeeting, "ES2002", "speakers", 4))
package logger
