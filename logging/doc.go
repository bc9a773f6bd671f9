// Package logging provides the minimal Logger interface used throughout
// taskmesh together with slog based constructors.
//
// Components accept a Logger through their Options and default to NoOpLogger,
// so libraries stay silent unless the host application wires a logger:
//
//	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelDebug, Format: "text"})
//	job := job.NewSequentialJob(func(o *job.Options) { o.Logger = logger })
//
// Messages are dotted event names ("job.task.start") followed by slog style
// key/value pairs.
package logging
