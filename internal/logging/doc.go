// Package logging provides structured logging for projreg.
//
// # Overview
//
// The package wraps Zap with:
//   - A Trace level (-2, below Debug)
//   - stdout, stderr, file and OpenTelemetry outputs
//   - Context field injection (trace_id, span_id, request.id, project)
//   - Level-aware sampling (errors are never sampled)
//
// # Usage
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, nil)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithProject(ctx, "Alpha")
//	logger.Info(ctx, "project created", zap.Int("source_schemas", 3))
//
// produces
//
//	{"level":"info","ts":"2026-10-19T10:15:30Z","msg":"project created","project":"Alpha","source_schemas":3}
//
// # Interactive sessions
//
// The prompt loop owns the terminal, so it disables the stdout/stderr
// outputs. Logs then go to Output.File when set, or nowhere (NewNop).
//
// # Testing
//
// NewTestLogger records every entry in memory:
//
//	tl := logging.NewTestLogger()
//	svc.DoSomething(ctx, tl.Logger)
//	tl.AssertLogged(t, zapcore.InfoLevel, "project created")
package logging
