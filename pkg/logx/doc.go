// Package logx configures homeauto's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - Runtime-applicable config (level/sinks swap on hot reload)
package logx
