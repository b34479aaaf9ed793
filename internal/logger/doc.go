// Package logger wraps zap to provide:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing for the --log-level flag,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// The builder passes a context through every step and extracts the logger
// from it, so each step logs with the scope it was given.
package logger
