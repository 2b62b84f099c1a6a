package log

// Package log provides a very small opinionated wrapper around Go's standard
// library logging facilities. Its goal is to offer a consistent way to emit
// logs per component while keeping migration friction low.
//
// Key Features
//
//   - Per component loggers via ForComponent(name)
//   - Automatic prefix in every line: `[name]` (example: `[web] listening on :8000`)
//   - Convenience level helpers: Infof, Warnf, Errorf, Debugf
//   - Debug logging can be enabled globally (SetGlobalDebug) or per component
//     (EnableDebugFor / DisableDebugFor)
//   - Uses the standard library *log.Logger* under the hood (no external deps)
//   - Central output writer (SetOutput) that updates existing loggers
//
// Non-Goals (for now)
//
//   - Full-featured leveled logging framework
//   - Structured / JSON logging
