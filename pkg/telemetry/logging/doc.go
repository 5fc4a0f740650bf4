// Package logging builds the structured loggers used across windowlimit.
//
// # Overview
//
// Loggers are plain *slog.Logger values backed by a handler that:
//   - Writes JSON or text
//   - Adds request_id, trace_id and span_id from the context
//   - Optionally replaces rate limit identifiers with a stable hash
//   - Supports changing the level at runtime
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:             "info",
//	    Format:            "json",
//	    RedactIdentifiers: true,
//	})
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	logger.InfoContext(ctx, "limit checked", "identifier", "203.0.113.9")
//	// {"msg":"limit checked","identifier":"id:5c1f...","request_id":"req-123"}
//
// # Identifier Redaction
//
// Identifiers are frequently IP addresses or user IDs. With redaction on,
// the values of the keys listed in Config.RedactKeys (default "identifier")
// are replaced with "id:" followed by the hex xxhash of the value, so the
// same caller remains correlatable across log lines.
package logging
