// Package logging configures the gateway's structured logger.
//
// Every package logs through log/slog's default logger. This package builds
// the handler behind it: JSON or text output, a runtime adjustable level and
// optional redaction of chat content.
//
//	logger, err := logging.New(cfg.Telemetry.Logging, os.Stderr)
//	if err != nil {
//	    return err
//	}
//	logger.SetDefault()
//
// # Redaction
//
// With redact_content enabled, attributes named content, prompt, messages,
// response or reply are replaced by a length marker, so operators can see
// that a turn happened without seeing what was said:
//
//	slog.Info("turn persisted", "content", "Hello there")
//	// {"msg":"turn persisted","content":"[redacted 11 chars]"}
//
// Credentials such as bearer tokens are masked in every string value.
//
// # Request IDs
//
// Records logged with a *Context method pick up request_id from the
// context when the call site did not pass one explicitly.
package logging
