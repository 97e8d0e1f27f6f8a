// Package logging provides opt-in file-based logging with rotation for the
// retrieval engine. When debug logging is enabled, structured JSON logs are
// written to ~/.coderetrieval/logs/ for troubleshooting.
//
// By default, logging is minimal and goes to stderr only.
package logging
