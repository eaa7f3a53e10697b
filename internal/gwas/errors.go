package gwas

import "fmt"

// ConfigError reports an invalid, incomplete or contradictory setup. It is
// always raised before any data is read and is never retried.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + e.Message
}

// ParseError reports a token that could not be converted.
type ParseError struct {
	Value   string
	Message string
}

func (e *ParseError) Error() string {
	if e.Value == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %q", e.Message, e.Value)
}

// RangeError reports a value that parsed but violates a domain constraint,
// such as a p-value or frequency outside [0, 1].
type RangeError struct {
	Field   string
	Value   string
	Message string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s out of range (%s): %s", e.Field, e.Value, e.Message)
}

// LineParseError wraps any failure to turn one line into a record and keeps
// the offending text for reporting.
type LineParseError struct {
	Line string
	Err  error
}

func (e *LineParseError) Error() string {
	return e.Err.Error()
}

func (e *LineParseError) Unwrap() error {
	return e.Err
}

// LineError is one entry of a reader's error log.
type LineError struct {
	Line    int    // 1-based, counting skipped header rows
	Message string // human-readable reason
	Raw     string // the input text
}

// TooManyBadLinesError is returned when a tolerant read exceeds its error
// budget. Errors holds every entry recorded before giving up.
type TooManyBadLinesError struct {
	Errors []LineError
}

func (e *TooManyBadLinesError) Error() string {
	return fmt.Sprintf("too many lines failed to parse (%d); stopping", len(e.Errors))
}

// SnifferError reports that column-role inference could not resolve a
// required field. Callers must supply explicit configuration instead.
type SnifferError struct {
	Field string
}

func (e *SnifferError) Error() string {
	return fmt.Sprintf("could not auto-detect file format: unable to find %s", e.Field)
}

// NotSupportedError reports an operation the source cannot serve, such as a
// region query on a file without an index.
type NotSupportedError struct {
	Message string
}

func (e *NotSupportedError) Error() string {
	return e.Message
}
