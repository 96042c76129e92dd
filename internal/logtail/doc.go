// Package logtail reads the tail of the storefront log for the activity view.
//
// # Overview
//
// Read extracts the last N lines of a log file with a ring buffer, so a large
// file is scanned once without being held in memory. A missing file is not an
// error: the log may simply not have been written yet.
//
// Parse and ReadEntries decode the JSON lines produced by the logging
// package (timestamp, severity, message) into Entry values. Lines that are
// not JSON, such as console-format output, are kept verbatim in Entry.Raw.
package logtail
