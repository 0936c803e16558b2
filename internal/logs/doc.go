// Package logs reads build log files for the CLI.
//
// LastLines returns the tail of a log with bounded memory, and Follow polls
// for appended lines so `vnforge logs --follow` can watch a build running in
// another process (typically the MCP server).
package logs
