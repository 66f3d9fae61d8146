// Package logs reads the wordxl log file for the `wordxl logs` command.
//
// Last returns the final N lines with bounded memory; Follow polls from an
// offset and hands new lines to a callback until its context ends. A Filter
// narrows lines by component or level for both the console and JSON formats.
package logs
