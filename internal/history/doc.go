// Package history persists finished conversion sessions in SQLite so
// `wordxl history` can list past jobs and their result files.
package history
