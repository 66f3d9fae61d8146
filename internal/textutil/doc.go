// Package textutil provides filename sanitization for files written to the
// output directory.
package textutil
