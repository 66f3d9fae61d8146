// Package preflight provides readiness checks for the conversion service,
// the auth backend, and the local paths wordxl depends on.
//
// These checks run in two contexts:
//   - The "wordxl doctor" command runs RunAll and renders every result.
//   - The "wordxl convert" command runs CheckDirectoryAccess on the output
//     directory before staging, so a bad path fails before any upload.
package preflight
