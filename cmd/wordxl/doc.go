// Package main hosts the wordxl CLI entrypoint and command graph.
//
// The Cobra command tree stages Word documents, drives a conversion session
// against the remote service, and renders its progress as a terminal UI,
// plain progress bar, or JSON lines. It also manages the auth session,
// session history, configuration scaffolding, and a local stand-in backend.
//
// Keep this package lean: the session, clients, and stores live in internal
// packages; commands here only wire them together and format output.
package main
