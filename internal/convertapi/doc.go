// Package convertapi wraps the conversion service's HTTP contract: multipart
// upload, conversion start, progress polling, and result download.
//
// The client is stateless. Every call takes the job identifier issued at
// upload, tags the request with an X-Request-ID, and maps non-2xx responses
// onto services.ErrRemote with the phase-specific message the session
// controller surfaces to the user. Nothing is retried.
package convertapi
