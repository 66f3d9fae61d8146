// Package fakebackend serves a stand-in conversion and authentication
// service over echo.
//
// Jobs advance through a time-based progress script (5, then +step per tick
// up to 85, then 100 with done) unless a fixed Script is installed. Failure
// switches let tests exercise the client's error paths against real HTTP.
// The `wordxl dev-backend` command runs the same server for local work.
package fakebackend
