// Package auth manages the cookie-based login session with the conversion
// backend and a cached copy of the signed-in user.
//
// The cache lets commands keep working while the backend is unreachable:
// Check trusts the cached user only when verification cannot complete. A
// completed check that denies the session clears the cache, and Logout
// clears it whatever the backend answers.
package auth
