package preflight

import (
	"fmt"

	"wordxl/internal/auth"
	"wordxl/internal/config"
	"wordxl/internal/runlock"
)

// CheckSessionLock reports whether another wordxl process holds the session
// lock. A held lock is informational, not a failure.
func CheckSessionLock(cfg *config.Config) Result {
	const name = "Session lock"

	path := cfg.LockPath()
	busy, err := runlock.Busy(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if !busy {
		return Result{Name: name, Passed: true, Detail: "free"}
	}
	if pid, ok := runlock.Holder(path); ok {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("held by pid %d", pid)}
	}
	return Result{Name: name, Passed: true, Detail: "held"}
}

// CheckCachedIdentity reports the cached auth user without contacting the
// backend. An unreadable state file fails.
func CheckCachedIdentity(cfg *config.Config) Result {
	const name = "Cached identity"

	state, err := auth.NewFileStore(cfg.Auth.StatePath).Load()
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if state.User == nil {
		return Result{Name: name, Passed: true, Detail: "signed out"}
	}
	return Result{Name: name, Passed: true, Detail: state.User.DisplayName()}
}
