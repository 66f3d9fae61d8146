package preflight

import (
	"context"

	"wordxl/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckService(ctx, cfg.Service.BaseURL, cfg.Service.ProgressPath),
	}

	// The auth backend usually shares the service host; only check it
	// separately when it does not.
	if cfg.Auth.BaseURL != cfg.Service.BaseURL {
		results = append(results, CheckAuth(ctx, cfg.Auth.BaseURL))
	}

	results = append(results, CheckSessionLock(cfg), CheckCachedIdentity(cfg))
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
