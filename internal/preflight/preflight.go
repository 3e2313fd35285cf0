package preflight

import (
	"context"

	"restronaut/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	if cfg.SalesWatch.Enabled {
		results = append(results, CheckDirectoryAccess("Sales folder", cfg.SalesWatch.Path))
	}
	if cfg.ManualOrderWatch.Enabled {
		results = append(results, CheckDirectoryAccess("Manual order folder", cfg.ManualOrderWatch.Path))
	}

	// Ingress folders only matter when the HTTP server is bound.
	if cfg.API.Bind != "" {
		for _, check := range []struct{ name, path string }{
			{"Order ingress folder", cfg.Ingress.OrderDir},
			{"Curbside ingress folder", cfg.Ingress.CurbsideDir},
			{"Create-file folder", cfg.Ingress.CreateFileDir},
		} {
			if check.path != "" {
				results = append(results, CheckDirectoryAccess(check.name, check.path))
			}
		}
	}

	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	results = append(results, CheckOrderService(ctx, cfg.OrderService.BaseURL, cfg.OrderService.AuthToken))
	results = append(results, CheckArchiveFromConfig(cfg))

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
