/*
Package health provides HTTP-based health checking for a node's one
external dependency it cannot function without: the chain RPC endpoint for
a Manager, the IPFS gateway for a Worker configured with that storage
backend (see cmd/balthazar's runHealthChecks).

# Checker Interface

	type Checker interface {
		Check(ctx context.Context) Result
		Type() CheckType
	}

This allows runHealthChecks to call Check() without knowing which
dependency it's probing.

# Result

	type Result struct {
		Healthy   bool
		Message   string
		CheckedAt time.Time
		Duration  time.Duration
	}

# Status Tracking

Status implements hysteresis over a run of Results, so a single transient
failure doesn't flip a component unhealthy:

	type Status struct {
		ConsecutiveFailures  int
		ConsecutiveSuccesses int
		LastCheck            time.Time
		LastResult           Result
		Healthy              bool
		StartedAt            time.Time
	}

Update(result, config) advances the streak counters and only flips Healthy
to false once ConsecutiveFailures reaches config.Retries; one success
resets it to healthy. InStartPeriod(config) reports whether a component is
still inside its startup grace period, during which failures shouldn't
count.

# Usage

	checker := health.NewHTTPChecker("http://rpc-node:8545")
	checker.WithStatusRange(200, 299).WithTimeout(5 * time.Second)

	result := checker.Check(ctx)
	if !result.Healthy {
		log.Warn("chain RPC unhealthy: " + result.Message)
	}

# See Also

  - cmd/balthazar's runHealthChecks — probes a Manager's chain RPC
    endpoint and a Worker's IPFS gateway on a 30s tick, publishing results
    through pkg/metrics.RegisterComponent so /health reflects them.
*/
package health
