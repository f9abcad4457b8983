package arena

import "errors"

// Sentinel errors for expected failure conditions, checked with
// errors.Is by callers that need to distinguish them from unexpected
// failures.
var (
	ErrWorldNotRunning = errors.New("arena: world is not running")
	ErrNoAgents        = errors.New("arena: world has no agents configured")
	ErrAgentNotFound   = errors.New("arena: agent not found")
	ErrSpawnInfeasible = errors.New("arena: no passable tile found for spawn after exhausting attempts")
)
