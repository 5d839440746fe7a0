package governance

import (
	"fmt"
	"math"

	"trustgate/internal/threshold"
)

// #region action
// Action is the discrete outcome of one governance evaluation.
type Action string

const (
	ActionApprove     Action = "APPROVE"
	ActionInvestigate Action = "INVESTIGATE"
	ActionBlock       Action = "BLOCK"
)

// Process exit codes paired with each action. ExitStructuralFailure is
// reserved for failures outside the decision ladder (store or ledger I/O).
const (
	ExitApprove           = 0
	ExitInvestigate       = 1
	ExitBlock             = 2
	ExitStructuralFailure = 3
)

// #endregion action

// #region decision
// Decision is the terminal output of one monitoring cycle.
type Decision struct {
	Action     Action        `json:"action"`
	ExitCode   int           `json:"exit_code"`
	Delta      float64       `json:"delta"`
	Thresholds threshold.Set `json:"thresholds"`
	Reason     string        `json:"reason"`
}

// #endregion decision

// #region decide
// Decide maps a delta against the threshold ladder. Checks run in order and
// the first match wins, so ties resolve to the more permissive branch.
// Non-finite deltas fail closed to BLOCK; Decide never panics.
func Decide(delta float64, thresholds threshold.Set) Decision {
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return Decision{
			Action:     ActionBlock,
			ExitCode:   ExitBlock,
			Delta:      delta,
			Thresholds: thresholds,
			Reason:     "non-finite delta, failing closed",
		}
	}

	switch {
	case delta >= thresholds.Improve:
		return decision(ActionApprove, ExitApprove, delta, thresholds,
			fmt.Sprintf("delta %.4f >= improve threshold %.4f", delta, thresholds.Improve))
	case delta >= thresholds.Stable:
		return decision(ActionApprove, ExitApprove, delta, thresholds,
			fmt.Sprintf("delta %.4f >= stable threshold %.4f", delta, thresholds.Stable))
	case delta >= thresholds.Critical:
		return decision(ActionInvestigate, ExitInvestigate, delta, thresholds,
			fmt.Sprintf("delta %.4f >= critical threshold %.4f", delta, thresholds.Critical))
	default:
		return decision(ActionBlock, ExitBlock, delta, thresholds,
			fmt.Sprintf("delta %.4f below critical threshold %.4f", delta, thresholds.Critical))
	}
}

func decision(a Action, code int, delta float64, t threshold.Set, reason string) Decision {
	return Decision{
		Action:     a,
		ExitCode:   code,
		Delta:      delta,
		Thresholds: t,
		Reason:     reason,
	}
}

// #endregion decide
