package orchestration

import (
	"github.com/aeropractica/atc-core/core/contract"
	"github.com/aeropractica/atc-core/core/scenario"
	"github.com/aeropractica/atc-core/core/sessions"
)

// nextPhase decides where the session goes after a turn.
//
// Precedence: a reachable model hint wins on clean turns; otherwise a clean
// turn with a live controller response follows onSuccess, a contract-failed
// turn follows onFailure unless the phase retries neutrally, and everything
// else holds. Unreachable hints were already cleared during validation, so
// the hint seen here is always legal.
func (o *Orchestrator) nextPhase(phase scenario.Phase, response *contract.StructuredResponse, outcome sessions.Outcome) string {
	switch outcome {
	case sessions.OutcomeAccepted:
		if response == nil {
			return phase.ID
		}
		if response.NextPhaseHint != "" && phase.CanReach(response.NextPhaseHint) {
			return response.NextPhaseHint
		}
		if response.AllowResponse {
			if target, ok := phase.SuccessTarget(); ok {
				return target
			}
		}

	case sessions.OutcomeContractFailed:
		if !phase.RetryNeutral {
			if target, ok := phase.FailureTarget(); ok {
				return target
			}
		}
	}

	return phase.ID
}
