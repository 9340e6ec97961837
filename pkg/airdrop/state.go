package airdrop

// State is the position of one submission in the approval and creation flow.
type State int

const (
	Idle State = iota
	CheckingAllowance
	ApprovalSigning
	ApprovalConfirming
	ApprovalComplete
	DistributionSigning
	DistributionConfirming
	Completed
	Failed
)

var stateNames = [...]string{
	Idle:                   "idle",
	CheckingAllowance:      "checking_allowance",
	ApprovalSigning:        "approval_signing",
	ApprovalConfirming:     "approval_confirming",
	ApprovalComplete:       "approval_complete",
	DistributionSigning:    "distribution_signing",
	DistributionConfirming: "distribution_confirming",
	Completed:              "completed",
	Failed:                 "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == Completed || s == Failed
}

// canTransition reports whether a run in from may move to to.
// Runs only move forward, and any non-terminal state may fail.
func canTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == Failed {
		return true
	}
	if to <= from || to > Completed {
		return false
	}
	// the approval states come as a block or not at all
	switch to {
	case ApprovalConfirming, ApprovalComplete, DistributionConfirming, Completed:
		return to == from+1
	case ApprovalSigning:
		return from == CheckingAllowance
	case DistributionSigning:
		return from == CheckingAllowance || from == ApprovalComplete
	}
	return from == Idle && to == CheckingAllowance
}

// Step names the on-chain write a hook refers to.
type Step string

const (
	StepApproval     Step = "approve"
	StepDistribution Step = "createDistribution"
)
