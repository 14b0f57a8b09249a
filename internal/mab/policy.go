package mab

import "errors"

type BanditType string

const (
	EpsilonGreedy BanditType = "EpsilonGreedy"
	UCB1          BanditType = "UCB1"
	Thompson      BanditType = "Thompson"
	LinUCB        BanditType = "LinUCB"
)

// Types lists every policy the simulator knows about.
func Types() []BanditType {
	return []BanditType{EpsilonGreedy, UCB1, Thompson, LinUCB}
}

var (
	// ErrConfiguration marks invalid constructor arguments. Construction is
	// all-or-nothing: a wrapped ErrConfiguration means no instance was built.
	ErrConfiguration = errors.New("mab: invalid configuration")

	// ErrArmIndex marks an arm argument outside [0, NArms). No state has been
	// mutated when it is returned.
	ErrArmIndex = errors.New("mab: arm index out of range")
)

// Snapshot is a copy of the observable state shared by every policy.
type Snapshot struct {
	Counts    []int64   `json:"counts"`
	Values    []float64 `json:"values"`
	TrueProbs []float64 `json:"true_probs"`
}

// Policy is the interface that any bandit algorithm must implement.
type Policy interface {
	// Pull chooses the next arm based on the policy logic.
	Pull() int

	// Reward simulates one binary reward draw for the given arm.
	Reward(arm int) (int, error)

	// Update feeds an observed reward back into the policy's estimates.
	Update(arm int, reward int) error

	// EstimatedMeans returns the current per-arm mean-reward estimates.
	EstimatedMeans() []float64

	// RMSE measures how far the estimates are from the hidden ground truth.
	RMSE() float64

	// Snapshot returns a copy of the shared per-arm state.
	Snapshot() Snapshot

	// Type returns the type of the bandit policy.
	Type() BanditType
}
