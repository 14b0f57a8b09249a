package mab

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// EpsilonGreedyBandit explores with a fixed probability and exploits the
// best-looking arm otherwise.
type EpsilonGreedyBandit struct {
	Bandit
	Epsilon float64

	// Diagnostic tallies. Their sum always equals the number of Pull calls.
	ExploreCount int64
	ExploitCount int64
}

// NewEpsilonGreedy builds an epsilon-greedy bandit. epsilon must be in
// [0,1]: 0 degenerates to pure greedy, 1 to pure random exploration.
func NewEpsilonGreedy(nArms int, epsilon float64, trueProbs []float64, src rand.Source) (*EpsilonGreedyBandit, error) {
	if epsilon < 0 || epsilon > 1 {
		return nil, fmt.Errorf("%w: epsilon %f outside [0,1]", ErrConfiguration, epsilon)
	}
	base, err := newBandit(nArms, trueProbs, src)
	if err != nil {
		return nil, err
	}
	return &EpsilonGreedyBandit{Bandit: base, Epsilon: epsilon}, nil
}

// Pull draws u in [0,1) and exploits when u >= Epsilon, so epsilon 0 always
// exploits and epsilon 1 always explores, whatever the source produces.
// Exploiting returns the arm with the highest running mean, first index
// winning ties; exploring returns a uniformly random arm.
func (b *EpsilonGreedyBandit) Pull() int {
	if b.rng.Float64() >= b.Epsilon {
		b.ExploitCount++
		return floats.MaxIdx(b.Values)
	}
	b.ExploreCount++
	return b.rng.IntN(b.NArms)
}

func (b *EpsilonGreedyBandit) Type() BanditType {
	return EpsilonGreedy
}
