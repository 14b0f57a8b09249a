package mab

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// UCB1Bandit selects arms by optimism under uncertainty: the empirical mean
// plus an exploration bonus that shrinks as the arm accumulates pulls.
type UCB1Bandit struct {
	Bandit

	// TotalPulls is the number of selections made so far (t in the UCB1
	// formula). It is incremented when the arm is chosen, before the
	// corresponding Update.
	TotalPulls int64
}

func NewUCB1(nArms int, trueProbs []float64, src rand.Source) (*UCB1Bandit, error) {
	base, err := newBandit(nArms, trueProbs, src)
	if err != nil {
		return nil, err
	}
	return &UCB1Bandit{Bandit: base}, nil
}

// Pull computes Q(i) + sqrt(2 * ln(t) / N(i)) for every arm and returns the
// highest scorer, first index winning ties. An arm that was never pulled
// scores +Inf, which forces every arm to be tried once (in index order)
// before any score comparison is meaningful. ln(t) is always well-defined:
// by the time any arm has N(i) > 0, t is at least 1.
func (b *UCB1Bandit) Pull() int {
	b.TotalPulls++
	scores := make([]float64, b.NArms)
	for i := range scores {
		if b.Counts[i] == 0 {
			scores[i] = math.Inf(1)
			continue
		}
		bonus := math.Sqrt(2 * math.Log(float64(b.TotalPulls)) / float64(b.Counts[i]))
		scores[i] = b.Values[i] + bonus
	}
	return floats.MaxIdx(scores)
}

func (b *UCB1Bandit) Type() BanditType {
	return UCB1
}
