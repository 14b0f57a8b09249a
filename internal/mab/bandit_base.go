package mab

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// Bandit holds the state shared by every policy: the hidden per-arm success
// probabilities, how many times each arm has been pulled and the running mean
// reward observed for it. It intentionally does not implement Pull: selecting
// an arm is the job of the concrete policies, so pulling "the base" is a
// compile error rather than a runtime surprise.
//
// An instance is owned by a single session. Concurrent use has to be
// serialized by the caller.
type Bandit struct {
	NArms     int
	TrueProbs []float64
	Counts    []int64
	Values    []float64

	src rand.Source
	rng *rand.Rand
}

// newBandit validates and builds the shared state. A nil trueProbs means the
// ground truth is sampled uniformly from [0.1, 0.9]; a nil src means a
// process-random source (pass a seeded one for reproducible runs).
func newBandit(nArms int, trueProbs []float64, src rand.Source) (Bandit, error) {
	if nArms <= 0 {
		return Bandit{}, fmt.Errorf("%w: nArms must be positive, got %d", ErrConfiguration, nArms)
	}
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	rng := rand.New(src)

	if trueProbs == nil {
		trueProbs = make([]float64, nArms)
		for i := range trueProbs {
			trueProbs[i] = 0.1 + 0.8*rng.Float64()
		}
	} else {
		if len(trueProbs) != nArms {
			return Bandit{}, fmt.Errorf("%w: expected %d true probabilities, got %d", ErrConfiguration, nArms, len(trueProbs))
		}
		for i, p := range trueProbs {
			if p < 0 || p > 1 {
				return Bandit{}, fmt.Errorf("%w: true probability %f for arm %d outside [0,1]", ErrConfiguration, p, i)
			}
		}
		// copy so later mutations of the caller's slice cannot change the ground truth
		trueProbs = append([]float64(nil), trueProbs...)
	}

	return Bandit{
		NArms:     nArms,
		TrueProbs: trueProbs,
		Counts:    make([]int64, nArms),
		Values:    make([]float64, nArms),
		src:       src,
		rng:       rng,
	}, nil
}

func (b *Bandit) checkArm(arm int) error {
	if arm < 0 || arm >= b.NArms {
		return fmt.Errorf("%w: arm %d, have %d arms", ErrArmIndex, arm, b.NArms)
	}
	return nil
}

// Reward simulates one binary reward for the given arm: 1 with probability
// TrueProbs[arm], else 0. Consumes one draw from the random source.
func (b *Bandit) Reward(arm int) (int, error) {
	if err := b.checkArm(arm); err != nil {
		return 0, err
	}
	if b.rng.Float64() < b.TrueProbs[arm] {
		return 1, nil
	}
	return 0, nil
}

// Update increments the arm's pull count and folds the reward into its
// running mean with the one-pass formula new = old + (r - old)/count, so no
// reward sum is ever stored. The reward value itself is not range-checked:
// callers are expected to feed back the binary rewards they got from Reward.
func (b *Bandit) Update(arm int, reward int) error {
	if err := b.checkArm(arm); err != nil {
		return err
	}
	b.Counts[arm]++
	b.Values[arm] += (float64(reward) - b.Values[arm]) / float64(b.Counts[arm])
	return nil
}

// EstimatedMeans returns the running per-arm mean rewards. The returned
// slice is the live one, not a copy.
func (b *Bandit) EstimatedMeans() []float64 {
	return b.Values
}

// RMSE is the root-mean-square error between the estimated means and the
// hidden true probabilities, recomputed fresh on every call.
func (b *Bandit) RMSE() float64 {
	diff := make([]float64, b.NArms)
	floats.SubTo(diff, b.EstimatedMeans(), b.TrueProbs)
	return math.Sqrt(floats.Dot(diff, diff) / float64(b.NArms))
}

// Snapshot returns copies of the observable shared state, safe to hand out
// to renderers and loggers.
func (b *Bandit) Snapshot() Snapshot {
	return Snapshot{
		Counts:    append([]int64(nil), b.Counts...),
		Values:    append([]float64(nil), b.Values...),
		TrueProbs: append([]float64(nil), b.TrueProbs...),
	}
}
