package mab

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// ThompsonBandit keeps a Beta(alpha, beta) posterior per arm and selects by
// sampling each posterior. Exploration fades naturally as the posteriors
// sharpen around the observed success rates.
type ThompsonBandit struct {
	Bandit
	Alphas []float64
	Betas  []float64
}

// NewThompson builds a Thompson-sampling bandit with a Beta(initialAlpha,
// initialBeta) prior on every arm. Both parameters must be positive; 1,1 is
// the uniform prior.
func NewThompson(nArms int, initialAlpha, initialBeta float64, trueProbs []float64, src rand.Source) (*ThompsonBandit, error) {
	if initialAlpha <= 0 || initialBeta <= 0 {
		return nil, fmt.Errorf("%w: prior parameters must be positive, got alpha=%f beta=%f", ErrConfiguration, initialAlpha, initialBeta)
	}
	base, err := newBandit(nArms, trueProbs, src)
	if err != nil {
		return nil, err
	}
	alphas := make([]float64, nArms)
	betas := make([]float64, nArms)
	for i := 0; i < nArms; i++ {
		alphas[i] = initialAlpha
		betas[i] = initialBeta
	}
	return &ThompsonBandit{Bandit: base, Alphas: alphas, Betas: betas}, nil
}

// WarmUp pulls every arm once in index order so each posterior sees at least
// one observation before the first adaptive Pull. It is optional and carries
// no guard against repeated calls: running it twice pulls every arm twice.
func (b *ThompsonBandit) WarmUp() error {
	for arm := 0; arm < b.NArms; arm++ {
		r, err := b.Reward(arm)
		if err != nil {
			return err
		}
		if err := b.Update(arm, r); err != nil {
			return err
		}
	}
	return nil
}

// Pull samples theta_i ~ Beta(Alphas[i], Betas[i]) for every arm and returns
// the arm with the largest sample, first index winning exact ties.
func (b *ThompsonBandit) Pull() int {
	best := 0
	bestSample := math.Inf(-1)
	for i := 0; i < b.NArms; i++ {
		theta := distuv.Beta{Alpha: b.Alphas[i], Beta: b.Betas[i], Src: b.src}.Rand()
		if theta > bestSample {
			bestSample = theta
			best = i
		}
	}
	return best
}

// Update applies the shared incremental-mean update, then moves the arm's
// posterior: a success bumps alpha, a failure bumps beta, so alpha + beta
// grows by exactly 1 per observation.
func (b *ThompsonBandit) Update(arm int, reward int) error {
	if err := b.Bandit.Update(arm, reward); err != nil {
		return err
	}
	if reward == 1 {
		b.Alphas[arm]++
	} else {
		b.Betas[arm]++
	}
	return nil
}

func (b *ThompsonBandit) Type() BanditType {
	return Thompson
}
