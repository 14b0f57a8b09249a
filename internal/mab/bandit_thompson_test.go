package mab

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThompsonPriorValidation(t *testing.T) {
	_, err := NewThompson(3, 0, 1, nil, testSource(1))
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewThompson(3, 1, -2, nil, testSource(1))
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestThompsonWarmUpSeedsEveryArm(t *testing.T) {
	const initialAlpha, initialBeta = 5.0, 5.0

	b, err := NewThompson(3, initialAlpha, initialBeta, []float64{0.2, 0.5, 0.8}, testSource(21))
	assert.NoError(t, err)
	assert.NoError(t, b.WarmUp())

	for i := 0; i < 3; i++ {
		assert.Equal(t, int64(1), b.Counts[i], "arm %d", i)
		assert.Equal(t, initialAlpha+initialBeta+1, b.Alphas[i]+b.Betas[i], "arm %d", i)
	}
}

func TestThompsonWarmUpHasNoRepeatGuard(t *testing.T) {
	b, err := NewThompson(2, 1, 1, []float64{0.5, 0.5}, testSource(8))
	assert.NoError(t, err)

	assert.NoError(t, b.WarmUp())
	assert.NoError(t, b.WarmUp())

	assert.Equal(t, []int64{2, 2}, b.Counts)
}

func TestThompsonPosteriorConservation(t *testing.T) {
	b, err := NewThompson(2, 2, 3, []float64{0.7, 0.3}, testSource(13))
	assert.NoError(t, err)

	for i := 0; i < 200; i++ {
		arm := b.Pull()
		r, err := b.Reward(arm)
		assert.NoError(t, err)

		sumBefore := b.Alphas[arm] + b.Betas[arm]
		alphaBefore := b.Alphas[arm]
		assert.NoError(t, b.Update(arm, r))

		assert.Equal(t, sumBefore+1, b.Alphas[arm]+b.Betas[arm])
		assert.Equal(t, alphaBefore+float64(r), b.Alphas[arm])
	}
}

func TestThompsonDeterministicWithSameSeed(t *testing.T) {
	run := func() []int {
		b, err := NewThompson(4, 1, 1, []float64{0.2, 0.4, 0.6, 0.8}, testSource(99))
		assert.NoError(t, err)
		assert.NoError(t, b.WarmUp())

		arms := make([]int, 0, 50)
		for i := 0; i < 50; i++ {
			arm := b.Pull()
			arms = append(arms, arm)
			r, err := b.Reward(arm)
			assert.NoError(t, err)
			assert.NoError(t, b.Update(arm, r))
		}
		return arms
	}

	assert.Equal(t, run(), run())
}

func TestThompsonConvergesToBestArm(t *testing.T) {
	b, err := NewThompson(2, 1, 1, []float64{0.9, 0.1}, testSource(4321))
	assert.NoError(t, err)
	assert.NoError(t, b.WarmUp())

	for i := 0; i < 1000; i++ {
		arm := b.Pull()
		r, err := b.Reward(arm)
		assert.NoError(t, err)
		assert.NoError(t, b.Update(arm, r))
	}

	assert.GreaterOrEqual(t, b.Counts[0], int64(900),
		"expected the 0.9 arm to dominate, counts: %v", b.Counts)
}
