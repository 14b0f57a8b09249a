package mab

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// LinUCBBandit implements the LinUCB algorithm with disjoint linear models.
// Reference: Li et al., "A Contextual-Bandit Approach to Personalized News
// Article Recommendation", Algorithm 1. Each arm keeps a design matrix A and
// a reward vector b; the score is the predicted reward plus a confidence
// term that shrinks as the arm accumulates observations.
//
// The feature vector is [bias, sigma(load)], where load is the fraction of
// all pulls the arm has received so far.
type LinUCBBandit struct {
	Bandit

	// Alpha is the exploration parameter. Higher values lead to more
	// exploration, lower values to more exploitation.
	Alpha float64

	arms []*linUCBArmState

	// Feature snapshots taken at selection time, consumed by Update so the
	// model learns against the load the decision actually saw.
	pending []*mat.VecDense
}

// linUCBArmState holds the matrix A (d x d design matrix) and the vector b
// (d x 1 reward mapping) for one arm.
type linUCBArmState struct {
	A *mat.Dense
	b *mat.VecDense
}

const linUCBDim = 2 // bias + load feature

func NewLinUCB(nArms int, alpha float64, trueProbs []float64, src rand.Source) (*LinUCBBandit, error) {
	if alpha <= 0 {
		return nil, fmt.Errorf("%w: alpha must be positive, got %f", ErrConfiguration, alpha)
	}
	base, err := newBandit(nArms, trueProbs, src)
	if err != nil {
		return nil, err
	}
	arms := make([]*linUCBArmState, nArms)
	for i := range arms {
		// A starts as the identity matrix, b as the zero vector, as per the paper
		A := mat.NewDense(linUCBDim, linUCBDim, nil)
		for d := 0; d < linUCBDim; d++ {
			A.Set(d, d, 1.0)
		}
		arms[i] = &linUCBArmState{A: A, b: mat.NewVecDense(linUCBDim, nil)}
	}
	return &LinUCBBandit{
		Bandit:  base,
		Alpha:   alpha,
		arms:    arms,
		pending: make([]*mat.VecDense, nArms),
	}, nil
}

// Pull scores every arm with x·theta + Alpha*sqrt(xᵀ A⁻¹ x), theta = A⁻¹ b,
// and returns the highest scorer, first index winning ties. The feature
// vector of the chosen arm is kept so Update can replay it.
func (l *LinUCBBandit) Pull() int {
	var total int64
	for _, c := range l.Counts {
		total += c
	}

	best := 0
	bestScore := math.Inf(-1)
	features := make([]*mat.VecDense, l.NArms)

	for i := 0; i < l.NArms; i++ {
		x := l.computeFeatures(i, total)
		features[i] = x

		var AInv mat.Dense
		if err := AInv.Inverse(l.arms[i].A); err != nil {
			// A = I + sum of x xᵀ is positive definite, so this cannot happen
			panic(fmt.Sprintf("mab: singular design matrix for arm %d: %v", i, err))
		}

		var theta mat.VecDense
		theta.MulVec(&AInv, l.arms[i].b)
		expectedReward := mat.Dot(x, &theta)

		var tmp mat.VecDense
		tmp.MulVec(&AInv, x)
		confidence := l.Alpha * math.Sqrt(mat.Dot(x, &tmp))

		if score := expectedReward + confidence; score > bestScore {
			bestScore = score
			best = i
		}
	}

	l.pending[best] = features[best]
	return best
}

// Update applies the shared incremental-mean update, then folds the
// observation into the linear model: A += x xᵀ, b += reward * x. It uses the
// feature snapshot taken at selection time; when Update is called for an arm
// without a pending selection the current features are recomputed instead.
func (l *LinUCBBandit) Update(arm int, reward int) error {
	if err := l.Bandit.Update(arm, reward); err != nil {
		return err
	}

	x := l.pending[arm]
	l.pending[arm] = nil
	if x == nil {
		var total int64
		for _, c := range l.Counts {
			total += c
		}
		x = l.computeFeatures(arm, total)
	}

	state := l.arms[arm]

	var outer mat.Dense
	outer.Outer(1.0, x, x)
	state.A.Add(state.A, &outer)

	var scaled mat.VecDense
	scaled.ScaleVec(float64(reward), x)
	state.b.AddVec(state.b, &scaled)
	return nil
}

// computeFeatures builds the vector [1, sigma(u)] where u is the arm's share
// of all pulls and sigma(u) = 1 / (1 - u + epsilon) penalizes concentrated
// load non-linearly. epsilon keeps the division finite at u = 1.
func (l *LinUCBBandit) computeFeatures(arm int, totalPulls int64) *mat.VecDense {
	u := 0.0
	if totalPulls > 0 {
		u = float64(l.Counts[arm]) / float64(totalPulls)
	}
	sigma := 1.0 / (1.0 - u + 0.01)
	return mat.NewVecDense(linUCBDim, []float64{1.0, sigma})
}

func (l *LinUCBBandit) Type() BanditType {
	return LinUCB
}
