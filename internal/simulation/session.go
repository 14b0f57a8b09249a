package simulation

import (
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/serverledge-faas/mabsim/internal/mab"
	"github.com/serverledge-faas/mabsim/internal/metrics"
)

// Config identifies one simulation session. Two configs with the same Key()
// refer to the same session; any change means the session is rebuilt from
// scratch with fresh state.
type Config struct {
	Policy    mab.BanditType
	NArms     int
	TrueProbs []float64 // nil means sampled at construction
	Seed      uint64    // 0 means a non-deterministic run

	// Policy-specific hyperparameters. Only the ones belonging to the
	// selected policy contribute to the session identity.
	Epsilon      float64 // EpsilonGreedy
	InitialAlpha float64 // Thompson prior, defaults to 1
	InitialBeta  float64 // Thompson prior, defaults to 1
	Alpha        float64 // LinUCB exploration parameter, defaults to 0.1
}

func (c Config) withDefaults() Config {
	if c.InitialAlpha == 0 {
		c.InitialAlpha = 1
	}
	if c.InitialBeta == 0 {
		c.InitialBeta = 1
	}
	if c.Alpha == 0 {
		c.Alpha = 0.1
	}
	return c
}

// Key is the configuration identity string: same key, same session.
func (c Config) Key() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s|n=%d|seed=%d", c.Policy, c.NArms, c.Seed)
	switch c.Policy {
	case mab.EpsilonGreedy:
		fmt.Fprintf(&sb, "|eps=%g", c.Epsilon)
	case mab.Thompson:
		fmt.Fprintf(&sb, "|a=%g|b=%g", c.InitialAlpha, c.InitialBeta)
	case mab.LinUCB:
		fmt.Fprintf(&sb, "|alpha=%g", c.Alpha)
	}
	if c.TrueProbs == nil {
		sb.WriteString("|probs=random")
	} else {
		fmt.Fprintf(&sb, "|probs=%v", c.TrueProbs)
	}
	return sb.String()
}

// buildPolicy constructs the bandit the configuration asks for. A non-zero
// seed gives a deterministic random source, so two sessions with the same
// config replay the same trajectory.
func buildPolicy(cfg Config) (mab.Policy, error) {
	var src rand.Source
	if cfg.Seed != 0 {
		src = rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	}
	switch cfg.Policy {
	case mab.EpsilonGreedy:
		return mab.NewEpsilonGreedy(cfg.NArms, cfg.Epsilon, cfg.TrueProbs, src)
	case mab.UCB1:
		return mab.NewUCB1(cfg.NArms, cfg.TrueProbs, src)
	case mab.Thompson:
		return mab.NewThompson(cfg.NArms, cfg.InitialAlpha, cfg.InitialBeta, cfg.TrueProbs, src)
	case mab.LinUCB:
		return mab.NewLinUCB(cfg.NArms, cfg.Alpha, cfg.TrueProbs, src)
	default:
		return nil, fmt.Errorf("%w: unknown policy %q", mab.ErrConfiguration, cfg.Policy)
	}
}

// PullRecord is one completed pull/reward/update cycle.
type PullRecord struct {
	Step   int64 `json:"step"`
	Arm    int   `json:"arm"`
	Reward int   `json:"reward"`
}

// State is everything a dashboard renders about a session.
type State struct {
	Policy         mab.BanditType `json:"policy"`
	Step           int64          `json:"step"`
	Counts         []int64        `json:"counts"`
	Values         []float64      `json:"values"`
	TrueProbs      []float64      `json:"true_probs"`
	EstimatedMeans []float64      `json:"estimated_means"`
	RMSE           float64        `json:"rmse"`
	RMSELog        []float64      `json:"rmse_log"`
	Rewards        []PullRecord   `json:"rewards_log"`

	// Policy-specific diagnostics
	Alphas       []float64 `json:"alphas,omitempty"`
	Betas        []float64 `json:"betas,omitempty"`
	ExploreCount int64     `json:"explore_count,omitempty"`
	ExploitCount int64     `json:"exploit_count,omitempty"`
	TotalPulls   int64     `json:"total_pulls,omitempty"`
}

// Session owns one policy instance plus everything observed through it: the
// step counter, the reward log and the RMSE trajectory. Bandit instances are
// not safe for concurrent use, so every access goes through the session lock.
type Session struct {
	mu     sync.Mutex
	cfg    Config
	key    string
	policy mab.Policy

	step       int64
	rewardsLog []PullRecord
	rmseLog    []float64
	logger     *pullLogger
}

// newSession builds the policy and, for Thompson, runs the warm-up phase:
// one pull per arm in index order, each logged like a normal step.
func newSession(cfg Config, logPath string) (*Session, error) {
	cfg = cfg.withDefaults()
	policy, err := buildPolicy(cfg)
	if err != nil {
		return nil, err
	}

	var logger *pullLogger
	if logPath != "" {
		logger, err = newPullLogger(logPath)
		if err != nil {
			return nil, err
		}
	}

	s := &Session{cfg: cfg, key: cfg.Key(), policy: policy, logger: logger}

	if t, ok := policy.(*mab.ThompsonBandit); ok {
		for arm := 0; arm < t.NArms; arm++ {
			r, err := t.Reward(arm)
			if err != nil {
				return nil, err
			}
			if err := s.record(arm, r); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// record applies one observed reward and updates every log that hangs off
// the session. Callers must hold the lock (or own the session exclusively,
// as newSession does).
func (s *Session) record(arm int, reward int) error {
	if err := s.policy.Update(arm, reward); err != nil {
		return err
	}
	s.step++
	s.rewardsLog = append(s.rewardsLog, PullRecord{Step: s.step, Arm: arm, Reward: reward})
	rmse := s.policy.RMSE()
	s.rmseLog = append(s.rmseLog, rmse)
	metrics.ObserveStep(string(s.policy.Type()), arm, reward, rmse)

	if s.logger != nil {
		snap := s.policy.Snapshot()
		if err := s.logger.Append(s.step, arm, reward, snap.Counts, snap.Values); err != nil {
			log.Printf("Failed to append to pull log: %v\n", err)
		}
	}
	return nil
}

func (s *Session) stepLocked() (PullRecord, error) {
	arm := s.policy.Pull()
	reward, err := s.policy.Reward(arm)
	if err != nil {
		return PullRecord{}, err
	}
	if err := s.record(arm, reward); err != nil {
		return PullRecord{}, err
	}
	return s.rewardsLog[len(s.rewardsLog)-1], nil
}

// Step runs one pull -> reward -> update cycle.
func (s *Session) Step() (PullRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stepLocked()
}

// Run performs batch sequential cycles. There is no atomicity across the
// batch: a failure leaves state consistent up to the last completed update,
// and the records completed so far are returned alongside the error.
func (s *Session) Run(batch int) ([]PullRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]PullRecord, 0, batch)
	for i := 0; i < batch; i++ {
		rec, err := s.stepLocked()
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Config returns the configuration the session was built from.
func (s *Session) Config() Config {
	return s.cfg
}

// State returns a copy of everything observable about the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.policy.Snapshot()
	st := State{
		Policy:         s.policy.Type(),
		Step:           s.step,
		Counts:         snap.Counts,
		Values:         snap.Values,
		TrueProbs:      snap.TrueProbs,
		EstimatedMeans: append([]float64(nil), s.policy.EstimatedMeans()...),
		RMSE:           s.policy.RMSE(),
		RMSELog:        append([]float64(nil), s.rmseLog...),
		Rewards:        append([]PullRecord(nil), s.rewardsLog...),
	}

	switch p := s.policy.(type) {
	case *mab.ThompsonBandit:
		st.Alphas = append([]float64(nil), p.Alphas...)
		st.Betas = append([]float64(nil), p.Betas...)
	case *mab.EpsilonGreedyBandit:
		st.ExploreCount = p.ExploreCount
		st.ExploitCount = p.ExploitCount
	case *mab.UCB1Bandit:
		st.TotalPulls = p.TotalPulls
	}
	return st
}
