package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"

	"github.com/serverledge-faas/mabsim/internal/config"
	"github.com/serverledge-faas/mabsim/internal/simulation"
)

func newTestServer(t *testing.T) *echo.Echo {
	e := echo.New()
	NewServer(simulation.NewManager(t.TempDir())).Register(e)
	return e
}

func doRequest(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCatalogListsAllPolicies(t *testing.T) {
	e := newTestServer(t)

	rec := doRequest(e, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var catalog []map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &catalog))
	assert.Len(t, catalog, 4)
}

func TestPullRunsBatch(t *testing.T) {
	e := newTestServer(t)

	body := `{"n_arms": 2, "true_probs": [0.9, 0.1], "seed": 7, "batch": 10}`
	rec := doRequest(e, http.MethodPost, "/bandit/UCB1/pull", body)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Records []simulation.PullRecord `json:"records"`
		State   simulation.State        `json:"state"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Records, 10)
	assert.Equal(t, int64(10), resp.State.Step)
	assert.Equal(t, int64(10), resp.State.Counts[0]+resp.State.Counts[1])
}

func TestPullReusesSessionAcrossRequests(t *testing.T) {
	e := newTestServer(t)

	body := `{"n_arms": 2, "true_probs": [0.9, 0.1], "seed": 7, "batch": 5}`
	rec := doRequest(e, http.MethodPost, "/bandit/UCB1/pull", body)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(e, http.MethodPost, "/bandit/UCB1/pull", body)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		State simulation.State `json:"state"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(10), resp.State.Step)
}

func TestPullRecreatesSessionOnConfigChange(t *testing.T) {
	e := newTestServer(t)

	rec := doRequest(e, http.MethodPost, "/bandit/UCB1/pull",
		`{"n_arms": 2, "true_probs": [0.9, 0.1], "seed": 7, "batch": 5}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	// a different arm count is a new configuration identity
	rec = doRequest(e, http.MethodPost, "/bandit/UCB1/pull",
		`{"n_arms": 3, "seed": 7, "batch": 1}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		State simulation.State `json:"state"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.State.Step)
	assert.Len(t, resp.State.Counts, 3)
}

func TestPullThompsonIncludesPosteriors(t *testing.T) {
	e := newTestServer(t)

	body := `{"n_arms": 3, "true_probs": [0.2, 0.5, 0.8], "seed": 7, "initial_alpha": 2, "initial_beta": 2, "batch": 4}`
	rec := doRequest(e, http.MethodPost, "/bandit/Thompson/pull", body)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		State simulation.State `json:"state"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.State.Alphas, 3)
	assert.Len(t, resp.State.Betas, 3)
	// 3 warm-up steps + 4 batch steps
	assert.Equal(t, int64(7), resp.State.Step)
}

func TestPullBadConfigurationReturns400(t *testing.T) {
	e := newTestServer(t)

	// probability list does not match the arm count
	rec := doRequest(e, http.MethodPost, "/bandit/UCB1/pull",
		`{"n_arms": 3, "true_probs": [0.9, 0.1], "batch": 1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(e, http.MethodPost, "/bandit/EpsilonGreedy/pull",
		`{"n_arms": 2, "epsilon": 1.5, "batch": 1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(e, http.MethodPost, "/bandit/UCB1/pull",
		`{"n_arms": 2, "true_probs": [0.5, 1.5], "batch": 1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownPolicyReturns404(t *testing.T) {
	e := newTestServer(t)

	rec := doRequest(e, http.MethodPost, "/bandit/Greedy/pull", `{"n_arms": 2}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(e, http.MethodGet, "/bandit/Greedy", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStateRequiresLiveSession(t *testing.T) {
	e := newTestServer(t)

	rec := doRequest(e, http.MethodGet, "/bandit/UCB1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	doRequest(e, http.MethodPost, "/bandit/UCB1/pull", `{"n_arms": 2, "seed": 7, "batch": 1}`)

	rec = doRequest(e, http.MethodGet, "/bandit/UCB1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestResetDropsSession(t *testing.T) {
	e := newTestServer(t)

	doRequest(e, http.MethodPost, "/bandit/UCB1/pull", `{"n_arms": 2, "seed": 7, "batch": 5}`)

	rec := doRequest(e, http.MethodPost, "/bandit/UCB1/reset", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(e, http.MethodGet, "/bandit/UCB1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfiguredDefaultSeed(t *testing.T) {
	viper.Set(config.SIM_SEED, 1234)
	t.Cleanup(viper.Reset)

	// with a configured default seed, two runs that omit the seed replay
	// the same trajectory (including the sampled true probabilities)
	run := func() simulation.State {
		e := newTestServer(t)
		rec := doRequest(e, http.MethodPost, "/bandit/UCB1/pull", `{"n_arms": 3, "batch": 50}`)
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			State simulation.State `json:"state"`
		}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp.State
	}

	first, second := run(), run()
	assert.Equal(t, first.Counts, second.Counts)
	assert.Equal(t, first.TrueProbs, second.TrueProbs)
	assert.Equal(t, first.Rewards, second.Rewards)
}

func TestEpsilonZeroIsAccepted(t *testing.T) {
	e := newTestServer(t)

	// explicit 0 must not fall back to the default epsilon
	rec := doRequest(e, http.MethodPost, "/bandit/EpsilonGreedy/pull",
		`{"n_arms": 2, "true_probs": [1.0, 0.0], "seed": 7, "epsilon": 0, "batch": 100}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		State simulation.State `json:"state"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(100), resp.State.ExploitCount)
	assert.Equal(t, int64(0), resp.State.ExploreCount)
}
