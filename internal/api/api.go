// Package api exposes the simulator over HTTP. It is the dashboard-facing
// driver: it owns no bandit state itself and only talks to the session
// manager, once per user action.
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/serverledge-faas/mabsim/internal/config"
	"github.com/serverledge-faas/mabsim/internal/mab"
	"github.com/serverledge-faas/mabsim/internal/metrics"
	"github.com/serverledge-faas/mabsim/internal/simulation"
)

// Server wires the session manager to the HTTP surface.
type Server struct {
	manager *simulation.Manager
}

func NewServer(manager *simulation.Manager) *Server {
	return &Server{manager: manager}
}

// Register attaches all routes to the echo instance.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/", s.getCatalog)
	e.GET("/bandit/:policy", s.getState)
	e.POST("/bandit/:policy/pull", s.postPull)
	e.POST("/bandit/:policy/reset", s.postReset)

	if metrics.Enabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))
	}
}

// pullRequest carries the session configuration plus the batch size. The
// epsilon field is a pointer so an explicit 0 (pure greedy) can be told
// apart from an absent value.
type pullRequest struct {
	NArms        int       `json:"n_arms"`
	TrueProbs    []float64 `json:"true_probs"`
	Seed         uint64    `json:"seed"`
	Epsilon      *float64  `json:"epsilon"`
	InitialAlpha float64   `json:"initial_alpha"`
	InitialBeta  float64   `json:"initial_beta"`
	Alpha        float64   `json:"alpha"`
	Batch        int       `json:"batch"`
}

const defaultEpsilon = 0.1

func (r *pullRequest) toConfig(policy mab.BanditType) simulation.Config {
	epsilon := defaultEpsilon
	if r.Epsilon != nil {
		epsilon = *r.Epsilon
	}
	seed := r.Seed
	if seed == 0 {
		seed = uint64(config.GetInt(config.SIM_SEED, 0))
	}
	return simulation.Config{
		Policy:       policy,
		NArms:        r.NArms,
		TrueProbs:    r.TrueProbs,
		Seed:         seed,
		Epsilon:      epsilon,
		InitialAlpha: r.InitialAlpha,
		InitialBeta:  r.InitialBeta,
		Alpha:        r.Alpha,
	}
}

func parsePolicy(c echo.Context) (mab.BanditType, bool) {
	requested := mab.BanditType(c.Param("policy"))
	for _, t := range mab.Types() {
		if t == requested {
			return t, true
		}
	}
	return "", false
}

func (s *Server) postPull(c echo.Context) error {
	policy, ok := parsePolicy(c)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": fmt.Sprintf("unknown policy %q", c.Param("policy"))})
	}

	var req pullRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed request body"})
	}

	sess, err := s.manager.Get(req.toConfig(policy))
	if err != nil {
		if errors.Is(err, mab.ErrConfiguration) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		log.Printf("Cannot create %s session: %v\n", policy, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cannot create session"})
	}

	batch := req.Batch
	if batch <= 0 {
		batch = 1
	}
	if maxBatch := config.GetInt(config.API_MAX_BATCH, 1000); batch > maxBatch {
		batch = maxBatch
	}

	records, err := sess.Run(batch)
	if err != nil {
		log.Printf("Batch failed for %s: %v\n", policy, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"records": records,
		"state":   sess.State(),
	})
}

func (s *Server) getState(c echo.Context) error {
	policy, ok := parsePolicy(c)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": fmt.Sprintf("unknown policy %q", c.Param("policy"))})
	}
	sess, exists := s.manager.Lookup(policy)
	if !exists {
		return c.JSON(http.StatusNotFound, echo.Map{"error": fmt.Sprintf("no live session for %s", policy)})
	}
	return c.JSON(http.StatusOK, sess.State())
}

func (s *Server) postReset(c echo.Context) error {
	policy, ok := parsePolicy(c)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": fmt.Sprintf("unknown policy %q", c.Param("policy"))})
	}
	s.manager.Reset(policy)
	return c.JSON(http.StatusOK, echo.Map{"reset": policy})
}

// algorithmInfo describes one policy in the catalog.
type algorithmInfo struct {
	Policy          mab.BanditType    `json:"policy"`
	Description     string            `json:"description"`
	Hyperparameters map[string]string `json:"hyperparameters,omitempty"`
}

func (s *Server) getCatalog(c echo.Context) error {
	catalog := []algorithmInfo{
		{
			Policy:      mab.EpsilonGreedy,
			Description: "With probability epsilon picks a random arm, otherwise the arm with the highest estimated mean reward.",
			Hyperparameters: map[string]string{
				"epsilon": "exploration probability in [0,1], default 0.1",
			},
		},
		{
			Policy:      mab.UCB1,
			Description: "Picks the arm maximizing mean + sqrt(2 ln t / n), trying every arm once first.",
		},
		{
			Policy:      mab.Thompson,
			Description: "Keeps a Beta posterior per arm, samples each and picks the highest draw. Warm-up pulls every arm once at session start.",
			Hyperparameters: map[string]string{
				"initial_alpha": "Beta prior alpha, positive, default 1",
				"initial_beta":  "Beta prior beta, positive, default 1",
			},
		},
		{
			Policy:      mab.LinUCB,
			Description: "Disjoint linear models per arm scored by predicted reward plus a confidence bound.",
			Hyperparameters: map[string]string{
				"alpha": "exploration parameter, positive, default 0.1",
			},
		},
	}
	return c.JSON(http.StatusOK, catalog)
}

// RegisterTerminationHandler shuts the server down cleanly on SIGINT/SIGTERM.
func RegisterTerminationHandler(e *echo.Echo) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Println("Termination signal received, shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.Shutdown(ctx); err != nil {
			e.Logger.Fatal(err)
		}
	}()
}

// StartAPIServer starts the echo server on the configured port and blocks
// until it shuts down.
func StartAPIServer(e *echo.Echo, manager *simulation.Manager) {
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	NewServer(manager).Register(e)

	portNumber := config.GetInt(config.API_PORT, 1323)
	if err := e.Start(fmt.Sprintf(":%d", portNumber)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		e.Logger.Fatal("shutting down the server")
	}
}
