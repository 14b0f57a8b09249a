package main

import (
	"flag"

	"github.com/labstack/echo/v4"
	_ "go.uber.org/automaxprocs"

	"github.com/serverledge-faas/mabsim/internal/api"
	"github.com/serverledge-faas/mabsim/internal/config"
	"github.com/serverledge-faas/mabsim/internal/metrics"
	"github.com/serverledge-faas/mabsim/internal/simulation"
)

func main() {
	configFile := flag.String("config", "", "configuration file path")
	flag.Parse()

	config.ReadConfiguration(*configFile)
	metrics.Init()

	manager := simulation.NewManager(config.GetString(config.LOG_DIR, "logs"))

	e := echo.New()
	api.RegisterTerminationHandler(e)
	api.StartAPIServer(e, manager)
}
