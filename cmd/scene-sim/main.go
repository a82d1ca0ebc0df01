// scene-sim is a stand-in for the planning-scene validity service. It
// answers /check_state_validity against the factory joint bounds and
// optional keep-out regions, so the rest of the stack can run without a
// planning scene.
package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/bohan-zhang/sawyer/internal/logging"
	"github.com/bohan-zhang/sawyer/pkg/motion"
)

func main() {
	// Local overrides, ignored when absent.
	godotenv.Load()

	logger := logging.NewLogger(os.Getenv("SCENE_SIM_LOG_LEVEL"))

	scene := &Scene{Margin: 0.01}
	if v := os.Getenv("SCENE_SIM_MARGIN"); v != "" {
		m, err := strconv.ParseFloat(v, 64)
		if err != nil {
			logger.Error("bad SCENE_SIM_MARGIN", "value", v, "error", err)
			os.Exit(1)
		}
		scene.Margin = m
	}
	if path := os.Getenv("SCENE_SIM_KEEPOUT"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Error("read keep-out file", "path", path, "error", err)
			os.Exit(1)
		}
		if err := json.Unmarshal(data, &scene.KeepOut); err != nil {
			logger.Error("parse keep-out file", "path", path, "error", err)
			os.Exit(1)
		}
	}

	addr := os.Getenv("SCENE_SIM_ADDR")
	if addr == "" {
		addr = ":8090"
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	e.POST("/check_state_validity", func(c echo.Context) error {
		var req motion.StateValidityRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
		}
		if len(req.JointNames) != len(req.Positions) {
			return echo.NewHTTPError(http.StatusBadRequest, "joint names and positions length mismatch")
		}
		resp := scene.Check(req)
		if !resp.Valid {
			logger.Debug("state rejected", "group", req.Group, "contacts", resp.Contacts)
		}
		return c.JSON(http.StatusOK, resp)
	})

	logger.Info("scene-sim listening", "addr", addr, "margin", scene.Margin, "keep_out", len(scene.KeepOut))
	if err := e.Start(addr); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
