package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/bohan-zhang/sawyer/internal/logging"
	"github.com/bohan-zhang/sawyer/pkg/intera"
	"github.com/bohan-zhang/sawyer/pkg/miniarm"
	"github.com/bohan-zhang/sawyer/pkg/motion"
	"github.com/bohan-zhang/sawyer/pkg/sawyer"
)

// connectRobot builds the full stack from the config file: the selected
// limb backend, the validity client and the adapter on top.
func connectRobot(ctx context.Context, configPath, logLevel string) (*sawyer.Robot, io.Closer, error) {
	logger := logging.NewLogger(logLevel)

	cfg, err := sawyer.LoadConfigFrom(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	robotCfg, err := cfg.RobotConfig()
	if err != nil {
		return nil, nil, err
	}
	backend, err := cfg.BackendName()
	if err != nil {
		return nil, nil, err
	}

	var (
		limb    sawyer.Limb
		gripper sawyer.Gripper
		conn    io.Closer
	)
	switch backend {
	case sawyer.BackendIntera:
		client, err := intera.Connect(intera.Config{
			Broker:   cfg.Broker,
			ClientID: cfg.ClientID,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		limb, gripper, conn = client, client.Gripper(), client

	case sawyer.BackendMiniarm:
		cal, err := miniarm.LoadCalibration(cfg.CalibrationFile)
		if err != nil {
			return nil, nil, fmt.Errorf("load calibration: %w", err)
		}
		armCal, gripperCal := cal.SplitGripper()
		arm, err := miniarm.NewArm(ctx, miniarm.Config{
			Port:         cfg.Port,
			Calibration:  armCal,
			GripperServo: gripperCal,
		})
		if err != nil {
			return nil, nil, err
		}
		g, err := arm.Gripper()
		if err != nil {
			arm.Close()
			return nil, nil, fmt.Errorf("calibration file %s needs a %q entry: %w",
				cfg.CalibrationFile, miniarm.GripperKey, err)
		}
		limb, gripper, conn = arm, g, arm
	}

	validity := motion.NewClient(cfg.ValidityURL, logger)
	robot, err := sawyer.NewRobot(ctx, limb, gripper, validity, robotCfg)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return robot, conn, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

type ResetCommand struct {
	Config   string `long:"config" default:"sawyer.json" description:"Robot config file"`
	LogLevel string `long:"log-level" default:"info" description:"Log level"`
}

func (c *ResetCommand) Execute(args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	robot, conn, err := connectRobot(ctx, c.Config, c.LogLevel)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := robot.Reset(ctx); err != nil {
		return err
	}
	fmt.Println("Arm at start configuration, gripper open.")
	return nil
}

type CheckCommand struct {
	Config   string `long:"config" default:"sawyer.json" description:"Robot config file"`
	LogLevel string `long:"log-level" default:"info" description:"Log level"`
}

func (c *CheckCommand) Execute(args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	robot, conn, err := connectRobot(ctx, c.Config, c.LogLevel)
	if err != nil {
		return err
	}
	defer conn.Close()

	safe, err := robot.SafetyCheck(ctx)
	if err != nil {
		return err
	}
	if safe {
		fmt.Println("Current state is valid.")
	} else {
		fmt.Println("Current state is NOT valid.")
		os.Exit(1)
	}
	return nil
}
