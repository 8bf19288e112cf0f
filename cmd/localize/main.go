// Package main is the localize command: it localizes a robot, real or simulated, against the
// corner of two walls.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/localizer/config"
	"go.viam.com/localizer/localization"
	"go.viam.com/localizer/logging"
	"go.viam.com/localizer/robot"
	"go.viam.com/localizer/sensor"
	"go.viam.com/localizer/sensor/ultrasonic"
	"go.viam.com/localizer/tone"
	"go.viam.com/localizer/utils"
)

const (
	// Flags.
	flagConfig  = "config"
	flagDebug   = "debug"
	flagSim     = "sim"
	flagVariant = "variant"
	flagBell    = "bell"
	flagSamples = "samples"
	flagTrace   = "trace"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

// session is what every command shares: the config and the logger built from it.
type session struct {
	cfg      *config.Config
	logger   logging.Logger
	closeLog io.Closer
}

func newApp() *cli.App {
	s := &session{}
	simFlag := &cli.BoolFlag{
		Name:  flagSim,
		Usage: "drive the simulated arena instead of the robot",
	}
	return &cli.App{
		Name:  "localize",
		Usage: "find true north with an ultrasonic sensor from the corner of two walls",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: s.setup,
		After:  s.teardown,
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run one localization and turn the robot to true north",
				Flags: []cli.Flag{
					simFlag,
					&cli.StringFlag{
						Name:  flagVariant,
						Value: localization.Falling.String(),
						Usage: "edge to detect: falling or rising",
					},
					&cli.BoolFlag{
						Name:  flagTrace,
						Usage: "log every phase of this run at debug level",
					},
					&cli.BoolFlag{
						Name:  flagBell,
						Usage: "ring the terminal bell at each detected edge",
					},
				},
				Action: s.run,
			},
			{
				Name:  "range",
				Usage: "print median filtered distances",
				Flags: []cli.Flag{
					simFlag,
					&cli.IntFlag{
						Name:  flagSamples,
						Value: 10,
						Usage: "number of filtered distances to print",
					},
				},
				Action: s.rangeCmd,
			},
			{
				Name:   "square",
				Usage:  "drive the configured square path",
				Flags:  []cli.Flag{simFlag},
				Action: s.square,
			},
		},
	}
}

func (s *session) setup(c *cli.Context) error {
	s.logger = logging.NewLogger("localize")
	if path := c.String(flagConfig); path != "" {
		cfg, err := config.Read(c.Context, path, s.logger)
		if err != nil {
			return err
		}
		s.cfg = cfg
	} else {
		s.cfg = config.Default()
	}

	level, err := logging.LevelFromString(s.cfg.Log.Level)
	if err != nil {
		return err
	}
	if c.Bool(flagDebug) {
		level = logging.DEBUG
	}
	s.logger.SetLevel(level)
	if s.cfg.Log.File != nil {
		appender, closer := logging.NewFileAppender(*s.cfg.Log.File)
		s.logger.AddAppender(appender)
		s.closeLog = closer
	}
	logging.ReplaceGlobal(s.logger)
	return nil
}

func (s *session) teardown(c *cli.Context) error {
	var err error
	if s.logger != nil {
		// Syncing stdout fails on terminals; only the file matters here.
		_ = s.logger.Sync()
	}
	if s.closeLog != nil {
		err = s.closeLog.Close()
	}
	return err
}

func (s *session) robot(c *cli.Context, emitter tone.Emitter) (*robot.Robot, error) {
	if c.Bool(flagSim) {
		return robot.NewSimulated(c.Context, s.cfg, emitter, s.logger)
	}
	return robot.NewHardware(c.Context, s.cfg, emitter, s.logger)
}

func (s *session) run(c *cli.Context) (err error) {
	variant, err := localization.VariantFromString(c.String(flagVariant))
	if err != nil {
		return err
	}
	var emitter tone.Emitter = tone.Logged{Logger: s.logger}
	if c.Bool(flagBell) {
		emitter = tone.Multi{emitter, tone.NewBell(c.App.ErrWriter, s.logger)}
	}
	r, err := s.robot(c, emitter)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, r.Close(context.WithoutCancel(c.Context)))
	}()

	ctx := c.Context
	if c.Bool(flagTrace) {
		ctx = logging.EnableDebugMode(ctx)
	}
	res, err := r.Localizer.Localize(ctx, variant)
	if err != nil {
		return errors.Wrap(err, "localization did not complete, the heading is not calibrated")
	}
	w := c.App.Writer
	fmt.Fprintln(w, res)
	if r.World != nil {
		fmt.Fprintf(w, "true heading: %.2f (%.2f from north)\n",
			r.World.Heading(), utils.AngleDiffDeg(r.World.Heading(), 0))
	}
	return nil
}

func (s *session) rangeCmd(c *cli.Context) (err error) {
	samples := c.Int(flagSamples)
	if samples <= 0 {
		return errors.Errorf("--%s must be positive", flagSamples)
	}

	var sampler *sensor.MedianFilter
	if c.Bool(flagSim) {
		r, simErr := robot.NewSimulated(c.Context, s.cfg, nil, s.logger)
		if simErr != nil {
			return simErr
		}
		defer func() {
			err = multierr.Combine(err, r.Close(context.WithoutCancel(c.Context)))
		}()
		sampler = r.Sampler
	} else {
		us, usErr := ultrasonic.NewSensor(c.Context, "ultrasonic", &s.cfg.Ultrasonic, s.logger.Sublogger("ultrasonic"))
		if usErr != nil {
			return usErr
		}
		if sampler, err = sensor.NewMedianFilter(us, s.cfg.Localization.WindowSize); err != nil {
			return err
		}
	}

	for i := 0; i < samples; i++ {
		distance, err := sampler.Sample(c.Context)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%.1f cm\n", distance)
	}
	return nil
}

func (s *session) square(c *cli.Context) (err error) {
	r, err := s.robot(c, nil)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, r.Close(context.WithoutCancel(c.Context)))
	}()
	if err := r.Drive.DriveSquare(c.Context, s.cfg.Square); err != nil {
		return err
	}
	pose, err := r.Odometer.Current(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "odometer pose: %s\n", pose)
	if r.World != nil {
		pos := r.World.Position()
		fmt.Fprintf(c.App.Writer, "true pose:     (x=%.2f, y=%.2f, theta=%.2f)\n", pos.X, pos.Y, r.World.Heading())
	}
	return nil
}
