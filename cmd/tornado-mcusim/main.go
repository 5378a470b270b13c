// Command tornado-mcusim runs the MCU-side control-plane session
// against either a simulated SkifIO device or the real Linux spidev/
// sysfs-GPIO one, talking the RPMSG message protocol over a serial line
// in both cases.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/binp-dev/tornado/internal/config"
	"github.com/binp-dev/tornado/internal/mcu"
	"github.com/binp-dev/tornado/internal/skifio"
	"github.com/binp-dev/tornado/internal/transport"
	"github.com/binp-dev/tornado/internal/transport/serialchan"
	"github.com/mattn/go-colorable"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger() *zap.Logger {
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(enc, zapcore.AddSync(colorable.NewColorableStderr()), zapcore.DebugLevel)
	return zap.New(core)
}

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "tornado-mcusim",
		Short: "Run the MCU-side tornado control-plane session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to a tornado.yaml configuration file")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string) error {
	log := newLogger()
	defer log.Sync() //nolint:errcheck

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	dev, err := openDevice(cfg.Mcu)
	if err != nil {
		return fmt.Errorf("tornado-mcusim: %w", err)
	}
	defer dev.Close() //nolint:errcheck

	ch, err := openChannel(cfg.Mcu.Transport, cfg.Mcu.SerialPort, cfg.Mcu.SerialBaudRate)
	if err != nil {
		return fmt.Errorf("tornado-mcusim: %w", err)
	}
	defer ch.Close() //nolint:errcheck

	sessCfg := mcu.Config{
		DacBufferSize:      cfg.Mcu.DacBufferSize,
		AdcBufferSize:      cfg.Mcu.AdcBufferSize,
		SampleReadyTimeout: cfg.Mcu.SampleReadyTimeout,
		KeepAliveMaxDelay:  cfg.Mcu.KeepAliveMaxDelay,
		SendTaskTimeout:    10 * time.Second,
	}
	session := mcu.NewSession(dev, ch, sessCfg, log, nil)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		cancel()
	}()

	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", cfg.Stats.ReportPeriod), func() {
		session.Stats().Print(log)
	}); err != nil {
		return fmt.Errorf("tornado-mcusim: schedule stats report: %w", err)
	}
	c.Start()
	defer c.Stop()

	log.Info("tornado-mcusim starting", zap.String("transport", cfg.Mcu.Transport))
	session.Run(ctx)
	return nil
}

func openDevice(cfg config.Mcu) (skifio.Device, error) {
	if cfg.Transport == "sim" {
		return skifio.NewSimDevice(time.Millisecond), nil
	}
	return openHardwareDevice(cfg)
}

func openChannel(kind, port string, baud int) (transport.Channel, error) {
	switch kind {
	case "serial", "sim":
		return serialchan.Open(port, baud)
	default:
		return nil, fmt.Errorf("tornado-mcusim: unsupported transport %q (mcusim has no built-in peer, use serial or sim)", kind)
	}
}
