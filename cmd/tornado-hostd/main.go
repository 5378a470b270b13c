// Command tornado-hostd runs the host-side device session that an
// EPICS IOC's record support links against, bridging the IOC to the
// MCU control-plane over a serial RPMSG line.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/binp-dev/tornado/internal/config"
	"github.com/binp-dev/tornado/internal/hostdev"
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
		Use:   "tornado-hostd",
		Short: "Run the host-side tornado device session",
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

	ch, err := openChannel(cfg.Host.Transport, cfg.Host.SerialPort, cfg.Host.SerialBaudRate)
	if err != nil {
		return fmt.Errorf("tornado-hostd: %w", err)
	}
	defer ch.Close() //nolint:errcheck

	session := hostdev.NewSession(ch, hostdev.Config{KeepAlivePeriod: cfg.Host.KeepAlivePeriod}, log)
	session.Start()
	defer session.Stop()

	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", cfg.Stats.ReportPeriod), func() {
		snap := session.Stats()
		log.Info("host statistics",
			zap.Uint64("dac_points_sent", snap.DacPointsSent),
			zap.Uint64("adc_samples_received", snap.AdcSamplesReceived),
			zap.Uint64("adc_samples_skipped", snap.AdcSamplesSkipped),
			zap.Uint64("keep_alives_sent", snap.KeepAlivesSent),
		)
	}); err != nil {
		return fmt.Errorf("tornado-hostd: schedule stats report: %w", err)
	}
	c.Start()
	defer c.Stop()

	log.Info("tornado-hostd running", zap.String("transport", cfg.Host.Transport))

	// Record support from the linking IOC drives the IOC-facing API for
	// the rest of this process's lifetime; this goroutine just waits
	// for a shutdown signal so the deferred Stop()/Close() calls run.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")
	return nil
}

func openChannel(kind, port string, baud int) (transport.Channel, error) {
	switch kind {
	case "serial":
		return serialchan.Open(port, baud)
	default:
		return nil, fmt.Errorf("tornado-hostd: unsupported transport %q (hostd has no built-in peer, use serial)", kind)
	}
}
