// Command shellq-client runs the client-side task pipeline: it connects
// to a remote task queue, executes shell commands as they arrive, and
// returns completion bundles until the server disconnects.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	client "github.com/shellq/client"
	"github.com/shellq/client/metrics"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "shellq-client",
		Short: "Run the client-side shell task pipeline against a remote queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v)
		},
	}

	flags := cmd.Flags()
	flags.Uint("num_tasks", 1, "number of executor slots run in parallel")
	flags.Uint("bundlesize", 1, "outbound batch threshold")
	flags.Duration("bundlewait", 0, "outbound flush interval")
	flags.String("host", "127.0.0.1", "remote queue host")
	flags.Int("port", 8080, "remote queue port")
	flags.String("auth", "", "128-bit shared secret, hex-encoded")
	flags.String("template", client.DefaultTemplate, "command-line template substituted with each task's argument string")
	flags.Duration("killgrace", 0, "SIGTERM escalation grace period for still-running children (0 disables)")
	flags.String("log_level", "info", "log level: trace, debug, info, warn, error")
	flags.String("metrics", "noop", "metrics provider: noop or basic")

	_ = v.BindPFlags(flags)
	v.SetEnvPrefix("shellq_client")
	v.AutomaticEnv()

	return cmd
}

func run(ctx context.Context, v *viper.Viper) error {
	log := logrus.New()
	if level, err := logrus.ParseLevel(v.GetString("log_level")); err == nil {
		log.SetLevel(level)
	}

	var basicMetrics *metrics.BasicProvider
	var provider metrics.Provider = metrics.NewNoopProvider()
	if v.GetString("metrics") == "basic" {
		basicMetrics = metrics.NewBasicProvider()
		provider = basicMetrics
	}

	cfg := &client.Config{
		NumTasks:        v.GetUint("num_tasks"),
		BundleSize:      v.GetUint("bundlesize"),
		BundleWait:      v.GetDuration("bundlewait"),
		Host:            v.GetString("host"),
		Port:            v.GetInt("port"),
		Auth:            v.GetString("auth"),
		Template:        v.GetString("template"),
		KillGrace:       v.GetDuration("killgrace"),
		MetricsProvider: provider,
		Logger:          log,
	}

	coord, err := client.New(cfg)
	if err != nil {
		log.WithError(err).Error("failed to connect to remote queue")
		return err
	}

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	start := time.Now()
	err = coord.Run(runCtx)
	if err != nil {
		log.WithError(err).WithField("elapsed", time.Since(start)).Error("shellq-client exiting with error")
		return err
	}

	exit := log.WithField("elapsed", time.Since(start))
	if basicMetrics != nil {
		report := basicMetrics.Report()
		exit = exit.WithField("counters", report.Counters).WithField("updowns", report.UpDowns).WithField("histograms", report.Histograms)
	}
	exit.Info("shellq-client exiting")
	return nil
}
