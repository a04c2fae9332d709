package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"equipment_monitor/config"
	"equipment_monitor/hardware"
	"equipment_monitor/health"
	"equipment_monitor/logger"
	"equipment_monitor/metrics"
	"equipment_monitor/monitor"
	"equipment_monitor/report"
	"equipment_monitor/sensor"
	"equipment_monitor/stream"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// buildSensors wires the configured sensor source.
func buildSensors(source, replayFile string, seed int64, echoTimeout time.Duration) (sensor.Bank, error) {
	switch source {
	case config.SourceSimulated:
		return sensor.NewSimulator(seed, echoTimeout).Bank(), nil
	case config.SourceReplay:
		if replayFile == "" {
			return sensor.Bank{}, errors.New("a replay file is required for the replay source")
		}
		rp, err := loadReplay(replayFile)
		if err != nil {
			return sensor.Bank{}, err
		}
		if rp.Len() == 0 {
			return sensor.Bank{}, fmt.Errorf("%s holds no measurement records", replayFile)
		}
		logger.Printf("Replaying %d iterations from %s\n", rp.Len(), replayFile)
		return rp.Bank(), nil
	default:
		return sensor.Bank{}, fmt.Errorf("unsupported sensor source: %s", source)
	}
}

func loadReplay(path string) (*stream.Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()
	return stream.LoadReplay(f)
}

func logPinChange(line health.Line, pin int, on bool) {
	level := "LOW"
	if on {
		level = "HIGH"
	}
	if line == health.Buzzer && on {
		logger.Debugf("GPIO %d (%s) -> %s, %d Hz tone\n", pin, line, level, hardware.BuzzerToneHz)
		return
	}
	logger.Debugf("GPIO %d (%s) -> %s\n", pin, line, level)
}

func openStreamFile(path string, truncate bool) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if truncate {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open output file %s: %w", path, err)
	}
	return f, nil
}

// serveMetrics starts the Prometheus and health endpoints and returns their shutdown function.
func serveMetrics(addr, path string, reg *prometheus.Registry, rec *metrics.Recorder) func() {
	srv := &http.Server{
		Addr:              addr,
		Handler:           metrics.NewRouter(reg, path, rec),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("metrics server: %v\n", err)
		}
	}()
	logger.Printf("Serving metrics on %s%s and status on %s/health\n", addr, path, addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func runCommand(cfg *config.Config, args []string) {
	fs := newFlagSet("run")
	source := fs.String("source", cfg.Monitor.Source, "sensor source: simulated or replay")
	replayFile := fs.String("replay", cfg.Monitor.ReplayFile, "recorded stream used by the replay source")
	seed := fs.Int64("seed", cfg.Monitor.Seed, "seed of the simulated sensors")
	interval := fs.Duration("interval", cfg.Monitor.Interval, "sampling period")
	output := fs.StringP("output", "o", cfg.Monitor.OutputFile, "also append the stream to this file")
	metricsAddr := fs.String("metrics-addr", cfg.Metrics.Addr, "address of the Prometheus endpoint (empty disables it)")
	_ = fs.Parse(args)

	bank, err := buildSensors(*source, *replayFile, *seed, cfg.Monitor.EchoTimeout)
	if err != nil {
		logger.Fatalf("Failed to set up sensors: %v\n", err)
	}

	var out io.Writer = os.Stdout
	if *output != "" {
		f, err := openStreamFile(*output, false)
		if err != nil {
			logger.Fatalf("%v\n", err)
		}
		defer f.Close()
		out = io.MultiWriter(os.Stdout, f)
	}

	opts := monitor.Options{
		Sensors: bank,
		Output:  hardware.NewPinBank(nil, logPinChange),
		Stream:  stream.NewWriter(out),
		Period:  *interval,
	}

	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		rec := metrics.NewRecorder(reg)
		opts.Observer = rec
		shutdown := serveMetrics(*metricsAddr, cfg.Metrics.Path, reg, rec)
		defer shutdown()
	}

	m, err := monitor.New(opts)
	if err != nil {
		logger.Fatalf("Failed to create monitor: %v\n", err)
	}

	ctx, stop := signalContext()
	defer stop()

	logger.Printf("Monitoring with %s sensors every %v\n", *source, *interval)
	if err := m.Run(ctx); err != nil {
		logger.Fatalf("Monitor failed: %v\n", err)
	}

	h := m.Health()
	logger.LogResult("run", true, fmt.Sprintf("%d iterations, last tier %s, relay engaged %t",
		m.Sequence(), h.Tier, h.RelayEngaged))
}

func simulateCommand(cfg *config.Config, args []string) {
	fs := newFlagSet("simulate")
	iterations := fs.IntP("iterations", "n", 200, "number of iterations to generate")
	seed := fs.Int64("seed", cfg.Monitor.Seed, "seed of the simulated sensors")
	interval := fs.Duration("interval", cfg.Monitor.Interval, "time between generated iterations")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Println("Error: output file required")
		fmt.Println("Usage: equipment_monitor simulate <file> [--iterations n] [--seed n]")
		return
	}
	if *iterations <= 0 {
		logger.Fatalf("iterations must be positive, got %d\n", *iterations)
	}
	path := fs.Arg(0)

	f, err := openStreamFile(path, true)
	if err != nil {
		logger.Fatalf("%v\n", err)
	}
	defer f.Close()

	m, err := monitor.New(monitor.Options{
		Sensors: sensor.NewSimulator(*seed, cfg.Monitor.EchoTimeout).Bank(),
		Output:  hardware.NewPinBank(nil, nil),
		Stream:  stream.NewWriter(f),
		Period:  *interval,
		Now:     monitor.SyntheticClock(time.Now(), *interval),
	})
	if err != nil {
		logger.Fatalf("Failed to create monitor: %v\n", err)
	}

	step := *iterations / 10
	if step == 0 {
		step = 1
	}
	for i := 1; i <= *iterations; i++ {
		if _, err := m.Step(); err != nil {
			logger.Fatalf("iteration %d: %v\n", i, err)
		}
		if i%step == 0 {
			logger.LogProgress(i, *iterations, path)
		}
	}

	h := m.Health()
	logger.LogResult("simulate", true, fmt.Sprintf("%d iterations written to %s, last tier %s, relay engaged %t",
		*iterations, path, h.Tier, h.RelayEngaged))
}

func reportCommand(args []string) {
	fs := newFlagSet("report")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Println("Error: recording file required")
		fmt.Println("Usage: equipment_monitor report <file>")
		return
	}

	rp, err := loadReplay(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read recording: %v\n", err)
		os.Exit(1)
	}

	if err := report.Build(rp).Write(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write report: %v\n", err)
		os.Exit(1)
	}
}
