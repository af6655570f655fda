package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"go.uber.org/zap"

	"github.com/ironsheep/marker-pose/internal/config"
	"github.com/ironsheep/marker-pose/internal/logger"
	"github.com/ironsheep/marker-pose/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	parser := argparse.NewParser("marker-pose", "Track a coloured four-marker board and estimate its pose")

	trackCmd := parser.NewCommand("track", "Run the tracker over a directory of frames, one JSON line per frame")
	input := trackCmd.String("i", "input", &argparse.Options{Help: "Directory of frame images, played in file name order", Required: true})
	trackConfig := trackCmd.String("c", "config", &argparse.Options{Help: "YAML configuration file", Default: ""})
	outDir := trackCmd.String("o", "output", &argparse.Options{Help: "Directory for overlay images (none written when empty)", Default: ""})
	writeMask := trackCmd.Flag("", "mask", &argparse.Options{Help: "Also write the segmentation mask and masked frame of every frame", Default: false})
	metricsAddr := trackCmd.String("", "metrics-addr", &argparse.Options{Help: "Serve Prometheus metrics on this address (eg :9090)", Default: ""})
	trackDebug := trackCmd.Flag("", "debug", &argparse.Options{Help: "Log every per-frame decision", Default: false})
	trackDev := trackCmd.Flag("", "dev", &argparse.Options{Help: "Human-readable console logs at debug level", Default: false})

	serveCmd := parser.NewCommand("serve", "Run the MCP tool server on stdin/stdout")
	serveConfig := serveCmd.String("c", "config", &argparse.Options{Help: "YAML configuration file", Default: ""})
	serveDebug := serveCmd.Flag("", "debug", &argparse.Options{Help: "Enable debug logging", Default: false})
	serveDev := serveCmd.Flag("", "dev", &argparse.Options{Help: "Human-readable console logs at debug level", Default: false})

	versionCmd := parser.NewCommand("version", "Print version information")

	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	switch {
	case versionCmd.Happened():
		fmt.Printf("marker-pose %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)

	case trackCmd.Happened():
		initLogger(*trackDebug, *trackDev)
		defer logger.Sync()
		opts := trackOptions{
			input:       *input,
			outDir:      *outDir,
			writeMask:   *writeMask,
			metricsAddr: *metricsAddr,
		}
		if err := runTrack(loadConfig(*trackConfig), opts, os.Stdout); err != nil {
			logger.Log().Fatal("tracking failed", zap.Error(err))
		}

	case serveCmd.Happened():
		initLogger(*serveDebug, *serveDev)
		defer logger.Sync()
		server.Version = Version
		logger.Log().Info("starting MCP server",
			zap.String("version", Version),
			zap.String("build_time", BuildTime),
			zap.String("commit", GitCommit))

		srv := server.New(loadConfig(*serveConfig), logger.Log(), nil)
		if err := srv.Run(); err != nil {
			logger.Log().Fatal("server error", zap.Error(err))
		}
	}
}

// initLogger installs the JSON production logger, or the console
// development logger when dev is set.
func initLogger(debug, dev bool) {
	build := func() error { return logger.InitProduction(debug) }
	if dev {
		build = logger.InitDevelopment
	}
	if err := build(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig returns the defaults when path is empty.
func loadConfig(path string) config.Config {
	if path == "" {
		return config.Default()
	}
	cfg, err := config.Load(path)
	if err != nil {
		logger.Log().Fatal("failed to load config", zap.String("path", path), zap.Error(err))
	}
	return cfg
}
