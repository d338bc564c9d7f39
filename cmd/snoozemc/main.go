package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	log "github.com/sirupsen/logrus"

	"github.com/snoozemc/snoozemc/internal/config"
	"github.com/snoozemc/snoozemc/internal/proxy"
	"github.com/snoozemc/snoozemc/internal/server"
)

// Exit codes.
const (
	exitOK            = 0
	exitConfigError   = 1
	exitStartupFailed = 2
	exitSignal        = 130
)

// How long active client connections get to drain on shutdown.
const drainTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	app := kingpin.New("snoozemc", "Put an idle Minecraft server to sleep and wake it on demand.")
	app.HelpFlag.Short('h')

	configPath := app.Flag("config", "Path to the config file.").
		Short('c').Default(config.DefaultFile).Envar("SNOOZEMC_CONFIG").String()
	verbose := app.Flag("verbose", "Enable debug logging.").Short('v').Bool()

	startCmd := app.Command("start", "Run the proxy.").Default()

	configCmd := app.Command("config", "Config file utilities.")
	generateCmd := configCmd.Command("generate", "Write the default config file.")
	generateForce := generateCmd.Flag("force", "Overwrite an existing config file.").Bool()
	testCmd := configCmd.Command("test", "Load and validate the config.")

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	switch command {
	case generateCmd.FullCommand():
		if err := config.Generate(*configPath, *generateForce); err != nil {
			log.Error(err)
			return exitConfigError
		}
		return exitOK

	case testCmd.FullCommand():
		if _, err := config.Load(*configPath); err != nil {
			log.Error(err)
			return exitConfigError
		}
		log.Info("Config loaded successfully")
		return exitOK

	case startCmd.FullCommand():
		return start(*configPath)
	}

	return exitOK
}

func start(configPath string) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Error(err)
		return exitConfigError
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := server.New(cfg)
	go srv.Run(ctx)
	go srv.Monitor(ctx)
	go srv.ForwardStdin(ctx)

	if cfg.Server.WakeOnStart || cfg.Server.ProbeOnStart {
		log.Info("Waking server on startup")
		srv.Wake()
	}

	router := proxy.NewRouter(cfg, srv)

	// The accept loop stops before the lifecycle does: shutdown needs a
	// live state machine to walk the stop ladder.
	serveCtx, stopAccepting := context.WithCancel(ctx)
	defer stopAccepting()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- router.Serve(serveCtx)
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			log.WithError(err).Error("Failed to serve")
			srv.Shutdown(context.Background())
			return exitStartupFailed
		}
		return exitOK

	case sig := <-signals:
		log.WithField("signal", sig).Info("Shutting down")

		// Stop accepting, put the server to sleep, then give active
		// clients a moment to drain.
		stopAccepting()
		srv.Shutdown(context.Background())

		deadline := time.Now().Add(drainTimeout)
		for router.Active() > 0 && time.Now().Before(deadline) {
			time.Sleep(100 * time.Millisecond)
		}

		return exitSignal
	}
}
