package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/fx"
)

func main() {
	flags := parseFlags(os.Args[1:])

	app := fx.New(appOptions(flags))

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "somaradio: %v\n", err)
		os.Exit(1)
	}

	// Either a signal or the UI quitting ends the run
	exitCode := 0
	select {
	case <-ctx.Done():
	case sig := <-app.Wait():
		exitCode = sig.ExitCode
	}

	if err := app.Stop(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "somaradio: %v\n", err)
		exitCode = 1
	}
	os.Exit(exitCode)
}

// Flags are the command line overrides
type Flags struct {
	StationID     string
	VolumePercent int // -1 keeps the saved volume
	Server        bool
	Host          string
	Port          int
	ConfigPath    string
}

func parseFlags(args []string) Flags {
	var f Flags
	fs := flag.NewFlagSet("somaradio", flag.ExitOnError)
	fs.StringVar(&f.StationID, "station", "", "Station ID to tune in, empty means the last played one")
	fs.IntVar(&f.VolumePercent, "volume", -1, "Initial volume (0-100), -1 means use saved config")
	fs.BoolVar(&f.Server, "server", false, "Run headless with the HTTP control API")
	fs.StringVar(&f.Host, "host", "localhost", "Control API bind address (server mode only)")
	fs.IntVar(&f.Port, "port", 8080, "Control API port (server mode only)")
	fs.StringVar(&f.ConfigPath, "config", "", "Config file path, empty means the user config dir")
	_ = fs.Parse(args)
	return f
}
