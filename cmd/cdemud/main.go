package main

/*------------------------------------------------------------------
 *
 * Purpose: Entry point for cdemud: parses the CLI flag table of
 *		main.c, builds the device set, opens each device's
 *		control-device transport, claims the management RPC bus
 *		name, and runs until a termination signal arrives.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/cdemu-project/cdemud/internal/cdemu"
	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

func main() {
	var (
		kill         = pflag.BoolP("kill", "k", false, "Kill a running daemon instance.")
		daemonize    = pflag.BoolP("daemonize", "d", false, "Detach and run in the background.")
		numDevices   = pflag.IntP("num-devices", "n", 0, "Number of devices to create. 0 uses the config/default.")
		ctlDevice    = pflag.StringP("ctl-device", "c", "", "Control device path.")
		audioBackend = pflag.StringP("audio", "a", "", "Audio playback backend.")
		audioDevice  = pflag.StringP("audio-device", "o", "", "Audio playback device.")
		bus          = pflag.StringP("bus", "b", "", "Bus type to use: system or session.")
		configFile   = pflag.StringP("config", "f", "", "YAML configuration file.")
		announce     = pflag.BoolP("announce", "A", true, "Announce the management RPC endpoint via mDNS/DNS-SD.")
		debug        = pflag.BoolP("debug", "D", false, "Enable debug logging.")
		help         = pflag.BoolP("help", "h", false, "Display this help text.")
	)

	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "cdemud - CDEmu Daemon")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()

		return
	}

	if *kill {
		if err := killRunningDaemon(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to kill daemon: %v\n", err)
			os.Exit(1)
		}

		return
	}

	cfg := cdemu.DefaultConfig()

	if *configFile != "" {
		loaded, err := cdemu.LoadConfig(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config %q: %v\n", *configFile, err)
			os.Exit(1)
		}

		cfg = loaded
	}

	if *numDevices > 0 {
		cfg.NumDevices = *numDevices
	}

	if *ctlDevice != "" {
		cfg.CtlDevice = *ctlDevice
	}

	if *audioBackend != "" {
		cfg.AudioBackend = *audioBackend
	}

	if *audioDevice != "" {
		cfg.AudioDevice = *audioDevice
	}

	if *bus != "" {
		cfg.Bus = *bus
	}

	cfg.DNSSDDisabled = !*announce

	logger := cdemu.NewLogger(*debug)

	if *daemonize {
		logger.Warn("daemonize requested but process-lifecycle wrapping is out of scope; running in the foreground instead")
	}

	daemon := cdemu.NewDaemon(cfg, logger, audioSinkFor(cfg, logger))

	rpcServer, err := cdemu.NewRPCServer(cfg.Bus, daemon, nil, logger)
	if err != nil {
		logger.Errorf("failed to claim management RPC bus name: %v", err)
		os.Exit(1)
	}
	defer rpcServer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigCh
		logger.Info("received termination signal, shutting down")
		cancel()
	}()

	daemon.Start(ctx, 0)

	var wg sync.WaitGroup
	for _, dev := range daemon.Devices() {
		wg.Add(1)

		go func(dev *cdemu.Device) {
			defer wg.Done()
			runDeviceIOLoop(ctx, cfg, dev, logger)
		}(dev)
	}

	<-ctx.Done()
	daemon.Stop()
	wg.Wait()
}

// runDeviceIOLoop opens dev's control device and services it until ctx
// is cancelled or the transport errors out; a missing/inaccessible
// kernel driver is logged and the device is simply left unreachable,
// matching how a real system would still allow the daemon to serve
// devices whose control file exists.
func runDeviceIOLoop(ctx context.Context, cfg cdemu.Config, dev *cdemu.Device, logger *log.Logger) {
	path := cfg.CtlDevice
	if cfg.NumDevices > 1 {
		path = fmt.Sprintf("%s%d", cfg.CtlDevice, dev.Number)
	}

	cd, err := cdemu.OpenControlDevice(path)
	if err != nil {
		logger.Errorf("device %d: failed to open control device %q: %v", dev.Number, path, err)

		return
	}
	defer cd.Close()

	done := make(chan struct{})

	go func() {
		defer close(done)

		if err := cdemu.RunIOLoop(cd, dev, logger); err != nil {
			logger.Errorf("device %d: I/O loop exited: %v", dev.Number, err)
		}
	}()

	select {
	case <-ctx.Done():
	case <-done:
	}
}

// audioSinkFor always hands out cdemu.NullSink: a real playback backend
// is an external collaborator out of scope (§1 non-goals), so "audio"/
// "audio-device" are accepted for CLI/config compatibility but only the
// null backend is ever constructed.
func audioSinkFor(cfg cdemu.Config, logger *log.Logger) func(number int) cdemu.AudioSink {
	if cfg.AudioBackend != "" && cfg.AudioBackend != "null" {
		logger.Warnf("audio backend %q requested but not built in; using the null backend", cfg.AudioBackend)
	}

	return func(number int) cdemu.AudioSink {
		return cdemu.NullSink{}
	}
}

// killRunningDaemon backs the -k flag. The reference implementation
// stops a running instance through a PID file written at
// daemonize time (out of scope, §9); here -k does not look for or
// signal a running instance: it always returns an error saying that
// process-lifecycle management is out of scope.
func killRunningDaemon() error {
	return fmt.Errorf("process-lifecycle management (PID file, -k) is out of scope; stop the daemon's process directly")
}
