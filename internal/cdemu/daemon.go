package cdemu

/*------------------------------------------------------------------
 *
 * Purpose: The Daemon controller (§4.1, §6): owns every Device, wires
 *		their status/option-changed callbacks up to RPC signal
 *		emission, runs the mapping-probe timer and optional DNS-SD
 *		announcement. Grounded on cdemud-daemon.c's
 *		cdemud_daemon_initialize_and_start, reworked onto goroutines
 *		and channels in place of glib's g_timeout_add main loop.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"sync"
	"time"

	"github.com/brutella/dnssd"
	"github.com/charmbracelet/log"
)

const (
	mappingProbeInterval = time.Second
	mappingProbeAttempts = 5
)

// Daemon owns a fixed set of Devices and the background workers that
// service them.
type Daemon struct {
	cfg     Config
	devices []*Device
	logger  *log.Logger

	onDeviceStatusChanged func(number int)
	onDeviceOptionChanged func(number int, option string)

	mappingAttempt int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDaemon constructs every device up front, matching the reference
// daemon's one-shot device list creation at startup (§4.1); devices
// are never added or removed afterwards.
func NewDaemon(cfg Config, logger *log.Logger, sinkFor func(number int) AudioSink) *Daemon {
	d := &Daemon{cfg: cfg, logger: logger}

	for i := 0; i < cfg.NumDevices; i++ {
		var sink AudioSink
		if sinkFor != nil {
			sink = sinkFor(i)
		}

		dev := NewDevice(i, ForDevice(logger, i), sink)

		dev.onStatusChanged = func(n int) {
			if d.onDeviceStatusChanged != nil {
				d.onDeviceStatusChanged(n)
			}
		}
		dev.onOptionChanged = func(n int, name string) {
			if d.onDeviceOptionChanged != nil {
				d.onDeviceOptionChanged(n, name)
			}
		}

		d.devices = append(d.devices, dev)
	}

	return d
}

// Devices returns the daemon's fixed device list.
func (d *Daemon) Devices() []*Device { return d.devices }

// Device returns device number n, or nil if out of range.
func (d *Daemon) Device(n int) *Device {
	if n < 0 || n >= len(d.devices) {
		return nil
	}

	return d.devices[n]
}

// Start launches the mapping-probe loop and, when configured, the
// DNS-SD announcement; it does not open control devices itself since
// that depends on a real kernel driver being present, which tests and
// many deployments won't have (§4.1, §9 Open Question on DNS-SD).
func (d *Daemon) Start(ctx context.Context, rpcPort int) {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go d.runMappingProbe(ctx)

	if !d.cfg.DNSSDDisabled {
		d.announce(ctx, rpcPort)
	}
}

// Stop cancels every background worker and waits for them to exit.
func (d *Daemon) Stop() {
	if d.cancel != nil {
		d.cancel()
	}

	d.wg.Wait()
}

// runMappingProbe is device_mapping_callback ported to a ticker: every
// second, ask each still-unmapped device to resolve its sr/sg paths,
// giving up after mappingProbeAttempts rounds (§4.1).
func (d *Daemon) runMappingProbe(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(mappingProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if d.probeOnce() {
				return
			}
		}
	}
}

// probeOnce runs one round across every device, returning true once
// every device is mapped or the attempt budget is exhausted.
func (d *Daemon) probeOnce() bool {
	allMapped := true

	for _, dev := range d.devices {
		sr, sg := dev.Mapping()
		if !dev.ProbeMapping(sr, sg) {
			allMapped = false
		}
	}

	d.mappingAttempt++

	return allMapped || d.mappingAttempt >= mappingProbeAttempts
}

// announce publishes the management RPC endpoint over mDNS/DNS-SD,
// exactly as dns_sd.go announces the KISS TCP service, just against
// this daemon's own service type and port.
func (d *Daemon) announce(ctx context.Context, port int) {
	name := d.cfg.DNSSDName
	if name == "" {
		name = "cdemud"
	}

	cfg := dnssd.Config{ //nolint:exhaustruct
		Name: name,
		Type: "_cdemu._tcp",
		Port: port,
	}

	service, err := dnssd.NewService(cfg)
	if err != nil {
		d.logf("dns-sd: failed to create service: %v", err)

		return
	}

	responder, err := dnssd.NewResponder()
	if err != nil {
		d.logf("dns-sd: failed to create responder: %v", err)

		return
	}

	if _, err := responder.Add(service); err != nil {
		d.logf("dns-sd: failed to add service: %v", err)

		return
	}

	d.logf("dns-sd: announcing %s on port %d as '%s'", cfg.Type, port, name)

	d.wg.Add(1)

	go func() {
		defer d.wg.Done()

		if err := responder.Respond(ctx); err != nil && ctx.Err() == nil {
			d.logf("dns-sd: responder error: %v", err)
		}
	}()
}

func (d *Daemon) logf(format string, args ...any) {
	if d.logger == nil {
		return
	}

	d.logger.Errorf(format, args...)
}
