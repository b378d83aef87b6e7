package ares

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/spance/webos-driver-go/constants"
	"github.com/spance/webos-driver-go/utils"
	"github.com/spance/webos-driver-go/webos/definitions"
	"github.com/spance/webos-driver-go/webos/helper"
)

// Exec runs one toolchain command through the runner and returns its stdout.
func (d *AresDriver) Exec(ctx context.Context, exe definitions.Executable, args ...string) (string, error) {
	result, err := d.runner.Run(ctx, definitions.CommandSpec{Executable: exe, Args: args})
	if err != nil {
		return "", err
	}
	return result.Stdout, nil
}

func (d *AresDriver) GetAresCommands(ctx context.Context) ([]definitions.AresCommand, error) {
	stdout, err := d.Exec(ctx, d.primary(), "-l")
	if err != nil {
		return nil, fmt.Errorf("error getting ares commands: %w", err)
	}
	return helper.ParseAresCommands(stdout)
}

// GetConnectedDevices returns the brief device list.
func (d *AresDriver) GetConnectedDevices(ctx context.Context) ([]definitions.DeviceRecord, error) {
	log.Debug().Msg("[GetConnectedDevices] getting connected devices")
	stdout, err := d.Exec(ctx, d.opts.Executables.DeviceInfo, "--device-list")
	if err != nil {
		return nil, fmt.Errorf("error while getting connected devices: %w", err)
	}
	devices, err := helper.ParseDeviceList(stdout)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("devices", utils.JsonString(devices)).Msg("[GetConnectedDevices] parsed devices")
	return devices, nil
}

// GetConnectedDevicesInfo returns the full device registry.
func (d *AresDriver) GetConnectedDevicesInfo(ctx context.Context) ([]definitions.DeviceInfo, error) {
	stdout, err := d.Exec(ctx, d.opts.Executables.Setup, "--listfull")
	if err != nil {
		return nil, fmt.Errorf("error while getting info of the devices: %w", err)
	}
	return helper.ParseDeviceRegistry(stdout)
}

// IsDeviceCreated reports whether name is a registered device.
func (d *AresDriver) IsDeviceCreated(ctx context.Context, name string) (bool, error) {
	registry, err := d.GetConnectedDevicesInfo(ctx)
	if err != nil {
		return false, err
	}
	return helper.HasDevice(registry, name), nil
}

// IsDeviceConnected is IsDeviceCreated with an empty name meaning the
// configured device.
func (d *AresDriver) IsDeviceConnected(ctx context.Context, name string) (bool, error) {
	if name == "" {
		name = d.DeviceID()
	}
	return d.IsDeviceCreated(ctx, name)
}

// GetConnectDevice interrogates one device for its identity.
func (d *AresDriver) GetConnectDevice(ctx context.Context, device string) (*definitions.DeviceIdentity, error) {
	stdout, err := d.Exec(ctx, d.opts.Executables.DeviceInfo, "--device", device)
	if err != nil {
		return nil, fmt.Errorf("error while getting device info: %w", err)
	}
	identity, err := helper.ParseDeviceIdentity(stdout)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("device", device).Str("identity", utils.JsonString(identity)).Msg("[GetConnectDevice] device identity")
	return &identity, nil
}

func (d *AresDriver) GetListStorage(ctx context.Context, device string) ([]definitions.StorageEntry, error) {
	stdout, err := d.Exec(ctx, d.opts.Executables.Install, "-S", "--device", device)
	if err != nil {
		return nil, fmt.Errorf("error while getting storage: %w", err)
	}
	return helper.ParseStorageList(stdout)
}

// GetAresVersion returns the toolchain version. The first successful result
// is cached until ResetCaches.
func (d *AresDriver) GetAresVersion(ctx context.Context) (*definitions.AresVersion, error) {
	d.versionMu.Lock()
	defer d.versionMu.Unlock()
	if d.version != nil {
		v := *d.version
		return &v, nil
	}

	stdout, err := d.Exec(ctx, d.primary(), "--version")
	if err != nil {
		return nil, fmt.Errorf("error getting ares version: %w", err)
	}
	version, err := helper.ParseAresVersion(stdout)
	if err != nil {
		return nil, err
	}
	log.Info().Str("version", version.VersionString).Msg("[GetAresVersion] ares version")

	d.version = &version
	v := version
	return &v, nil
}

// ResetCaches drops the cached version and every resolved binary path. The
// primary path seeded at construction is kept.
func (d *AresDriver) ResetCaches() {
	d.versionMu.Lock()
	d.version = nil
	d.versionMu.Unlock()
	d.locator.Reset()
}

// WaitForAnyDevice polls the brief device list until it is non-empty. It gives
// up once more than MaxDeviceAttempts attempts failed or timeout elapsed,
// whichever comes first. Each call is also bounded by the deadline.
func (d *AresDriver) WaitForAnyDevice(ctx context.Context, timeout time.Duration) ([]definitions.DeviceRecord, error) {
	if timeout <= 0 {
		timeout = d.opts.ExecTimeout
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		attempts int
		lastErr  error
	)
	for {
		devices, err := d.GetConnectedDevices(ctx)
		if err == nil && len(devices) > 0 {
			return devices, nil
		}
		lastErr = err
		attempts++

		if attempts > constants.MaxDeviceAttempts || time.Since(start) >= timeout || ctx.Err() != nil {
			break
		}
		log.Debug().Err(err).Int("attempt", attempts).Msg("[WaitForAnyDevice] no device yet, retrying")
		if sleepCtx(ctx, d.opts.PollDelay) != nil {
			break
		}
	}

	noDevice := &definitions.NoDeviceFoundError{Attempts: attempts, Elapsed: time.Since(start), Err: lastErr}
	log.Error().Err(noDevice).Msg("[WaitForAnyDevice] giving up")
	return nil, noDevice
}

func (d *AresDriver) RemoveDevice(ctx context.Context, name string) (string, error) {
	stdout, err := d.Exec(ctx, d.opts.Executables.Setup, "--remove", name)
	if err != nil {
		return "", fmt.Errorf("error while removing device %s: %w", name, err)
	}
	return stdout, nil
}

// GetKey fetches the SSH private key of a device that is in developer mode.
func (d *AresDriver) GetKey(ctx context.Context, name string) (string, error) {
	stdout, err := d.Exec(ctx, d.opts.Executables.Novacom, "--device", name, "--getkey")
	if err != nil {
		return "", fmt.Errorf("error while getting key of device %s: %w", name, err)
	}
	return stdout, nil
}

// Shell runs a novacom command against the configured device, which must be
// present in the registry.
func (d *AresDriver) Shell(ctx context.Context, args ...string) (string, error) {
	connected, err := d.IsDeviceConnected(ctx, "")
	if err != nil {
		return "", err
	}
	if !connected {
		return "", fmt.Errorf("%w, cannot run ares shell command '%s'", definitions.ErrDeviceNotConnected, strings.Join(args, " "))
	}
	return d.Exec(ctx, d.opts.Executables.Novacom, args...)
}
