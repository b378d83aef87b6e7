package ares

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/spance/webos-driver-go/constants"
)

// deviceArgs prefixes args with the configured device, if any.
func (d *AresDriver) deviceArgs(args ...string) []string {
	var prefix []string
	if id := d.DeviceID(); id != "" {
		prefix = []string{"--device", id}
	}
	return append(prefix, args...)
}

func (d *AresDriver) IsAppInstalled(ctx context.Context, pkg string) (bool, error) {
	stdout, err := d.Exec(ctx, d.opts.Executables.Install, d.deviceArgs("--list")...)
	if err != nil {
		return false, fmt.Errorf("error finding if app is installed: %w", err)
	}
	return strings.Contains(stdout, pkg), nil
}

func (d *AresDriver) IsWebAppInstalled(ctx context.Context, pkg string) (bool, error) {
	if pkg == "" {
		log.Debug().Msg("[IsWebAppInstalled] no package name included, skipping")
		return false, nil
	}
	stdout, err := d.Exec(ctx, d.opts.Executables.Install, d.deviceArgs("--list", "--type", "web")...)
	if err != nil {
		return false, fmt.Errorf("error finding if web app is installed: %w", err)
	}
	return strings.Contains(stdout, pkg), nil
}

func (d *AresDriver) IsStartedApp(ctx context.Context, pkg string) (bool, error) {
	log.Debug().Str("app", pkg).Msg("[IsStartedApp] getting app startup status")
	stdout, err := d.Exec(ctx, d.opts.Executables.Launch, d.deviceArgs("--running")...)
	if err != nil {
		return false, fmt.Errorf("error getting app startup status: %w", err)
	}
	return strings.Contains(stdout, pkg), nil
}

// StartApp launches pkg, closing it first when it is already running.
func (d *AresDriver) StartApp(ctx context.Context, pkg string) (bool, error) {
	started, err := d.IsStartedApp(ctx, pkg)
	if err != nil {
		return false, err
	}
	if started {
		if _, err := d.CloseApp(ctx, pkg); err != nil {
			return false, err
		}
		log.Debug().Str("app", pkg).Msg("[StartApp] app was running, closed it before launching again")
	}

	stdout, err := d.Exec(ctx, d.opts.Executables.Launch, d.deviceArgs(pkg)...)
	if err != nil {
		return false, fmt.Errorf("error occurred while starting app: %w", err)
	}
	log.Debug().Str("app", pkg).Msg("[StartApp] app launched")
	return strings.Contains(stdout, constants.SuccessMarker), nil
}

func (d *AresDriver) CloseApp(ctx context.Context, pkg string) (bool, error) {
	stdout, err := d.Exec(ctx, d.opts.Executables.Launch, d.deviceArgs("--close", pkg)...)
	if err != nil {
		return false, fmt.Errorf("error occurred while closing app: %w", err)
	}
	return strings.Contains(stdout, "Closed application "+pkg), nil
}

func (d *AresDriver) Uninstall(ctx context.Context, pkg string) (bool, error) {
	log.Debug().Str("app", pkg).Msg("[Uninstall] uninstalling")
	stdout, err := d.Exec(ctx, d.opts.Executables.Install, d.deviceArgs("--remove", pkg)...)
	if err != nil {
		return false, fmt.Errorf("error occurred while uninstalling app: %w", err)
	}
	return strings.Contains(stdout, "Removed package "+pkg), nil
}

// Install installs a local .ipk file on the configured device.
func (d *AresDriver) Install(ctx context.Context, ipk string) (bool, error) {
	stdout, err := d.Exec(ctx, d.opts.Executables.Install, d.deviceArgs(ipk)...)
	if err != nil {
		return false, fmt.Errorf("error occurred while installing %s: %w", ipk, err)
	}
	return strings.Contains(stdout, constants.SuccessMarker), nil
}

func (d *AresDriver) InstallFromDevicePath(ctx context.Context) (bool, error) {
	stdout, err := d.Exec(ctx, d.opts.Executables.Install, d.deviceArgs()...)
	if err != nil {
		return false, fmt.Errorf("error occurred while installing from device path: %w", err)
	}
	return strings.Contains(stdout, constants.SuccessMarker), nil
}

// Package builds an .ipk from appDir into outDir, or the working directory
// when outDir is empty.
func (d *AresDriver) Package(ctx context.Context, appDir, outDir string) (bool, error) {
	var args []string
	if outDir != "" {
		args = append(args, "-o", outDir)
	}
	stdout, err := d.Exec(ctx, d.opts.Executables.Package, append(args, appDir)...)
	if err != nil {
		return false, fmt.Errorf("error occurred while packaging %s: %w", appDir, err)
	}
	return strings.Contains(stdout, constants.SuccessMarker), nil
}

// Generate scaffolds a project from template into dir.
func (d *AresDriver) Generate(ctx context.Context, template, dir string) (bool, error) {
	stdout, err := d.Exec(ctx, d.opts.Executables.Generate, "-t", template, dir)
	if err != nil {
		return false, fmt.Errorf("error occurred while generating %s: %w", dir, err)
	}
	return strings.Contains(stdout, constants.SuccessMarker), nil
}
