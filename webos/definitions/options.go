package definitions

import (
	"os"
	"time"

	"github.com/spance/webos-driver-go/constants"
)

// Executables holds one descriptor per toolchain subcommand.
type Executables struct {
	Ares       Executable `mapstructure:"ares"`
	Generate   Executable `mapstructure:"generate"`
	Package    Executable `mapstructure:"package"`
	Setup      Executable `mapstructure:"setup"`
	Install    Executable `mapstructure:"install"`
	Launch     Executable `mapstructure:"launch"`
	Inspect    Executable `mapstructure:"inspect"`
	Server     Executable `mapstructure:"server"`
	Novacom    Executable `mapstructure:"novacom"`
	DeviceInfo Executable `mapstructure:"device_info"`
}

// Options configures an AresDriver. Zero values are replaced by defaults.
type Options struct {
	// AresRoot is the toolchain installation root; falls back to $ARES_HOME.
	AresRoot string `mapstructure:"ares_home"`
	// DeviceID is the target device name as known to ares-setup-device.
	DeviceID    string        `mapstructure:"device_id"`
	Executables Executables   `mapstructure:"executables"`
	AresPort    int           `mapstructure:"ares_port"`
	ExecTimeout time.Duration `mapstructure:"exec_timeout"`
	// RetryDelay is slept between command attempts.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	// PollDelay is slept between device discovery attempts.
	PollDelay time.Duration `mapstructure:"poll_delay"`
	// ForwardGrace is the delay before a torn-down session is killed.
	ForwardGrace       time.Duration `mapstructure:"forward_grace"`
	SuppressKillServer bool          `mapstructure:"suppress_kill_server"`
}

func DefaultOptions() Options {
	var o Options
	o.ApplyDefaults()
	return o
}

func (o *Options) ApplyDefaults() {
	if o.AresRoot == "" {
		o.AresRoot = os.Getenv(constants.EnvAresHome)
	}
	defaultPath(&o.Executables.Ares, constants.BinAres)
	defaultPath(&o.Executables.Generate, constants.BinGenerate)
	defaultPath(&o.Executables.Package, constants.BinPackage)
	defaultPath(&o.Executables.Setup, constants.BinSetup)
	defaultPath(&o.Executables.Install, constants.BinInstall)
	defaultPath(&o.Executables.Launch, constants.BinLaunch)
	defaultPath(&o.Executables.Inspect, constants.BinInspect)
	defaultPath(&o.Executables.Server, constants.BinServer)
	defaultPath(&o.Executables.Novacom, constants.BinNovacom)
	defaultPath(&o.Executables.DeviceInfo, constants.BinDeviceInfo)
	if o.AresPort <= 0 {
		o.AresPort = constants.DefaultAresPort
	}
	if o.ExecTimeout <= 0 {
		o.ExecTimeout = constants.DefaultExecTimeout
	}
	if o.ForwardGrace <= 0 {
		o.ForwardGrace = constants.DefaultForwardGrace
	}
}

func defaultPath(e *Executable, name string) {
	if e.Path == "" {
		e.Path = name
	}
}
