package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spance/webos-driver-go/constants"
	"github.com/spance/webos-driver-go/utils"
	"github.com/spance/webos-driver-go/webos"
	"github.com/spance/webos-driver-go/webos/definitions"
)

// Config holds the actions requested on the command line. Driver options
// are read through viper into definitions.Options.
type Config struct {
	ConfigFile string `json:"config_file"`
	DriverType string `json:"driver_type"`
	Debug      bool   `json:"debug"`

	ListCommands bool          `json:"list_commands"`
	ListDevices  bool          `json:"list_devices"`
	ListFull     bool          `json:"list_full"`
	AresVersion  bool          `json:"ares_version"`
	DeviceInfo   string        `json:"device_info"`
	ListStorage  string        `json:"list_storage"`
	WaitDevice   time.Duration `json:"wait_device"`
	RemoveDevice string        `json:"remove_device"`
	GetKey       string        `json:"get_key"`
	Shell        string        `json:"shell"`

	Install     string `json:"install"`
	Launch      string `json:"launch"`
	Close       string `json:"close"`
	Uninstall   string `json:"uninstall"`
	Running     string `json:"running"`
	IsInstalled string `json:"is_installed"`

	Package  string `json:"package"`
	OutDir   string `json:"out_dir"`
	Generate string `json:"generate"`
	Template string `json:"template"`

	Forward   string `json:"forward"`
	Inspect   string `json:"inspect"`
	Serve     string `json:"serve"`
	ServePort int    `json:"serve_port"`
}

var config = &Config{}

var rootCmd = &cobra.Command{
	Use:   "webosctl",
	Short: "webOS driver - control LG webOS devices through the ares CLI",
	Long: `webosctl drives LG webOS TVs and emulators through the ares CLI toolchain.
The toolchain is found on PATH, or under $ARES_HOME/bin.`,
	Example: `  # Check the toolchain and the configured device
  go run main.go --device-id emulator

  # List the ares commands and the toolchain version
  go run main.go --list-commands --ares-version

  # List devices, or the full device registry
  go run main.go --list-devices
  go run main.go --list-full

  # Wait up to 30s for any device to show up
  go run main.go --wait-device 30s

  # Install and launch an app
  go run main.go -d emulator --install ./com.example.app_1.0.0_all.ipk
  go run main.go -d emulator --launch com.example.app

  # Forward device port 9998 to local port 8080 until interrupted
  go run main.go -d emulator --forward 8080:9998

  # Open a web inspector for an app
  go run main.go -d emulator --inspect com.example.app

  # Package an app directory
  go run main.go --package ./app --out ./dist

  # Load executables and defaults from a config file
  go run main.go --config ./webos.yaml --list-devices`,
	PersistentPreRunE: validateArgs,
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd.Context())
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()

	flags.StringVar(&config.ConfigFile, "config", "", "Path to a YAML config file")
	flags.StringVar(&config.DriverType, "driver-type", constants.ARES, "Driver type (only ares is supported)")
	flags.BoolVar(&config.Debug, "debug", false, "Enable debug mode (default: false)")

	// Driver options, bound to viper
	flags.StringP("device-id", "d", "", "Target device name as registered with ares-setup-device")
	flags.String("ares-home", "", "Ares toolchain root directory (default: $ARES_HOME)")
	flags.Int("ares-port", constants.DefaultAresPort, "Device control port")
	flags.Duration("exec-timeout", constants.DefaultExecTimeout, "Timeout of a single ares command")
	flags.Duration("retry-delay", 0, "Delay between attempts of a failed ares command")
	flags.Duration("poll-delay", 0, "Delay between device discovery attempts")
	flags.Duration("forward-grace", constants.DefaultForwardGrace, "Delay before a torn-down session is killed")
	flags.Bool("suppress-kill-server", false, "Leave the local ares server running on exit")

	_ = viper.BindPFlag("device_id", flags.Lookup("device-id"))
	_ = viper.BindPFlag("ares_home", flags.Lookup("ares-home"))
	_ = viper.BindPFlag("ares_port", flags.Lookup("ares-port"))
	_ = viper.BindPFlag("exec_timeout", flags.Lookup("exec-timeout"))
	_ = viper.BindPFlag("retry_delay", flags.Lookup("retry-delay"))
	_ = viper.BindPFlag("poll_delay", flags.Lookup("poll-delay"))
	_ = viper.BindPFlag("forward_grace", flags.Lookup("forward-grace"))
	_ = viper.BindPFlag("suppress_kill_server", flags.Lookup("suppress-kill-server"))

	// Device actions
	flags.BoolVar(&config.ListCommands, "list-commands", false, "List the ares commands and exit")
	flags.BoolVar(&config.ListDevices, "list-devices", false, "List devices and exit")
	flags.BoolVar(&config.ListFull, "list-full", false, "Print the full device registry and exit")
	flags.BoolVar(&config.AresVersion, "ares-version", false, "Print the ares toolchain version and exit")
	flags.StringVar(&config.DeviceInfo, "device-info", "", "Print identity of the named device")
	flags.StringVar(&config.ListStorage, "list-storage", "", "List storage of the named device")
	flags.DurationVar(&config.WaitDevice, "wait-device", 0, "Wait up to the given duration for any device")
	flags.StringVar(&config.RemoveDevice, "remove-device", "", "Remove the named device from the registry")
	flags.StringVar(&config.GetKey, "get-key", "", "Fetch the SSH key of the named device")
	flags.StringVar(&config.Shell, "shell", "", "Run an ares-novacom command line on the configured device")

	// App actions
	flags.StringVar(&config.Install, "install", "", "Install an .ipk on the configured device")
	flags.StringVar(&config.Launch, "launch", "", "Launch an app, closing it first if running")
	flags.StringVar(&config.Close, "close", "", "Close a running app")
	flags.StringVar(&config.Uninstall, "uninstall", "", "Remove an installed app")
	flags.StringVar(&config.Running, "running", "", "Report whether an app is running")
	flags.StringVar(&config.IsInstalled, "is-installed", "", "Report whether an app is installed")
	flags.StringVar(&config.Package, "package", "", "Package an app directory into an .ipk")
	flags.StringVar(&config.OutDir, "out", "", "Output directory for --package")
	flags.StringVar(&config.Generate, "generate", "", "Generate a project into the given directory")
	flags.StringVar(&config.Template, "template", "basic", "Template for --generate")

	// Sessions
	flags.StringVar(&config.Forward, "forward", "", "Forward a device port: hostPort:servicePort")
	flags.StringVar(&config.Inspect, "inspect", "", "Open a web inspector for an app")
	flags.StringVar(&config.Serve, "serve", "", "Serve an app directory with the local ares server")
	flags.IntVar(&config.ServePort, "serve-port", 0, "Port for --serve (default: chosen by ares-server)")
}

func initConfig() {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.SetEnvPrefix("webos")
	viper.AutomaticEnv()
	_ = viper.BindEnv("ares_home", "WEBOS_ARES_HOME", constants.EnvAresHome)

	if config.ConfigFile == "" {
		return
	}
	viper.SetConfigType("yaml")
	viper.SetConfigFile(config.ConfigFile)
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal().Err(err).Str("config", config.ConfigFile).Msg("failed to read config")
	}
}

func validateArgs(cmd *cobra.Command, args []string) error {
	if config.DriverType != constants.ARES {
		return fmt.Errorf("invalid driver type: %s. Must be '%s'", config.DriverType, constants.ARES)
	}
	if config.Forward != "" {
		if _, _, err := parseForward(config.Forward); err != nil {
			return err
		}
	}
	return nil
}

func loadOptions() (definitions.Options, error) {
	var opts definitions.Options
	if err := viper.Unmarshal(&opts); err != nil {
		return opts, fmt.Errorf("failed to unmarshal options: %w", err)
	}
	opts.ApplyDefaults()
	return opts, nil
}

func parseForward(spec string) (int, int, error) {
	host, service, ok := strings.Cut(spec, ":")
	hostPort, herr := strconv.Atoi(host)
	servicePort, serr := strconv.Atoi(service)
	if !ok || herr != nil || serr != nil {
		return 0, 0, fmt.Errorf("invalid forward %q. Must be hostPort:servicePort", spec)
	}
	return hostPort, servicePort, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cobra.CheckErr(rootCmd.ExecuteContext(ctx))
}

func run(ctx context.Context) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if config.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	opts, err := loadOptions()
	if err != nil {
		log.Error().Err(err).Msg("loading options failed")
		return
	}

	driver, err := webos.CreateDriver(ctx, config.DriverType, opts)
	if err != nil {
		var notFound *definitions.ToolchainNotFoundError
		if errors.As(err, &notFound) {
			log.Error().Msg("❌ " + notFound.Message)
			return
		}
		log.Error().Err(err).Msg("creating driver failed")
		return
	}
	defer driver.Close()

	if hitCmd := handleDeviceCommands(ctx, driver); hitCmd {
		return
	}
	if hitCmd := handleAppCommands(ctx, driver); hitCmd {
		return
	}
	if hitCmd := handleSessionCommands(ctx, driver); hitCmd {
		return
	}

	printConfiguration(opts)
	if passed := checkSystemRequirements(ctx, driver); !passed {
		log.Info().Msg(strings.Repeat("-", 50))
		log.Error().Msg("❌ System check failed. Please fix the issues above.")
	}
}

func handleDeviceCommands(ctx context.Context, driver webos.Driver) bool {
	hit := false

	if config.ListCommands {
		hit = true
		commands, err := driver.GetAresCommands(ctx)
		if err != nil {
			log.Error().Err(err).Msg("❌ list commands failed")
		}
		for _, c := range commands {
			log.Info().Msgf("  %-20s %s", c.Command, c.Description)
		}
	}

	if config.AresVersion {
		hit = true
		version, err := driver.GetAresVersion(ctx)
		if err != nil {
			log.Error().Err(err).Msg("❌ get ares version failed")
		} else {
			log.Info().Msgf("✅ ares version: %s", version.VersionString)
		}
	}

	if config.ListDevices {
		hit = true
		devices, err := driver.GetConnectedDevices(ctx)
		switch {
		case err != nil:
			log.Error().Err(err).Msg("❌ list devices failed")
		case len(devices) == 0:
			log.Info().Msg("No devices configured.")
		default:
			log.Info().Msg("Devices:")
			log.Info().Msg(strings.Repeat("-", 60))
			for _, d := range devices {
				marker := lo.Ternary(d.Default, " (default)", "")
				log.Info().Msgf("  %-20s %-30s [%s] %s%s", d.Name, d.ConnectionInfo, d.ConnectionType, d.Profile, marker)
			}
		}
	}

	if config.ListFull {
		hit = true
		registry, err := driver.GetConnectedDevicesInfo(ctx)
		if err != nil {
			log.Error().Err(err).Msg("❌ get device registry failed")
		} else {
			fmt.Println(utils.JsonIndent(registry))
		}
	}

	if config.DeviceInfo != "" {
		hit = true
		identity, err := driver.GetConnectDevice(ctx, config.DeviceInfo)
		if err != nil {
			log.Error().Err(err).Msg("❌ get device info failed")
		} else {
			fmt.Println(utils.JsonIndent(identity))
		}
	}

	if config.ListStorage != "" {
		hit = true
		storage, err := driver.GetListStorage(ctx, config.ListStorage)
		if err != nil {
			log.Error().Err(err).Msg("❌ list storage failed")
		}
		for _, st := range storage {
			log.Info().Msgf("  %-10s %-6s %s", st.Name, st.Type, st.URI)
		}
	}

	if config.WaitDevice > 0 {
		hit = true
		log.Info().Msgf("Waiting up to %s for a device...", config.WaitDevice)
		devices, err := driver.WaitForAnyDevice(ctx, config.WaitDevice)
		if err != nil {
			log.Error().Err(err).Msg("❌")
		} else {
			log.Info().Msgf("✅ found %s", strings.Join(lo.Map(devices, func(d definitions.DeviceRecord, _ int) string {
				return d.Name
			}), ", "))
		}
	}

	if config.RemoveDevice != "" {
		hit = true
		if _, err := driver.RemoveDevice(ctx, config.RemoveDevice); err != nil {
			log.Error().Err(err).Msg("❌ remove device failed")
		} else {
			log.Info().Msgf("✅ removed %s", config.RemoveDevice)
		}
	}

	if config.GetKey != "" {
		hit = true
		if _, err := driver.GetKey(ctx, config.GetKey); err != nil {
			log.Error().Err(err).Msg("❌ get key failed")
		} else {
			log.Info().Msgf("✅ key of %s saved by ares-novacom", config.GetKey)
		}
	}

	if config.Shell != "" {
		hit = true
		output, err := driver.Shell(ctx, strings.Fields(config.Shell)...)
		if err != nil {
			log.Error().Err(err).Msg("❌ shell failed")
		} else {
			fmt.Print(output)
		}
	}

	return hit
}

func handleAppCommands(ctx context.Context, driver webos.Driver) bool {
	type action struct {
		name string
		arg  string
		run  func(context.Context, string) (bool, error)
	}
	actions := []action{
		{name: "install", arg: config.Install, run: driver.Install},
		{name: "launch", arg: config.Launch, run: driver.StartApp},
		{name: "close", arg: config.Close, run: driver.CloseApp},
		{name: "uninstall", arg: config.Uninstall, run: driver.Uninstall},
		{name: "running", arg: config.Running, run: driver.IsStartedApp},
		{name: "is-installed", arg: config.IsInstalled, run: driver.IsAppInstalled},
		{name: "package", arg: config.Package, run: func(ctx context.Context, dir string) (bool, error) {
			return driver.Package(ctx, dir, config.OutDir)
		}},
		{name: "generate", arg: config.Generate, run: func(ctx context.Context, dir string) (bool, error) {
			return driver.Generate(ctx, config.Template, dir)
		}},
	}

	hit := false
	for _, a := range lo.Filter(actions, func(a action, _ int) bool { return a.arg != "" }) {
		hit = true
		ok, err := a.run(ctx, a.arg)
		switch {
		case err != nil:
			log.Error().Err(err).Str("target", a.arg).Msgf("❌ %s failed", a.name)
		case ok:
			log.Info().Str("target", a.arg).Msgf("✅ %s: true", a.name)
		default:
			log.Info().Str("target", a.arg).Msgf("%s: false", a.name)
		}
	}
	return hit
}

// handleSessionCommands starts the requested sessions and blocks until the
// process is interrupted.
func handleSessionCommands(ctx context.Context, driver webos.Driver) bool {
	if config.Forward == "" && config.Inspect == "" && config.Serve == "" {
		return false
	}

	if config.Forward != "" {
		hostPort, servicePort, _ := parseForward(config.Forward)
		message, err := driver.ForwardPort(ctx, hostPort, servicePort)
		if err != nil {
			log.Error().Err(err).Msg("❌ forward failed")
			return true
		}
		log.Info().Msgf("✅ %s (%s)", message, config.Forward)
	}

	if config.Inspect != "" {
		_, url, err := driver.OpenWebInspector(ctx, config.Inspect)
		if err != nil {
			log.Error().Err(err).Msg("❌ inspect failed")
			return true
		}
		log.Info().Msgf("✅ inspector: %s", url)
	}

	if config.Serve != "" {
		url, err := driver.StartServer(ctx, config.Serve, config.ServePort)
		if err != nil {
			log.Error().Err(err).Msg("❌ serve failed")
			return true
		}
		log.Info().Msgf("✅ serving %s at %s", config.Serve, url)
	}

	log.Info().Msg("Press Ctrl+C to stop.")
	<-ctx.Done()
	log.Info().Msg("Stopping sessions...")
	return true
}

func checkSystemRequirements(ctx context.Context, driver webos.Driver) bool {
	log.Info().Msg("🔍 Checking system requirements...")
	log.Info().Msg(strings.Repeat("-", 50))

	log.Info().Msg("1. Checking ares installation... ")
	version, err := driver.GetAresVersion(ctx)
	if err != nil {
		log.Error().Msg("❌ FAILED")
		log.Info().Msgf("   Error: %v", err)
		log.Info().Msg("   Solution: Install the webOS CLI:")
		log.Info().Msg("     - npm install -g @webos-tools/cli")
		log.Info().Msgf("     - or set %s to the toolchain root", constants.EnvAresHome)
		return false
	}
	log.Info().Msgf("✅ OK (%s at %s)", version.VersionString, driver.GetAresPath())

	log.Info().Msg("2. Checking registered devices... ")
	registry, err := driver.GetConnectedDevicesInfo(ctx)
	if err != nil {
		log.Error().Msg("❌ FAILED")
		log.Info().Msgf("   Error: %v", err)
		return false
	}
	if len(registry) == 0 {
		log.Error().Msg("❌ FAILED")
		log.Info().Msg("   Error: No devices registered.")
		log.Info().Msg("   Solution:")
		log.Info().Msg("     1. Enable Developer Mode on your TV")
		log.Info().Msg("     2. Register it: ares-setup-device")
		log.Info().Msg("     3. Fetch its key: go run main.go --get-key <name>")
		return false
	}
	names := lo.Map(registry, func(d definitions.DeviceInfo, _ int) string { return d.Name })
	log.Info().Msgf("✅ OK (%d device(s): %s)", len(names), strings.Join(names, ", "))

	if id := driver.DeviceID(); id != "" {
		log.Info().Msgf("3. Checking device %s... ", id)
		connected, err := driver.IsDeviceConnected(ctx, id)
		if err != nil || !connected {
			log.Error().Msg("❌ FAILED")
			log.Info().Msgf("   Error: %s is not registered.", id)
			return false
		}
		log.Info().Msg("✅ OK")
	}

	log.Info().Msg(strings.Repeat("-", 50))
	log.Info().Msg("✅ All system checks passed!")
	return true
}

func printConfiguration(opts definitions.Options) {
	log.Info().Msg(strings.Repeat("=", 50))
	log.Info().Msg("webOS driver - LG webOS device automation")
	log.Info().Msg(strings.Repeat("=", 50))
	log.Info().Msgf("Driver Type: %s", strings.ToUpper(config.DriverType))
	if opts.DeviceID != "" {
		log.Info().Msgf("Device: %s", opts.DeviceID)
	}
	if opts.AresRoot != "" {
		log.Info().Msgf("Ares Home: %s", opts.AresRoot)
	}
	log.Info().Msgf("Exec Timeout: %s", opts.ExecTimeout)
	if viper.ConfigFileUsed() != "" {
		log.Info().Msgf("Config File: %s", viper.ConfigFileUsed())
	}
	log.Debug().Str("executables", utils.JsonString(opts.Executables)).Msg("configured executables")
	log.Info().Msg(strings.Repeat("=", 50))
}
