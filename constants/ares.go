package constants

import "time"

// Driver types accepted by webos.CreateDriver.
const (
	ARES = "ares"
)

// Executable names of the webOS CLI toolchain.
const (
	BinAres       = "ares"
	BinGenerate   = "ares-generate"
	BinPackage    = "ares-package"
	BinSetup      = "ares-setup-device"
	BinInstall    = "ares-install"
	BinLaunch     = "ares-launch"
	BinInspect    = "ares-inspect"
	BinServer     = "ares-server"
	BinNovacom    = "ares-novacom"
	BinDeviceInfo = "ares-device-info"
)

const (
	// EnvAresHome names the toolchain installation root.
	EnvAresHome = "ARES_HOME"

	DefaultAresPort     = 9922
	DefaultExecTimeout  = 20 * time.Second
	DefaultRetries      = 2
	DefaultForwardGrace = 500 * time.Millisecond

	// MaxDeviceAttempts bounds WaitForAnyDevice independently of its deadline.
	MaxDeviceAttempts = 10
)

// Anchors and boilerplate of the toolchain's text output.
const (
	CommandCatalogAnchor = "ares-generate      Generate files for a webOS app or service"
	DeviceIdentityAnchor = "modelName"
	DeviceRegistryAnchor = "["
	StorageListHeader    = "name      type   uri"
	StorageListSeparator = "--------  -----  ----------------"
	DefaultDeviceMarker  = "(default)"

	InspectorURLPrefix = "Application Debugging - "
	SuccessMarker      = "Success"
)
