package webos

import (
	"context"
	"fmt"
	"time"

	"github.com/spance/webos-driver-go/constants"
	"github.com/spance/webos-driver-go/webos/ares"
	"github.com/spance/webos-driver-go/webos/definitions"
)

// DeviceManager discovers devices and queries the toolchain about them.
type DeviceManager interface {
	GetAresCommands(ctx context.Context) ([]definitions.AresCommand, error)
	GetAresVersion(ctx context.Context) (*definitions.AresVersion, error)
	GetConnectedDevices(ctx context.Context) ([]definitions.DeviceRecord, error)
	GetConnectedDevicesInfo(ctx context.Context) ([]definitions.DeviceInfo, error)
	GetConnectDevice(ctx context.Context, device string) (*definitions.DeviceIdentity, error)
	GetListStorage(ctx context.Context, device string) ([]definitions.StorageEntry, error)
	IsDeviceCreated(ctx context.Context, name string) (bool, error)
	IsDeviceConnected(ctx context.Context, name string) (bool, error)
	WaitForAnyDevice(ctx context.Context, timeout time.Duration) ([]definitions.DeviceRecord, error)
	RemoveDevice(ctx context.Context, name string) (string, error)
	GetKey(ctx context.Context, name string) (string, error)
	Shell(ctx context.Context, args ...string) (string, error)
	ResetCaches()
}

// AppOperator manages the app lifecycle on the configured device.
type AppOperator interface {
	IsAppInstalled(ctx context.Context, pkg string) (bool, error)
	IsWebAppInstalled(ctx context.Context, pkg string) (bool, error)
	IsStartedApp(ctx context.Context, pkg string) (bool, error)
	StartApp(ctx context.Context, pkg string) (bool, error)
	CloseApp(ctx context.Context, pkg string) (bool, error)
	Install(ctx context.Context, ipk string) (bool, error)
	InstallFromDevicePath(ctx context.Context) (bool, error)
	Uninstall(ctx context.Context, pkg string) (bool, error)
	Package(ctx context.Context, appDir, outDir string) (bool, error)
	Generate(ctx context.Context, template, dir string) (bool, error)
}

// SessionController owns the long-running toolchain processes.
type SessionController interface {
	ForwardPort(ctx context.Context, hostPort, servicePort int) (string, error)
	StopForward(key string) bool
	OpenWebInspector(ctx context.Context, pkg string) (id string, url string, err error)
	CloseInspector(id string) bool
	StartServer(ctx context.Context, appDir string, port int) (string, error)
	StopServer() bool
	DestroyAll()
}

type Driver interface {
	DeviceManager
	AppOperator
	SessionController

	DeviceID() string
	SetDeviceID(id string)
	GetAresPath() string
	Close()
}

var _ Driver = (*ares.AresDriver)(nil)

func CreateDriver(ctx context.Context, driverType string, opts definitions.Options, options ...ares.Option) (Driver, error) {
	switch driverType {
	case constants.ARES, "":
		driver, err := ares.NewAresDriver(ctx, opts, options...)
		if err != nil {
			return nil, err
		}
		return driver, nil
	default:
		return nil, fmt.Errorf("unknown driver type: %v", driverType)
	}
}
