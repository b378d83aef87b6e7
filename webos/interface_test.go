package webos_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spance/webos-driver-go/constants"
	"github.com/spance/webos-driver-go/webos"
	"github.com/spance/webos-driver-go/webos/ares"
	"github.com/spance/webos-driver-go/webos/definitions"
)

// scriptedExecutor answers by command line.
type scriptedExecutor map[string]string

func (e scriptedExecutor) Execute(_ context.Context, name string, args []string) (definitions.ExecResult, error) {
	line := strings.Join(append([]string{name}, args...), " ")
	if stdout, ok := e[line]; ok {
		return definitions.ExecResult{Stdout: stdout}, nil
	}
	return definitions.ExecResult{ExitCode: 1}, errors.New("exit status 1")
}

func TestCreateDriver(t *testing.T) {
	executor := scriptedExecutor{
		"which ares":                              "/usr/local/bin/ares\n",
		"where ares":                              "C:\\ares\\bin\\ares.cmd\nC:\\ares\\bin\\ares\n",
		"/usr/local/bin/ares --version":           "Version: 1.12.0\n",
		"ares-setup-device --listfull":            `[{"name": "emulator"}]`,
		"ares-launch --device emulator --running": "com.example.app\n",
	}
	ctx := context.Background()

	driver, err := webos.CreateDriver(ctx, constants.ARES, definitions.Options{DeviceID: "emulator"}, ares.WithExecutor(executor))
	require.NoError(t, err)
	defer driver.Close()

	assert.Equal(t, "emulator", driver.DeviceID())
	connected, err := driver.IsDeviceConnected(ctx, "")
	require.NoError(t, err)
	assert.True(t, connected)

	running, err := driver.IsStartedApp(ctx, "com.example.app")
	require.NoError(t, err)
	assert.True(t, running)

	_, err = webos.CreateDriver(ctx, "adb", definitions.Options{})
	assert.ErrorContains(t, err, "unknown driver type")
}

func TestCreateDriverToolchainMissing(t *testing.T) {
	t.Setenv(constants.EnvAresHome, "")

	driver, err := webos.CreateDriver(context.Background(), constants.ARES, definitions.Options{}, ares.WithExecutor(scriptedExecutor{}))

	assert.Nil(t, driver)
	assert.ErrorIs(t, err, definitions.ErrToolchainNotFound)
}

func ExampleCreateDriver() {
	ctx := context.Background()
	opts := definitions.DefaultOptions()
	opts.DeviceID = "emulator"

	driver, err := webos.CreateDriver(ctx, constants.ARES, opts)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer driver.Close()

	if _, err := driver.WaitForAnyDevice(ctx, 0); err != nil {
		fmt.Println(err)
		return
	}
	if ok, err := driver.StartApp(ctx, "com.webos.app.browser"); err == nil && ok {
		fmt.Println("launched")
	}
}
