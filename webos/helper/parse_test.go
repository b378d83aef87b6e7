package helper_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spance/webos-driver-go/webos/definitions"
	"github.com/spance/webos-driver-go/webos/helper"
)

const catalogOutput = "ares-generate      Generate files for a webOS app or service\n" +
	"ares-inspect       Provide URL to use Web Inspector or Node Inspector\n" +
	"ares-install       Install or Remove app from a device\n" +
	"ares-launch        Launch or close apps\n" +
	"ares-novacom       Command Line Tool to control target device\n" +
	"ares-package       Create a webOS application package file\n" +
	"ares-server        Run a local web server based on path\n" +
	"ares-setup-device  Add or modify the informations of the devices to use\n" +
	"ares-device-info   Print device's valid system information\n"

const registryOutput = `[
    {
        "profile": "tv",
        "name": "emulator",
        "deviceinfo": {
            "ip": "127.0.0.1",
            "port": "6622",
            "user": "developer"
        },
        "connection": [
            "ssh"
        ],
        "details": {
            "platform": "starfish",
            "privatekey": "webos_emul",
            "description": "LG webOS TV Emulator"
        }
    },
    {
        "profile": "tv",
        "name": "home",
        "deviceinfo": {
            "ip": "192.168.1.4",
            "port": "9922",
            "user": "prisoner"
        },
        "connection": [
            "ssh"
        ],
        "details": {
            "platform": "starfish",
            "privatekey": "home_webos",
            "passphrase": "FFFDF8",
            "description": "new device"
        }
    }
]
`

func TestParseAresCommands(t *testing.T) {
	commands, err := helper.ParseAresCommands("Usage banner\n\n" + catalogOutput + "\n\n")
	require.NoError(t, err)
	require.Len(t, commands, 9)

	for _, c := range commands {
		assert.NotEmpty(t, c.Command)
	}
	assert.Equal(t, definitions.AresCommand{
		Command:     "ares-generate",
		Description: "Generate files for a webOS app or service",
	}, commands[0])
	assert.Equal(t, "ares-setup-device", commands[7].Command)
	assert.Equal(t, "Add or modify the informations of the devices to use", commands[7].Description)

	_, err = helper.ParseAresCommands("ares-install  Install or Remove app from a device\n")
	assert.ErrorIs(t, err, definitions.ErrUnexpectedOutput)
}

func TestParseDeviceList(t *testing.T) {
	tests := []struct {
		name      string
		stdout    string
		expected  []definitions.DeviceRecord
		expectErr bool
	}{
		{
			name: "single emulator",
			stdout: "name      deviceinfo                 connection  profile\n" +
				"--------  -------------------------  ----------  -------\n" +
				"emulator  developer@127.0.0.1:6622   ssh         tv\n",
			expected: []definitions.DeviceRecord{
				{Name: "emulator", ConnectionInfo: "developer@127.0.0.1:6622", ConnectionType: definitions.SSH, Profile: "tv"},
			},
		},
		{
			name: "default marker and leading noise",
			stdout: "warning: something\n" +
				"name               deviceinfo                connection  profile\n" +
				"-----------------  ------------------------  ----------  -------\n" +
				"emulator (default)  developer@127.0.0.1:6622  ssh         tv\n" +
				"home               prisoner@192.168.1.4:9922 ssh         tv\n",
			expected: []definitions.DeviceRecord{
				{Name: "emulator", ConnectionInfo: "developer@127.0.0.1:6622", ConnectionType: definitions.SSH, Profile: "tv", Default: true},
				{Name: "home", ConnectionInfo: "prisoner@192.168.1.4:9922", ConnectionType: definitions.SSH, Profile: "tv"},
			},
		},
		{
			name: "header only",
			stdout: "name      deviceinfo                 connection  profile\n" +
				"--------  -------------------------  ----------  -------\n",
			expected: []definitions.DeviceRecord{},
		},
		{
			name:      "missing header",
			stdout:    "List of devices attached\nemulator  developer@127.0.0.1:6622   ssh         tv\n",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			devices, err := helper.ParseDeviceList(tt.stdout)
			if tt.expectErr {
				var unexpected *definitions.UnexpectedOutputError
				require.ErrorAs(t, err, &unexpected)
				assert.Equal(t, tt.stdout, unexpected.Raw)
				assert.Nil(t, devices)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, devices)
		})
	}
}

func TestParseDeviceRegistry(t *testing.T) {
	devices, err := helper.ParseDeviceRegistry("Loading...\n" + registryOutput)
	require.NoError(t, err)
	require.Len(t, devices, 2)

	names := []string{devices[0].Name, devices[1].Name}
	assert.Equal(t, []string{"emulator", "home"}, names)
	assert.Equal(t, "127.0.0.1", devices[0].DeviceInfo.IP)
	assert.Equal(t, "6622", devices[0].DeviceInfo.Port)
	assert.Equal(t, []string{"ssh"}, devices[0].Connection)
	assert.Equal(t, "LG webOS TV Emulator", devices[0].Details.Description)
	assert.Equal(t, "FFFDF8", devices[1].Details.Passphrase)

	empty, err := helper.ParseDeviceRegistry("[]\n")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = helper.ParseDeviceRegistry("no devices here")
	assert.ErrorIs(t, err, definitions.ErrUnexpectedOutput)

	_, err = helper.ParseDeviceRegistry("[ {\"name\": ")
	var unexpected *definitions.UnexpectedOutputError
	require.ErrorAs(t, err, &unexpected)
	assert.Error(t, unexpected.Err)
}

func TestHasDevice(t *testing.T) {
	registry, err := helper.ParseDeviceRegistry(registryOutput)
	require.NoError(t, err)

	assert.True(t, helper.HasDevice(registry, "home"))
	assert.True(t, helper.HasDevice(registry, "emulator"))
	assert.False(t, helper.HasDevice(registry, "Home"))
	assert.False(t, helper.HasDevice(registry, ""))
	assert.False(t, helper.HasDevice(registry, "tv"))
	assert.False(t, helper.HasDevice(nil, "home"))
}

func TestParseDeviceIdentity(t *testing.T) {
	identity, err := helper.ParseDeviceIdentity("modelName : 43LM6300PDB\n" +
		"sdkVersion : 4.7.0\n" +
		"firmwareVersion : 04.72.10\n" +
		"boardType : M3R_DVB_EU\n" +
		"otaId : HE_DTV_W19R_AFAAABAA\n")
	require.NoError(t, err)
	assert.Equal(t, definitions.DeviceIdentity{
		ModelName:       "43LM6300PDB",
		SdkVersion:      "4.7.0",
		FirmwareVersion: "04.72.10",
		BoardType:       "M3R_DVB_EU",
		OtaID:           "HE_DTV_W19R_AFAAABAA",
	}, identity)

	_, err = helper.ParseDeviceIdentity("ares-device-info ERR! [com.webos.service.sdkagent failure]")
	assert.ErrorIs(t, err, definitions.ErrUnexpectedOutput)
}

func TestParseStorageList(t *testing.T) {
	storage, err := helper.ParseStorageList("name      type   uri\n" +
		"--------  -----  ----------------\n" +
		"internal  flash  /media/developer\n")
	require.NoError(t, err)
	assert.Equal(t, []definitions.StorageEntry{
		{Name: "internal", Type: "flash", URI: "/media/developer"},
	}, storage)

	_, err = helper.ParseStorageList("internal  flash  /media/developer\n")
	assert.ErrorIs(t, err, definitions.ErrUnexpectedOutput)
}

func TestParseAresVersion(t *testing.T) {
	version, err := helper.ParseAresVersion("Version: 1.10.4-j1703-k\n")
	require.NoError(t, err)
	assert.Equal(t, "1.10.4", version.VersionString)
	assert.Equal(t, 1, version.Major)
	assert.Equal(t, 10, version.Minor)
	require.NotNil(t, version.Patch)
	assert.Equal(t, 4, *version.Patch)
	assert.InDelta(t, 1.1, version.VersionFloat, 1e-9)

	version, err = helper.ParseAresVersion("Version: 2.0-beta")
	require.NoError(t, err)
	assert.Equal(t, "2.0", version.VersionString)
	assert.Equal(t, 2, version.Major)
	assert.Equal(t, 0, version.Minor)
	assert.Nil(t, version.Patch)

	_, err = helper.ParseAresVersion("ares: command not found")
	assert.True(t, errors.Is(err, definitions.ErrUnexpectedOutput))
}

func TestExtractURLs(t *testing.T) {
	assert.Equal(t, "http://localhost:9998/devtools/inspector.html?ws=localhost:9998/devtools/page/1",
		helper.ExtractInspectorURL("Application Debugging - http://localhost:9998/devtools/inspector.html?ws=localhost:9998/devtools/page/1\n"))
	assert.Equal(t, "", helper.ExtractInspectorURL("\n"))

	assert.Equal(t, "http://localhost:3000", helper.ExtractURL("Local server running on http://localhost:3000\n"))
	assert.Equal(t, "ready", helper.ExtractURL("ready\nmore"))
}

func TestIsValidClass(t *testing.T) {
	assert.True(t, helper.IsValidClass("com.example/com.example.Main"))
	assert.True(t, helper.IsValidClass("com.webos.app.browser"))
	assert.False(t, helper.IsValidClass("illegalPackage#/adsasd"))
	assert.False(t, helper.IsValidClass(""))
}
