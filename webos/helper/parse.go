package helper

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
	"github.com/spance/webos-driver-go/constants"
	"github.com/spance/webos-driver-go/utils"
	"github.com/spance/webos-driver-go/webos/definitions"
)

var (
	multiSpaceRe   = regexp.MustCompile(`\s{2,}`)
	deviceHeaderRe = regexp.MustCompile(`name[\S\s]+-{7}`)
	keyValueSepRe  = regexp.MustCompile(`\s:\s`)
	versionRe      = regexp.MustCompile(`Version:\s([\d.]*)`)
	validClassRe   = regexp.MustCompile(`^[a-zA-Z0-9./_]+$`)
	urlRe          = regexp.MustCompile(`https?://\S+`)
)

// cleanLines trims every line and drops blank lines and lines containing
// any of the excluded strings.
func cleanLines(raw string, excluded ...string) []string {
	lines := lo.Map(strings.Split(raw, "\n"), func(line string, _ int) string {
		return strings.TrimSpace(line)
	})
	return lo.Filter(lines, func(line string, _ int) bool {
		if line == "" {
			return false
		}
		return !lo.SomeBy(excluded, func(x string) bool {
			return strings.Contains(line, x)
		})
	})
}

func unexpected(parser, raw string) error {
	return &definitions.UnexpectedOutputError{Parser: parser, Raw: raw}
}

// ParseAresCommands parses the command catalog printed by `ares -l`.
func ParseAresCommands(stdout string) ([]definitions.AresCommand, error) {
	start := strings.Index(stdout, constants.CommandCatalogAnchor)
	if start < 0 {
		return nil, unexpected("ares commands", stdout)
	}

	return lo.Map(cleanLines(stdout[start:]), func(line string, _ int) definitions.AresCommand {
		parts := multiSpaceRe.Split(line, 2)
		cmd := definitions.AresCommand{Command: parts[0]}
		if len(parts) > 1 {
			cmd.Description = parts[1]
		}
		return cmd
	}), nil
}

// ParseDeviceList parses the brief device table:
//
//	name      deviceinfo                 connection  profile
//	--------  -------------------------  ----------  -------
//	emulator  developer@127.0.0.1:6622   ssh         tv
//
// A "(default)" token after the name marks the default device.
func ParseDeviceList(stdout string) ([]definitions.DeviceRecord, error) {
	loc := deviceHeaderRe.FindStringIndex(stdout)
	if loc == nil {
		return nil, unexpected("devices", stdout)
	}

	return lo.Map(cleanLines(stdout[loc[1]:]), func(line string, _ int) definitions.DeviceRecord {
		fields := strings.Fields(line)
		record := definitions.DeviceRecord{Name: fields[0]}
		rest := fields[1:]
		if len(rest) > 0 && rest[0] == constants.DefaultDeviceMarker {
			record.Default = true
			rest = rest[1:]
		}
		record.ConnectionInfo = field(rest, 0)
		record.ConnectionType = definitions.ConnectionType(field(rest, 1))
		record.Profile = field(rest, 2)
		return record
	}), nil
}

// ParseDeviceRegistry parses the JSON array printed by `ares-setup-device --listfull`.
func ParseDeviceRegistry(stdout string) ([]definitions.DeviceInfo, error) {
	start := strings.Index(stdout, constants.DeviceRegistryAnchor)
	if start < 0 {
		return nil, unexpected("info of the devices", stdout)
	}

	doc := strings.Join(cleanLines(stdout[start:]), "")
	devices, err := utils.DecodeJSON[[]definitions.DeviceInfo](doc)
	if err != nil {
		return nil, &definitions.UnexpectedOutputError{Parser: "info of the devices", Raw: stdout, Err: err}
	}
	if devices == nil {
		devices = []definitions.DeviceInfo{}
	}
	return devices, nil
}

// HasDevice reports whether the registry holds an entry named exactly name.
func HasDevice(registry []definitions.DeviceInfo, name string) bool {
	if name == "" {
		return false
	}
	return lo.ContainsBy(registry, func(d definitions.DeviceInfo) bool {
		return d.Name == name
	})
}

// ParseDeviceIdentity parses the `key : value` block of `ares-device-info --device`.
func ParseDeviceIdentity(stdout string) (definitions.DeviceIdentity, error) {
	var identity definitions.DeviceIdentity

	start := strings.Index(stdout, constants.DeviceIdentityAnchor)
	if start < 0 {
		return identity, unexpected("device info", stdout)
	}

	for _, line := range cleanLines(stdout[start:]) {
		kv := keyValueSepRe.Split(line, 2)
		if len(kv) != 2 {
			continue
		}
		value := strings.TrimSpace(kv[1])
		switch strings.TrimSpace(kv[0]) {
		case "modelName":
			identity.ModelName = value
		case "sdkVersion":
			identity.SdkVersion = value
		case "firmwareVersion":
			identity.FirmwareVersion = value
		case "boardType":
			identity.BoardType = value
		case "otaId":
			identity.OtaID = value
		}
	}
	return identity, nil
}

// ParseStorageList parses the table printed by `ares-install -S`.
func ParseStorageList(stdout string) ([]definitions.StorageEntry, error) {
	start := strings.Index(stdout, constants.StorageListHeader)
	if start < 0 {
		return nil, unexpected("storage", stdout)
	}

	rows := cleanLines(stdout[start:], constants.StorageListHeader, constants.StorageListSeparator)
	return lo.Map(rows, func(line string, _ int) definitions.StorageEntry {
		fields := strings.Fields(line)
		return definitions.StorageEntry{
			Name: field(fields, 0),
			Type: field(fields, 1),
			URI:  field(fields, 2),
		}
	}), nil
}

// ParseAresVersion reads "Version: 1.10.4-j1703-k" as 1.10.4. Patch is nil
// when the version has fewer than three components.
func ParseAresVersion(stdout string) (definitions.AresVersion, error) {
	var version definitions.AresVersion

	m := versionRe.FindStringSubmatch(stdout)
	if m == nil || strings.Trim(m[1], ".") == "" {
		return version, unexpected("ares version", stdout)
	}

	version.VersionString = m[1]
	version.VersionFloat = utils.LeadingFloat(m[1])

	parts := strings.Split(m[1], ".")
	major := utils.AtoiOrNil(parts[0])
	if major == nil {
		return version, unexpected("ares version", stdout)
	}
	version.Major = *major
	if len(parts) > 1 {
		if minor := utils.AtoiOrNil(parts[1]); minor != nil {
			version.Minor = *minor
		}
	}
	if len(parts) > 2 {
		version.Patch = utils.AtoiOrNil(parts[2])
	}
	return version, nil
}

// ExtractInspectorURL strips the inspector banner from the first line of chunk.
func ExtractInspectorURL(chunk string) string {
	lines := cleanLines(chunk)
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(lines[0], constants.InspectorURLPrefix))
}

// ExtractURL returns the first http(s) URL in chunk, or its first line.
func ExtractURL(chunk string) string {
	if u := urlRe.FindString(chunk); u != "" {
		return u
	}
	lines := cleanLines(chunk)
	if len(lines) == 0 {
		return ""
	}
	return lines[0]
}

// IsValidClass reports whether s is a plausible package or class name.
func IsValidClass(s string) bool {
	return validClassRe.MatchString(s)
}

func field(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}
