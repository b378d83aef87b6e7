package definitions

type ConnectionType string

const (
	SSH ConnectionType = "ssh"
)

// DeviceRecord is one row of the brief device list.
type DeviceRecord struct {
	Name           string         `json:"name"`
	ConnectionInfo string         `json:"deviceinfo"`
	ConnectionType ConnectionType `json:"connection"`
	Profile        string         `json:"profile"`
	Default        bool           `json:"default,omitempty"`
}

// DeviceInfo is one entry of the full device registry (setup --listfull).
// Entries are identified by Name.
type DeviceInfo struct {
	Name       string           `json:"name"`
	Profile    string           `json:"profile,omitempty"`
	DeviceInfo DeviceConnection `json:"deviceinfo"`
	Connection []string         `json:"connection"`
	Details    DeviceDetails    `json:"details"`
}

type DeviceConnection struct {
	IP   string `json:"ip"`
	Port string `json:"port"`
	User string `json:"user"`
}

type DeviceDetails struct {
	Platform    string `json:"platform,omitempty"`
	PrivateKey  string `json:"privatekey,omitempty"`
	Passphrase  string `json:"passphrase,omitempty"`
	Password    string `json:"password,omitempty"`
	Description string `json:"description,omitempty"`
}

// DeviceIdentity is a point-in-time snapshot reported by the device-info tool.
type DeviceIdentity struct {
	ModelName       string `json:"modelName"`
	SdkVersion      string `json:"sdkVersion"`
	FirmwareVersion string `json:"firmwareVersion"`
	BoardType       string `json:"boardType"`
	OtaID           string `json:"otaId"`
}

// StorageEntry is one row of the installer's storage listing.
type StorageEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
	URI  string `json:"uri"`
}
