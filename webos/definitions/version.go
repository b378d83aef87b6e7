package definitions

// AresCommand is one entry of the primary CLI's command catalog.
type AresCommand struct {
	Command     string `json:"command"`
	Description string `json:"description"`
}

type AresVersion struct {
	VersionString string `json:"versionString"`
	// VersionFloat is a lossy parse of the dotted string ("1.10.4" -> 1.1).
	// Prefer Major/Minor/Patch.
	VersionFloat float64 `json:"versionFloat"`
	Major        int     `json:"major"`
	Minor        int     `json:"minor"`
	Patch        *int    `json:"patch,omitempty"`
}
