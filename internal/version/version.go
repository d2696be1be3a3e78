// ABOUTME: Version constants for tapedeck
// ABOUTME: Reported by the CLI --version flag and the info command
package version

const (
	// Version is the release version
	Version = "0.3.0"

	// Product is the application name
	Product = "tapedeck"

	// Manufacturer identifies the authors
	Manufacturer = "Resonate Protocol"
)

// String is the product and version as printed by --version
func String() string {
	return Product + " " + Version
}
