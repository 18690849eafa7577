// ABOUTME: Product and version constants
// ABOUTME: Reported in startup logs, mDNS records and -version output
package version

import "fmt"

const (
	Product      = "FM Radio"
	Manufacturer = "fmradio-go"
	Version      = "0.3.0"
)

// String returns the product and version for a binary
func String(binary string) string {
	return fmt.Sprintf("%s %s (%s %s)", binary, Version, Product, Manufacturer)
}
