package transport

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/blang/semver"
)

// firmwareVersionPattern extracts a dotted version number from the
// adapter's "ATI" identification string, e.g. "ELM327 v1.5" -> "1.5".
var firmwareVersionPattern = regexp.MustCompile(`v?(\d+(?:\.\d+){1,2})`)

// minSupportedFirmware is the oldest ELM327 clone firmware version this
// tool has been exercised against.
var minSupportedFirmware = semver.MustParse("1.0.0")

// ParseFirmwareVersion extracts and parses the version number out of an
// adapter's identification string. It pads missing components (e.g. "1.5"
// becomes "1.5.0") since ELM327 reports two-part versions but semver
// requires three.
func ParseFirmwareVersion(id string) (semver.Version, error) {
	m := firmwareVersionPattern.FindStringSubmatch(id)
	if m == nil {
		return semver.Version{}, fmt.Errorf("transport: no version number found in %q", id)
	}
	padded := m[1]
	for strings.Count(padded, ".") < 2 {
		padded += ".0"
	}
	return semver.Parse(padded)
}

// IsSupportedFirmware reports whether v is at least the minimum firmware
// version this tool has been tested against.
func IsSupportedFirmware(v semver.Version) bool {
	return v.GE(minSupportedFirmware)
}
