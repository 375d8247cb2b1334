package enums

import "fmt"

// License is the coarse entitlement flag gating extension features.
type License string

const (
	LicenseNone    License = "none"
	LicenseTrial   License = "trial"
	LicensePremium License = "premium"
)

var validLicenses = []License{
	LicenseNone,
	LicenseTrial,
	LicensePremium,
}

// String implements fmt.Stringer.
func (l License) String() string {
	return string(l)
}

// IsValid reports whether the value is known.
func (l License) IsValid() bool {
	for _, candidate := range validLicenses {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLicense converts raw input into a License.
func ParseLicense(value string) (License, error) {
	for _, candidate := range validLicenses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid license %q", value)
}
