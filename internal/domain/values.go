package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// UnknownSKU is recorded when a receipt cannot resolve its product.
const UnknownSKU = "UNKNOWN"

// UnknownLocation is the cycle-count target when no candidate location is known.
const UnknownLocation = "UNKNOWN"

var lpnIDPattern = regexp.MustCompile(`^LPN[0-9]{16}$`)

// LpnIDFormat renders a sequence number as an LPN id.
const LpnIDFormat = "LPN%016d"

// FormatLpnID renders seq as an LPN id.
func FormatLpnID(seq int64) string {
	return fmt.Sprintf(LpnIDFormat, seq)
}

// IsLpnID reports whether s has the LPN id shape.
func IsLpnID(s string) bool {
	return lpnIDPattern.MatchString(s)
}

// ValidateLpnID accepts generated ids as well as legacy codes printed on
// existing plates, but never blank or padded values.
func ValidateLpnID(id string) error {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(id) != id {
		return fmt.Errorf("%w: lpn id %q", ErrInvalidValue, id)
	}
	return nil
}

func ValidateTenantID(tenantID string) error {
	if strings.TrimSpace(tenantID) == "" {
		return fmt.Errorf("%w: tenant id is required", ErrInvalidValue)
	}
	return nil
}

func ValidateSKU(sku string) error {
	if strings.TrimSpace(sku) == "" {
		return fmt.Errorf("%w: sku is required", ErrInvalidValue)
	}
	return nil
}

func ValidateLocationCode(code string) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("%w: location code is required", ErrInvalidValue)
	}
	return nil
}

// ValidateQuantity rejects negative quantities.
func ValidateQuantity(q int) error {
	if q < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, q)
	}
	return nil
}

// PhysicalAttributes are the measured properties of a handling unit
type PhysicalAttributes struct {
	WeightKg float64 `json:"weightKg,omitempty"`
	LengthCm float64 `json:"lengthCm,omitempty"`
	WidthCm  float64 `json:"widthCm,omitempty"`
	HeightCm float64 `json:"heightCm,omitempty"`
}

// IsZero reports whether no attribute is set.
func (a PhysicalAttributes) IsZero() bool {
	return a == PhysicalAttributes{}
}

// ResolveAttributes picks the first non-empty source: explicit override,
// then product master data, then empty.
func ResolveAttributes(override *PhysicalAttributes, master PhysicalAttributes) PhysicalAttributes {
	if override != nil && !override.IsZero() {
		return *override
	}
	return master
}
