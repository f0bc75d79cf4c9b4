package rfid

import (
	"regexp"
	"strings"
)

// ScanKind is the shape of a raw scanner input.
type ScanKind int

const (
	ScanSKU ScanKind = iota
	ScanLPN
	ScanRFID
)

func (k ScanKind) String() string {
	switch k {
	case ScanLPN:
		return "LPN"
	case ScanRFID:
		return "RFID"
	default:
		return "SKU"
	}
}

var (
	epcPattern = regexp.MustCompile(`^[0-9A-Fa-f]{24}$`)
	lpnPattern = regexp.MustCompile(`^LPN[0-9]{16}$`)
)

// Classify decides what a raw scan is: 24 hex characters are an RFID EPC,
// "LPN" followed by 16 digits is a license plate, anything else is a SKU.
func Classify(raw string) ScanKind {
	s := strings.TrimSpace(raw)
	switch {
	case epcPattern.MatchString(s):
		return ScanRFID
	case lpnPattern.MatchString(s):
		return ScanLPN
	default:
		return ScanSKU
	}
}
