package application

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Default receiving locations
const (
	DefaultPhotoStationLocation   = "PHOTO-STATION"
	DefaultCrossdockLocation      = "XDOCK-STAGE"
	DefaultReceivingStageLocation = "RECV-STAGE"
)

// ReceivingPolicy routes received LPNs to staging locations.
type ReceivingPolicy struct {
	PhotoStationLocation   string        `yaml:"photoStationLocation"`
	CrossdockLocation      string        `yaml:"crossdockLocation"`
	ReceivingStageLocation string        `yaml:"receivingStageLocation"`
	PhotoStations          []string      `yaml:"photoStations"`
	LockTTL                time.Duration `yaml:"lockTTL"`
}

// DefaultReceivingPolicy returns the routing used when no policy file is configured
func DefaultReceivingPolicy() *ReceivingPolicy {
	return &ReceivingPolicy{
		PhotoStationLocation:   DefaultPhotoStationLocation,
		CrossdockLocation:      DefaultCrossdockLocation,
		ReceivingStageLocation: DefaultReceivingStageLocation,
		LockTTL:                DefaultLockTTL,
	}
}

// LoadReceivingPolicy reads a policy file. An empty path yields the defaults.
func LoadReceivingPolicy(path string) (*ReceivingPolicy, error) {
	if path == "" {
		return DefaultReceivingPolicy(), nil
	}
	// #nosec G304 -- the policy path is provided by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read receiving policy: %w", err)
	}
	return ParseReceivingPolicy(data)
}

// ParseReceivingPolicy decodes a YAML policy strictly and fills unset fields
// with defaults.
func ParseReceivingPolicy(data []byte) (*ReceivingPolicy, error) {
	policy := DefaultReceivingPolicy()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(policy); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse receiving policy: %w", err)
	}

	defaults := DefaultReceivingPolicy()
	if policy.PhotoStationLocation == "" {
		policy.PhotoStationLocation = defaults.PhotoStationLocation
	}
	if policy.CrossdockLocation == "" {
		policy.CrossdockLocation = defaults.CrossdockLocation
	}
	if policy.ReceivingStageLocation == "" {
		policy.ReceivingStageLocation = defaults.ReceivingStageLocation
	}
	if policy.LockTTL <= 0 {
		policy.LockTTL = defaults.LockTTL
	}
	return policy, nil
}

// IsPhotoStation reports whether stationID captures golden samples.
func (p *ReceivingPolicy) IsPhotoStation(stationID string) bool {
	return stationID != "" && slices.Contains(p.PhotoStations, stationID)
}

// Route picks the staging location for a receipt: photo flow first, then
// crossdock, then the receiving stage.
func (p *ReceivingPolicy) Route(photo, crossdock bool) string {
	switch {
	case photo:
		return p.PhotoStationLocation
	case crossdock:
		return p.CrossdockLocation
	default:
		return p.ReceivingStageLocation
	}
}
