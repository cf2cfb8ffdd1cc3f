// internal/parser/detector.go
package parser

import (
	"strings"
	"time"
)

type Vendor string

const (
	VendorGarmin  Vendor = "garmin"
	VendorPolar   Vendor = "polar"
	VendorSuunto  Vendor = "suunto"
	VendorUnknown Vendor = "unknown"
)

// Checked in this order; the first hit wins.
var knownVendors = []Vendor{VendorGarmin, VendorPolar, VendorSuunto}

// DetectVendor classifies an activity URL by case-sensitive substring.
// A vendor name found only at index 0 is not a match, so "garmin.com/x" is unknown
// while "https://connect.garmin.com/x" is Garmin.
func DetectVendor(activityURL string) Vendor {
	for _, v := range knownVendors {
		if strings.Index(activityURL, string(v)) > 0 {
			return v
		}
	}
	return VendorUnknown
}

// StartTime converts a record's vendor-native start_time into an absolute time.
func (v Vendor) StartTime(raw int64) time.Time {
	if v == VendorGarmin {
		return time.Unix(raw, 0).UTC()
	}
	return time.UnixMilli(raw).UTC()
}
