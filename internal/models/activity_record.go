package models

// ActivityRecord is the vendor-agnostic view of a single activity.
type ActivityRecord struct {
	Name           string  `json:"name"`
	StartTime      int64   `json:"start_time"` // vendor-native epoch: seconds for Garmin, milliseconds for Polar and Suunto
	Duration       int     `json:"duration"`   // seconds
	Distance       int     `json:"distance"`   // meters
	AverageSpeed   float64 `json:"average_speed"`
	AverageRate    int     `json:"average_rate"` // bpm
	StartLatitude  float64 `json:"start_latitude"`
	StartLongitude float64 `json:"start_longitude"`
	TotalAscent    float64 `json:"total_ascent"` // meters
}
