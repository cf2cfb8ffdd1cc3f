// Package fitexport writes activity records as FIT activity files.
package fitexport

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/tormoder/fit"

	"github.com/sstent/activity-lookup/internal/models"
)

const ContentType = "application/vnd.ant.fit"

// Encode writes rec as a FIT activity with a single session. Zero heart rate,
// ascent and (0,0) start position are left out as invalid fields.
// Speed is written as distance/duration in m/s since the record keeps vendor units.
func Encode(w io.Writer, rec models.ActivityRecord, start time.Time) error {
	header := fit.NewHeader(fit.V20, true)

	file, err := fit.NewFile(fit.FileTypeActivity, header)
	if err != nil {
		return fmt.Errorf("fit file: %w", err)
	}

	activity, err := file.Activity()
	if err != nil {
		return fmt.Errorf("fit activity: %w", err)
	}

	start = start.UTC().Truncate(time.Second)
	end := start.Add(time.Duration(rec.Duration) * time.Second)

	file.FileId.Manufacturer = fit.ManufacturerDevelopment
	file.FileId.TimeCreated = end

	session := fit.NewSessionMsg()
	session.Timestamp = end
	session.StartTime = start
	session.TotalElapsedTime = scaled32(float64(rec.Duration), 1000)
	session.TotalTimerTime = session.TotalElapsedTime
	session.TotalDistance = scaled32(float64(rec.Distance), 100)

	if rec.Duration > 0 {
		session.AvgSpeed = scaled16(float64(rec.Distance)/float64(rec.Duration), 1000)
	}
	if rec.AverageRate > 0 {
		session.AvgHeartRate = uint8(math.Min(float64(rec.AverageRate), math.MaxUint8-1))
	}
	if rec.TotalAscent > 0 {
		session.TotalAscent = scaled16(rec.TotalAscent, 1)
	}
	if rec.StartLatitude != 0 || rec.StartLongitude != 0 {
		session.StartPositionLat = fit.NewLatitudeDegrees(rec.StartLatitude)
		session.StartPositionLong = fit.NewLongitudeDegrees(rec.StartLongitude)
	}

	summary := fit.NewActivityMsg()
	summary.Timestamp = end
	summary.TotalTimerTime = session.TotalTimerTime
	summary.NumSessions = 1

	activity.Activity = summary
	activity.Sessions = append(activity.Sessions, session)

	if err := fit.Encode(w, file, binary.LittleEndian); err != nil {
		return fmt.Errorf("fit encode: %w", err)
	}
	return nil
}

// The all-ones value of each FIT integer type means "invalid", so clamp below it.
func scaled32(v, scale float64) uint32 {
	v *= scale
	if v <= 0 {
		return 0
	}
	return uint32(math.Min(v, math.MaxUint32-1))
}

func scaled16(v, scale float64) uint16 {
	v *= scale
	if v <= 0 {
		return 0
	}
	return uint16(math.Min(v, math.MaxUint16-1))
}
