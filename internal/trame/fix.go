package trame

import (
	"fmt"
	"strconv"

	"github.com/adrianmo/go-nmea"
)

// Quality describes the quality of a position fix.
type Quality int

const (
	QualityUnknown     Quality = -1
	QualityInvalid     Quality = 0
	QualityAutonomous  Quality = 1
	QualityDGPS        Quality = 2
	QualityRTK         Quality = 3
	QualityExtendedRTK Quality = 10
)

// qualityOf converts a fix quality code. RTK fixed (4) and
// RTK float (5) solutions map to RTK and DGPS.
func qualityOf(code int64) Quality {
	switch code {
	case 4:
		return QualityRTK
	case 5:
		return QualityDGPS
	case 0, 1, 2, 3, 10:
		return Quality(code)
	}

	return QualityUnknown
}

// String returns the name of the quality.
func (q Quality) String() string {
	switch q {
	case QualityInvalid:
		return "invalid"
	case QualityAutonomous:
		return "autonomous"
	case QualityDGPS:
		return "dgps"
	case QualityRTK:
		return "rtk"
	case QualityExtendedRTK:
		return "xrtk"
	}

	return "unknown"
}

// Fix holds a position decoded from a sentence.
type Fix struct {
	// Type holds the sentence type the fix was decoded from.
	Type string
	Time nmea.Time

	// Grid reports whether the position is in grid coordinates
	// (Easting, Northing) instead of decimal degrees (Latitude, Longitude).
	Grid bool

	Latitude  float64
	Longitude float64
	Easting   float64
	Northing  float64
	Altitude  float64

	Quality    Quality
	Satellites int64
}

// Position extracts the position of a GGA, RMC, LLQ or LLK sentence.
func Position(s nmea.Sentence) (Fix, bool) {
	switch m := s.(type) {
	case nmea.GGA:
		quality := QualityUnknown
		if code, err := strconv.ParseInt(m.FixQuality, 10, 64); err == nil {
			quality = qualityOf(code)
		}

		return Fix{
			Type:       nmea.TypeGGA,
			Time:       m.Time,
			Latitude:   m.Latitude,
			Longitude:  m.Longitude,
			Altitude:   m.Altitude,
			Quality:    quality,
			Satellites: m.NumSatellites,
		}, true

	case nmea.RMC:
		quality := QualityInvalid
		if m.Validity == nmea.ValidRMC {
			quality = QualityAutonomous
		}

		return Fix{
			Type:      nmea.TypeRMC,
			Time:      m.Time,
			Latitude:  m.Latitude,
			Longitude: m.Longitude,
			Quality:   quality,
		}, true

	case LLQ:
		return Fix{
			Type:       TypeLLQ,
			Time:       m.Time,
			Grid:       true,
			Easting:    m.Easting,
			Northing:   m.Northing,
			Altitude:   m.Height,
			Quality:    qualityOf(m.Quality),
			Satellites: m.NumSatellites,
		}, true

	case LLK:
		return Fix{
			Type:       TypeLLK,
			Time:       m.Time,
			Grid:       true,
			Easting:    m.Easting,
			Northing:   m.Northing,
			Altitude:   m.Height,
			Quality:    qualityOf(m.Quality),
			Satellites: m.NumSatellites,
		}, true
	}

	return Fix{}, false
}

// String formats the fix on one line.
func (f Fix) String() string {
	if f.Grid {
		return fmt.Sprintf("%s %s E=%.3f N=%.3f h=%.3f quality=%s sats=%d",
			f.Type, f.Time, f.Easting, f.Northing, f.Altitude, f.Quality, f.Satellites)
	}

	return fmt.Sprintf("%s %s lat=%.7f lon=%.7f h=%.3f quality=%s sats=%d",
		f.Type, f.Time, f.Latitude, f.Longitude, f.Altitude, f.Quality, f.Satellites)
}
