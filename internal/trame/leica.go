package trame

import "github.com/adrianmo/go-nmea"

// Leica proprietary sentence types.
const (
	TypeLLQ = "LLQ"
	TypeLLK = "LLK"
)

// LLQ is the Leica local position and quality sentence.
// Coordinates are grid coordinates, not latitude and longitude.
type LLQ struct {
	nmea.BaseSentence
	Time              nmea.Time
	Date              string // mmddyy
	Easting           float64
	EastingUnit       string
	Northing          float64
	NorthingUnit      string
	Quality           int64
	NumSatellites     int64
	CoordinateQuality float64
	Height            float64
	HeightUnit        string
}

// LLK is the Leica local position and GDOP sentence.
type LLK struct {
	nmea.BaseSentence
	Time          nmea.Time
	Date          string // mmddyy
	Easting       float64
	EastingUnit   string
	Northing      float64
	NorthingUnit  string
	Quality       int64
	NumSatellites int64
	GDOP          float64
	Height        float64
	HeightUnit    string
}

func init() {
	for typ, parser := range map[string]nmea.ParserFunc{
		TypeLLQ: parseLLQ,
		TypeLLK: parseLLK,
	} {
		if err := nmea.RegisterParser(typ, parser); err != nil {
			panic(err)
		}
	}
}

func parseLLQ(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	p.AssertType(TypeLLQ)

	return LLQ{
		BaseSentence:      s,
		Time:              p.Time(0, "time"),
		Date:              p.String(1, "date"),
		Easting:           p.Float64(2, "easting"),
		EastingUnit:       p.String(3, "easting unit"),
		Northing:          p.Float64(4, "northing"),
		NorthingUnit:      p.String(5, "northing unit"),
		Quality:           p.Int64(6, "quality"),
		NumSatellites:     p.Int64(7, "number of satellites"),
		CoordinateQuality: p.Float64(8, "coordinate quality"),
		Height:            p.Float64(9, "height"),
		HeightUnit:        p.String(10, "height unit"),
	}, p.Err()
}

func parseLLK(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	p.AssertType(TypeLLK)

	return LLK{
		BaseSentence:  s,
		Time:          p.Time(0, "time"),
		Date:          p.String(1, "date"),
		Easting:       p.Float64(2, "easting"),
		EastingUnit:   p.String(3, "easting unit"),
		Northing:      p.Float64(4, "northing"),
		NorthingUnit:  p.String(5, "northing unit"),
		Quality:       p.Int64(6, "quality"),
		NumSatellites: p.Int64(7, "number of satellites"),
		GDOP:          p.Float64(8, "gdop"),
		Height:        p.Float64(9, "height"),
		HeightUnit:    p.String(10, "height unit"),
	}, p.Err()
}
