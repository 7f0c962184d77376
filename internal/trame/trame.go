// Package trame decodes the NMEA sentences sent by GNSS accessories.
package trame

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/ftag"
	"github.com/adrianmo/go-nmea"

	"github.com/blocinbloc/native-bluetooth/api/errorkinds"
)

// Parse decodes an NMEA sentence of the form "$GPGGA,...*hh".
//
// Standard sentences are returned as their go-nmea types (nmea.GGA, nmea.RMC,
// nmea.GSA, nmea.GST, ...), Leica sentences as LLQ or LLK. A sentence that
// is well formed but of an unknown type returns ErrUnsupportedTrame.
func Parse(line string) (nmea.Sentence, error) {
	line = strings.TrimSpace(line)
	if err := checkFrame(line); err != nil {
		return nil, err
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		var unsupported *nmea.NotSupportedError
		if errors.As(err, &unsupported) {
			return nil, fault.Wrap(errorkinds.ErrUnsupportedTrame,
				fctx.With(context.Background(), "trame", line, "prefix", unsupported.Prefix),
				ftag.With(ftag.InvalidArgument),
			)
		}

		return nil, malformed(line, err.Error())
	}

	return sentence, nil
}

// Verify reports whether a line is a well-formed sentence with a valid
// checksum. Sentences of unknown types are accepted.
func Verify(line string) bool {
	_, err := Parse(line)

	return err == nil || errors.Is(err, errorkinds.ErrUnsupportedTrame)
}

// checkFrame validates the delimiters and the checksum of a sentence.
func checkFrame(line string) error {
	if len(line) < 2 || (line[0] != '$' && line[0] != '!') {
		return malformed(line, "missing start delimiter")
	}

	star := strings.LastIndexByte(line, '*')
	if star < 0 {
		return malformed(line, "missing checksum")
	}

	sum := line[star+1:]
	if _, err := strconv.ParseUint(sum, 16, 8); err != nil || len(sum) != 2 {
		return malformed(line, "invalid checksum field")
	}

	if want := nmea.Checksum(line[1:star]); !strings.EqualFold(want, sum) {
		return fault.Wrap(errorkinds.ErrChecksumMismatch,
			fctx.With(context.Background(), "trame", line, "checksum", want),
			ftag.With(ftag.InvalidArgument),
		)
	}

	return nil
}

func malformed(line, reason string) error {
	return fault.Wrap(errorkinds.ErrMalformedTrame,
		fctx.With(context.Background(), "trame", line, "reason", reason),
		ftag.With(ftag.InvalidArgument),
	)
}
