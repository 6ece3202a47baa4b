// Package reading holds the psychrometric record a sensor board sends per line
// and the strict parser for its JSON wire form.
package reading

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"periph.io/x/conn/v3/physic"
)

var (
	// ErrMalformed wraps JSON syntax and type errors.
	ErrMalformed = errors.New("malformed reading")
	// ErrMissingField is returned when one of the eight keys is absent or null.
	ErrMissingField = errors.New("missing field")
	// ErrInvalidUTF8 is returned for lines that are not valid UTF-8 text.
	ErrInvalidUTF8 = errors.New("invalid utf-8")
)

// Reading is one complete set of measurements. Only Parse produces values
// from the wire, so a Reading never has missing fields.
type Reading struct {
	Temperature             float64 `json:"T"`  // °C
	RelativeHumidity        float64 `json:"RH"` // %
	DewPoint                float64 `json:"Td"` // °C
	SaturationVaporPressure float64 `json:"ES"` // hPa
	VaporPressure           float64 `json:"E"`  // hPa
	AbsoluteHumidity        float64 `json:"AH"` // g/m³
	MixingRatio             float64 `json:"W"`  // g/kg
	Enthalpy                float64 `json:"H"`  // kJ/kg
}

// Parse decodes one trimmed line. Keys match exactly; any other key,
// including a case variant of a known one, is ignored.
func Parse(line string) (Reading, error) {
	if !utf8.ValidString(line) {
		return Reading{}, ErrInvalidUTF8
	}
	dec := json.NewDecoder(strings.NewReader(line))
	var obj map[string]json.RawMessage
	if err := dec.Decode(&obj); err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); err != io.EOF {
		return Reading{}, fmt.Errorf("%w: trailing data after object", ErrMalformed)
	}

	var r Reading
	fields := []struct {
		key string
		dst *float64
	}{
		{"T", &r.Temperature},
		{"RH", &r.RelativeHumidity},
		{"Td", &r.DewPoint},
		{"ES", &r.SaturationVaporPressure},
		{"E", &r.VaporPressure},
		{"AH", &r.AbsoluteHumidity},
		{"W", &r.MixingRatio},
		{"H", &r.Enthalpy},
	}
	for _, f := range fields {
		raw, ok := obj[f.key]
		if !ok || string(raw) == "null" {
			return Reading{}, fmt.Errorf("%w: %s", ErrMissingField, f.key)
		}
		if err := json.Unmarshal(raw, f.dst); err != nil {
			return Reading{}, fmt.Errorf("%w: %s: %v", ErrMalformed, f.key, err)
		}
	}
	return r, nil
}

// Env returns temperature and relative humidity as periph physical quantities.
// Pressure is left zero: the board reports vapour pressures, not air pressure.
func (r Reading) Env() physic.Env {
	return physic.Env{
		Temperature: physic.ZeroCelsius + physic.Temperature(r.Temperature*float64(physic.Kelvin)),
		Humidity:    physic.RelativeHumidity(r.RelativeHumidity * float64(physic.PercentRH)),
	}
}
