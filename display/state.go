// Package display holds the dashboard-facing projection of the latest reading
// and the container the rendering side reads it from.
package display

import (
	"fmt"
	"time"

	"github.com/luhtfiimanal/go-thermo-serial/reading"
)

// Placeholder is shown for every value while no reading is available.
const Placeholder = "--"

// State is what the dashboard renders. The zero value is not meaningful; use
// Unknown or FromReading.
type State struct {
	Temperature             string    `json:"temperature"`
	Humidity                string    `json:"humidity"`
	DewPoint                string    `json:"dew_point"`
	SaturationVaporPressure string    `json:"saturation_vapor_pressure"`
	VaporPressure           string    `json:"vapor_pressure"`
	AbsoluteHumidity        string    `json:"absolute_humidity"`
	MixingRatio             string    `json:"mixing_ratio"`
	Enthalpy                string    `json:"enthalpy"`
	TemperatureC            float64   `json:"temperature_c"`
	Raw                     string    `json:"raw"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// Unknown is the baseline published at start and whenever a read loop ends.
func Unknown() State {
	return State{
		Temperature:             Placeholder,
		Humidity:                Placeholder,
		DewPoint:                Placeholder,
		SaturationVaporPressure: Placeholder,
		VaporPressure:           Placeholder,
		AbsoluteHumidity:        Placeholder,
		MixingRatio:             Placeholder,
		Enthalpy:                Placeholder,
		UpdatedAt:               time.Now(),
	}
}

// FromReading formats r with two decimals and unit suffixes. line is the
// trimmed text r was parsed from.
func FromReading(r reading.Reading, line string) State {
	return State{
		Temperature:             format(r.Temperature, "°C"),
		Humidity:                format(r.RelativeHumidity, "%"),
		DewPoint:                format(r.DewPoint, "°C"),
		SaturationVaporPressure: format(r.SaturationVaporPressure, "hPa"),
		VaporPressure:           format(r.VaporPressure, "hPa"),
		AbsoluteHumidity:        format(r.AbsoluteHumidity, "g/m³"),
		MixingRatio:             format(r.MixingRatio, "g/kg"),
		Enthalpy:                format(r.Enthalpy, "kJ/kg"),
		TemperatureC:            r.Temperature,
		Raw:                     line,
		UpdatedAt:               time.Now(),
	}
}

func format(v float64, unit string) string {
	return fmt.Sprintf("%.2f %s", v, unit)
}

// Known reports whether s was built from a reading.
func (s State) Known() bool { return s.Raw != "" }

// Reading recovers the numeric reading behind a known state.
func (s State) Reading() (reading.Reading, bool) {
	if !s.Known() {
		return reading.Reading{}, false
	}
	r, err := reading.Parse(s.Raw)
	if err != nil {
		return reading.Reading{}, false
	}
	return r, true
}
