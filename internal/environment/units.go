package environment

import (
	"fmt"
	"strings"
	"time"

	"github.com/yourusername/gridcast/internal/models"
)

// Unit systems a weather feed may report in.
const (
	UnitsImperial = "imperial" // °F, mph, inches
	UnitsMetric   = "metric"   // °C, km/h, mm
	UnitsSI       = "si"       // °C, m/s, mm
)

const (
	kmPerMile   = 1.609344
	mmPerInch   = 25.4
	metersPerMi = 1609.344
)

// RawWeather is a forecast exactly as the feed reported it.
type RawWeather struct {
	Venue   string
	Date    time.Time
	MaxTemp float64
	MaxWind float64
	Precip  float64
	Units   string
}

// CelsiusToFahrenheit converts a temperature.
func CelsiusToFahrenheit(c float64) float64 { return c*9/5 + 32 }

// FahrenheitToCelsius converts a temperature.
func FahrenheitToCelsius(f float64) float64 { return (f - 32) * 5 / 9 }

// KPHToMPH converts a speed.
func KPHToMPH(kph float64) float64 { return kph / kmPerMile }

// MPHToKPH converts a speed.
func MPHToKPH(mph float64) float64 { return mph * kmPerMile }

// MPSToMPH converts a speed.
func MPSToMPH(mps float64) float64 { return mps * 3600 / metersPerMi }

// MPHToMPS converts a speed.
func MPHToMPS(mph float64) float64 { return mph * metersPerMi / 3600 }

// MMToInches converts a depth.
func MMToInches(mm float64) float64 { return mm / mmPerInch }

// InchesToMM converts a depth.
func InchesToMM(in float64) float64 { return in * mmPerInch }

// Normalize converts a raw forecast into °F, mph and inches. An empty unit marker
// is rejected rather than guessed.
func Normalize(raw RawWeather) (models.WeatherObservation, error) {
	obs := models.WeatherObservation{Venue: raw.Venue, Date: raw.Date}
	switch strings.ToLower(strings.TrimSpace(raw.Units)) {
	case UnitsImperial:
		obs.MaxTempF = raw.MaxTemp
		obs.MaxWindMPH = raw.MaxWind
		obs.PrecipInches = raw.Precip
	case UnitsMetric:
		obs.MaxTempF = CelsiusToFahrenheit(raw.MaxTemp)
		obs.MaxWindMPH = KPHToMPH(raw.MaxWind)
		obs.PrecipInches = MMToInches(raw.Precip)
	case UnitsSI:
		obs.MaxTempF = CelsiusToFahrenheit(raw.MaxTemp)
		obs.MaxWindMPH = MPSToMPH(raw.MaxWind)
		obs.PrecipInches = MMToInches(raw.Precip)
	default:
		return obs, fmt.Errorf("unknown weather units %q for %s", raw.Units, raw.Venue)
	}
	if obs.MaxWindMPH < 0 || obs.PrecipInches < 0 {
		return obs, fmt.Errorf("negative wind or precipitation for %s", raw.Venue)
	}
	return obs, nil
}

// Denormalize expresses an observation in the given unit system.
func Denormalize(obs models.WeatherObservation, units string) (RawWeather, error) {
	raw := RawWeather{Venue: obs.Venue, Date: obs.Date, Units: units}
	switch units {
	case UnitsImperial:
		raw.MaxTemp, raw.MaxWind, raw.Precip = obs.MaxTempF, obs.MaxWindMPH, obs.PrecipInches
	case UnitsMetric:
		raw.MaxTemp, raw.MaxWind, raw.Precip = FahrenheitToCelsius(obs.MaxTempF), MPHToKPH(obs.MaxWindMPH), InchesToMM(obs.PrecipInches)
	case UnitsSI:
		raw.MaxTemp, raw.MaxWind, raw.Precip = FahrenheitToCelsius(obs.MaxTempF), MPHToMPS(obs.MaxWindMPH), InchesToMM(obs.PrecipInches)
	default:
		return raw, fmt.Errorf("unknown weather units %q", units)
	}
	return raw, nil
}
