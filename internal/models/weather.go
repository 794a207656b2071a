package models

import "time"

// WeatherObservation is a normalised forecast in imperial units (°F, mph, inches).
type WeatherObservation struct {
	Venue        string    `json:"venue"`
	Date         time.Time `json:"date"`
	MaxTempF     float64   `json:"max_temp_f"`
	MaxWindMPH   float64   `json:"max_wind_mph" validate:"gte=0"`
	PrecipInches float64   `json:"precip_inches" validate:"gte=0"`
}
