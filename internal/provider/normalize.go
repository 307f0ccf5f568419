package provider

import (
	"errors"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/neexbeast/skycast/internal/weather"
)

const (
	msToKmh           = 3.6
	defaultVisibility = 10
)

// ErrMalformedPayload marks a provider response that is not valid JSON or is
// missing a required field.
var ErrMalformedPayload = errors.New("malformed provider payload")

// Normalize converts an OpenWeatherMap observation into a Snapshot. It fails
// without a partial result when a required field is missing or out of range.
// An empty name is valid: coordinates over open sea resolve to no place.
func Normalize(obs *Observation) (weather.Snapshot, error) {
	if obs == nil || obs.Main == nil || obs.Wind == nil || len(obs.Weather) == 0 || obs.Name == nil {
		return weather.Snapshot{}, ErrMalformedPayload
	}
	if obs.Main.Humidity < 0 || obs.Main.Pressure < 0 || obs.Wind.Speed < 0 {
		return weather.Snapshot{}, ErrMalformedPayload
	}
	if obs.Visibility != nil && *obs.Visibility < 0 {
		return weather.Snapshot{}, ErrMalformedPayload
	}

	return weather.Snapshot{
		Location:    *obs.Name,
		Country:     obs.Sys.Country,
		Temperature: roundHalfUp(obs.Main.Temp),
		Description: Capitalize(obs.Weather[0].Description),
		Humidity:    roundHalfUp(obs.Main.Humidity),
		WindSpeed:   WindSpeedKmh(obs.Wind.Speed),
		Visibility:  VisibilityKm(obs.Visibility),
		Pressure:    roundHalfUp(obs.Main.Pressure),
		Icon:        obs.Weather[0].Icon,
	}, nil
}

// Capitalize upper-cases the first letter of every whitespace-separated word
// and joins the words with single spaces. Applying it twice is a no-op.
func Capitalize(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// WindSpeedKmh converts m/s to whole km/h.
func WindSpeedKmh(ms float64) int {
	return roundHalfUp(ms * msToKmh)
}

// VisibilityKm converts metres to whole kilometres. Missing or zero
// visibility reports the provider's 10 km ceiling.
func VisibilityKm(metres *float64) int {
	if metres == nil || *metres == 0 {
		return defaultVisibility
	}
	return roundHalfUp(*metres / 1000)
}

// roundHalfUp rounds .5 toward positive infinity, so -2.5 becomes -2.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
