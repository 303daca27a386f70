// Package geo holds the pure location helpers used by the coordinate
// resolver: text normalization, sea-day detection, the table of known stops
// and midpoint interpolation.
package geo

import (
	"regexp"
	"strings"

	"github.com/pbaille/tripplan/internal/domain"
)

var (
	nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
	seaDay   = regexp.MustCompile(`(?i)sea\s*day`)
)

// Normalize lowercases s, collapses every run of characters outside
// [a-z0-9] into a single space and trims the result.
// "Falmouth, Jamaica!" becomes "falmouth jamaica".
func Normalize(s string) string {
	return strings.TrimSpace(nonAlnum.ReplaceAllString(strings.ToLower(s), " "))
}

// IsSeaDay reports whether location marks a day at sea, such as
// "Sea Day" or "Sea day (Caribbean)". Matching is case-insensitive.
func IsSeaDay(location string) bool {
	return seaDay.MatchString(location)
}

type knownStop struct {
	anyOf  []string // at least one must be present
	allOf  []string // every one must be present
	coords domain.LatLng
}

// Cruise ports that the public geocoder resolves poorly or not at all.
var knownStops = []knownStop{
	{anyOf: []string{"cococay", "coco cay"}, coords: domain.LatLng{Lat: 25.817425, Lng: -77.9385247}},
	{allOf: []string{"falmouth", "jamaica"}, coords: domain.LatLng{Lat: 18.4929078, Lng: -77.6574376}},
	{allOf: []string{"nassau", "bahamas"}, coords: domain.LatLng{Lat: 25.0782266, Lng: -77.3383438}},
}

func (k knownStop) matches(n string) bool {
	if len(k.anyOf) > 0 {
		found := false
		for _, s := range k.anyOf {
			if strings.Contains(n, s) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, s := range k.allOf {
		if !strings.Contains(n, s) {
			return false
		}
	}
	return true
}

// KnownCoords looks location up in the static table of known stops.
func KnownCoords(location string) (domain.LatLng, bool) {
	n := Normalize(location)
	if n == "" {
		return domain.LatLng{}, false
	}
	for _, k := range knownStops {
		if k.matches(n) {
			return k.coords, true
		}
	}
	return domain.LatLng{}, false
}

// Midpoint is the flat arithmetic mean of a and b. No great-circle
// correction is applied; hops between cruise ports are short.
func Midpoint(a, b domain.LatLng) domain.LatLng {
	return domain.LatLng{
		Lat: (a.Lat + b.Lat) / 2,
		Lng: (a.Lng + b.Lng) / 2,
	}
}
