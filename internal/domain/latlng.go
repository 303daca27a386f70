package domain

import (
	"encoding/json"
	"math"
)

// LatLng is a WGS84 coordinate pair
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both components are finite numbers.
func (ll LatLng) Valid() bool {
	return isFinite(ll.Lat) && isFinite(ll.Lng)
}

// ParseLatLng extracts a coordinate pair from loosely typed input as stored
// in the location_coordinates column or sent by clients. Accepted shapes:
//
//	{"lat": 1, "lng": 2}
//	"{\"lat\": 1, \"lng\": 2}"          (JSON text)
//	{"coordinates": {"lat": 1, "lng": 2}}
//
// Anything else, including string-typed numbers, is rejected.
func ParseLatLng(input any) (LatLng, bool) {
	switch v := input.(type) {
	case nil:
		return LatLng{}, false
	case LatLng:
		return v, v.Valid()
	case *LatLng:
		if v == nil {
			return LatLng{}, false
		}
		return *v, v.Valid()
	case string:
		return parseLatLngJSON([]byte(v))
	case []byte:
		return parseLatLngJSON(v)
	case json.RawMessage:
		return parseLatLngJSON(v)
	case map[string]any:
		lat, latOK := v["lat"].(float64)
		lng, lngOK := v["lng"].(float64)
		if latOK && lngOK && isFinite(lat) && isFinite(lng) {
			return LatLng{Lat: lat, Lng: lng}, true
		}
		if inner, ok := v["coordinates"]; ok {
			return ParseLatLng(inner)
		}
	}
	return LatLng{}, false
}

func parseLatLngJSON(data []byte) (LatLng, bool) {
	if len(data) == 0 {
		return LatLng{}, false
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return LatLng{}, false
	}
	// A JSON string holding JSON is unwrapped once more.
	if s, ok := decoded.(string); ok {
		return parseLatLngJSON([]byte(s))
	}
	return ParseLatLng(decoded)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
