package weather

import (
	"fmt"
	"strings"
)

// Snapshot is one normalized weather observation for a location at fetch time.
type Snapshot struct {
	Location    string `json:"location"`
	Country     string `json:"country"`
	Temperature int    `json:"temperature"`
	Description string `json:"description"`
	Humidity    int    `json:"humidity"`
	WindSpeed   int    `json:"windSpeed"`
	Visibility  int    `json:"visibility"`
	Pressure    int    `json:"pressure"`
	Icon        string `json:"icon"`
}

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// String formats the pair the way it is logged and displayed.
func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lon)
}

// Query is a weather lookup by city name or by coordinates.
// Coordinates take precedence when both are set.
type Query struct {
	City        string       `json:"city,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// CityQuery builds a query for a city name.
func CityQuery(city string) Query {
	return Query{City: city}
}

// CoordinatesQuery builds a query for a coordinate pair.
func CoordinatesQuery(lat, lon float64) Query {
	return Query{Coordinates: &Coordinates{Lat: lat, Lon: lon}}
}

// Kind reports "coordinates", "city" or "" for an empty query.
func (q Query) Kind() string {
	switch {
	case q.Coordinates != nil:
		return "coordinates"
	case strings.TrimSpace(q.City) != "":
		return "city"
	default:
		return ""
	}
}

// Empty reports whether neither a city nor coordinates were supplied.
func (q Query) Empty() bool {
	return q.Kind() == ""
}

// Session is the advisory state restored at startup: the last searched query
// and the snapshot it produced. Either field may be empty.
type Session struct {
	LastSearchedQuery string    `json:"lastSearchedQuery"`
	LastSnapshot      *Snapshot `json:"lastSnapshot,omitempty"`
}
