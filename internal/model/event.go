package model

// Point is a GeoJSON point geometry. Coordinates are [longitude, latitude].
type Point struct {
	Type        string     `json:"type" yaml:"type"`
	Coordinates [2]float64 `json:"coordinates" yaml:"coordinates"`
}

// NewPoint builds a GeoJSON point from latitude and longitude.
func NewPoint(lat, lon float64) Point {
	return Point{Type: "Point", Coordinates: [2]float64{lon, lat}}
}

// Lon returns the point's longitude.
func (p Point) Lon() float64 { return p.Coordinates[0] }

// Lat returns the point's latitude.
func (p Point) Lat() float64 { return p.Coordinates[1] }

// EventProperties holds the descriptive fields of a parkrun event feature.
type EventProperties struct {
	EventName              string  `json:"eventname" yaml:"eventname"`
	EventLongName          string  `json:"EventLongName" yaml:"EventLongName"`
	EventShortName         string  `json:"EventShortName" yaml:"EventShortName"`
	LocalisedEventLongName *string `json:"LocalisedEventLongName" yaml:"LocalisedEventLongName"`
	CountryCode            int     `json:"countrycode" yaml:"countrycode"`
	SeriesID               int     `json:"seriesid" yaml:"seriesid"`
	EventLocation          string  `json:"EventLocation" yaml:"EventLocation"`
}

// ParkrunEvent is a single event feature from the parkrun events document.
type ParkrunEvent struct {
	ID         int             `json:"id" yaml:"id"`
	Type       string          `json:"type" yaml:"type"`
	Geometry   Point           `json:"geometry" yaml:"geometry"`
	Properties EventProperties `json:"properties" yaml:"properties"`
}

// EventCollection is the FeatureCollection nested in the events document.
type EventCollection struct {
	Type     string         `json:"type" yaml:"type"`
	Features []ParkrunEvent `json:"features" yaml:"features"`
}

// ParkrunEventsData is the top-level shape of events.json.
type ParkrunEventsData struct {
	Events EventCollection `json:"events" yaml:"events"`
}

// StopProperties holds the fields of a transport stop feature.
type StopProperties struct {
	StopID   string `json:"STOP_ID" yaml:"STOP_ID"`
	StopName string `json:"STOP_NAME" yaml:"STOP_NAME"`
	Mode     string `json:"MODE" yaml:"MODE"`
}

// TransportStop is a single public transport stop feature.
type TransportStop struct {
	Type       string         `json:"type" yaml:"type"`
	Geometry   Point          `json:"geometry" yaml:"geometry"`
	Properties StopProperties `json:"properties" yaml:"properties"`
}

// TransportStopsData is the stops GeoJSON FeatureCollection.
type TransportStopsData struct {
	Type     string          `json:"type" yaml:"type"`
	Name     string          `json:"name,omitempty" yaml:"name,omitempty"`
	Features []TransportStop `json:"features" yaml:"features"`
}

// NearestStop relates an event to its closest stop. Stop is a reference
// into the stop slice the attachment was computed from.
type NearestStop struct {
	Stop     *TransportStop `json:"stop" yaml:"stop"`
	Distance float64        `json:"distance" yaml:"distance"` // meters
}

// EventWithNearestStop is an event joined with its nearest stop, if one lies
// within the active radius.
type EventWithNearestStop struct {
	ParkrunEvent `yaml:",inline"`

	NearestStop *NearestStop `json:"nearestStop,omitempty" yaml:"nearestStop,omitempty"`
}

// HasNearestStop reports whether the event carries an attachment.
func (e EventWithNearestStop) HasNearestStop() bool {
	return e.NearestStop != nil
}

// Location is a user-supplied position. A nil *Location means no location.
type Location struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}
