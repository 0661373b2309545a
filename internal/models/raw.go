package models

import "time"

// Source column names of the observation table
const (
	ColLastUpdated   = "last_updated"
	ColLatitude      = "latitude"
	ColLongitude     = "longitude"
	ColTemperature   = "temperature_celsius"
	ColHumidity      = "humidity"
	ColPressure      = "pressure_mb"
	ColWindKph       = "wind_kph"
	ColUVIndex       = "uv_index"
	ColPrecipitation = "precipitation"
	ColCountry       = "normalized_country"
	ColRegion        = "geographic_region"
	ColLocationName  = "location_name"
)

// RequiredColumns must be present in every source table
var RequiredColumns = []string{
	ColCountry,
	ColRegion,
	ColLatitude,
	ColLongitude,
	ColLastUpdated,
	ColTemperature,
}

// RawColumns is the full column order of the raw observation table
var RawColumns = []string{
	ColLastUpdated,
	ColLatitude,
	ColLongitude,
	ColTemperature,
	ColHumidity,
	ColPressure,
	ColWindKph,
	ColUVIndex,
	ColPrecipitation,
	ColCountry,
	ColRegion,
	ColLocationName,
}

// RawObservation is one unparsed row of the raw observation table as stored
// in PostgreSQL. NULL cells are nil pointers; values keep their source text
// so the loader applies the same normalization to every source.
type RawObservation struct {
	ID                 int64     `json:"id" db:"id"`
	SourceFile         string    `json:"source_file" db:"source_file"`
	LastUpdated        *string   `json:"last_updated,omitempty" db:"last_updated"`
	Latitude           *string   `json:"latitude,omitempty" db:"latitude"`
	Longitude          *string   `json:"longitude,omitempty" db:"longitude"`
	TemperatureCelsius *string   `json:"temperature_celsius,omitempty" db:"temperature_celsius"`
	Humidity           *string   `json:"humidity,omitempty" db:"humidity"`
	PressureMb         *string   `json:"pressure_mb,omitempty" db:"pressure_mb"`
	WindKph            *string   `json:"wind_kph,omitempty" db:"wind_kph"`
	UVIndex            *string   `json:"uv_index,omitempty" db:"uv_index"`
	Precipitation      *string   `json:"precipitation,omitempty" db:"precipitation"`
	Country            *string   `json:"normalized_country,omitempty" db:"normalized_country"`
	Region             *string   `json:"geographic_region,omitempty" db:"geographic_region"`
	LocationName       *string   `json:"location_name,omitempty" db:"location_name"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// Cell returns the text of the named column, or "" for NULL or unknown columns
func (r *RawObservation) Cell(column string) string {
	var p *string
	switch column {
	case ColLastUpdated:
		p = r.LastUpdated
	case ColLatitude:
		p = r.Latitude
	case ColLongitude:
		p = r.Longitude
	case ColTemperature:
		p = r.TemperatureCelsius
	case ColHumidity:
		p = r.Humidity
	case ColPressure:
		p = r.PressureMb
	case ColWindKph:
		p = r.WindKph
	case ColUVIndex:
		p = r.UVIndex
	case ColPrecipitation:
		p = r.Precipitation
	case ColCountry:
		p = r.Country
	case ColRegion:
		p = r.Region
	case ColLocationName:
		p = r.LocationName
	}
	if p == nil {
		return ""
	}
	return *p
}

// SetCell stores value into the named column; an empty value becomes NULL
func (r *RawObservation) SetCell(column, value string) {
	var p *string
	if value != "" {
		v := value
		p = &v
	}
	switch column {
	case ColLastUpdated:
		r.LastUpdated = p
	case ColLatitude:
		r.Latitude = p
	case ColLongitude:
		r.Longitude = p
	case ColTemperature:
		r.TemperatureCelsius = p
	case ColHumidity:
		r.Humidity = p
	case ColPressure:
		r.PressureMb = p
	case ColWindKph:
		r.WindKph = p
	case ColUVIndex:
		r.UVIndex = p
	case ColPrecipitation:
		r.Precipitation = p
	case ColCountry:
		r.Country = p
	case ColRegion:
		r.Region = p
	case ColLocationName:
		r.LocationName = p
	}
}
