package models

import "time"

type PatientInfo struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	SubjectID string `json:"subjectId,omitempty"`
}

type SensorInfo struct {
	SerialNumber    string    `json:"serialNumber"`
	ActivationTime  time.Time `json:"activationTime"`
	ActivationEpoch int64     `json:"activationEpoch"`
	DeviceModelName string    `json:"deviceModelName"`
}

// GlucoseView is one unit rendering of the latest reading.
type GlucoseView struct {
	Timestamp      time.Time `json:"timestamp"`
	Value          float64   `json:"value"`
	TrendCode      int       `json:"trendCode"`
	TrendGlyph     string    `json:"trendGlyph"`
	SinceLastTrend *int      `json:"sinceLastTrend"`
	SinceLastGlyph *string   `json:"sinceLastGlyph"`
	ColorCode      *int      `json:"colorCode,omitempty"`
	ColorName      *string   `json:"colorName,omitempty"`
}

// Snapshot is the published read-only view. Values are never mutated after
// publication; a new cycle builds a fresh Snapshot.
type Snapshot struct {
	Version   uint64
	UpdatedAt time.Time
	Patient   *PatientInfo
	Sensor    *SensorInfo
	MgDl      *GlucoseView
	Mmol      *GlucoseView
}
