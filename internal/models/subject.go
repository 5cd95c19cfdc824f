package models

import (
	"fmt"
	"time"
)

type SensorDescriptor struct {
	SerialNumber           string `json:"serial_number"`
	ActivationEpochSeconds int64  `json:"activation_epoch"`
	DeviceTypeCode         int    `json:"device_type"`
}

type SubjectProfile struct {
	SubjectID string           `json:"subject_id"`
	FirstName string           `json:"first_name"`
	LastName  string           `json:"last_name"`
	Sensor    SensorDescriptor `json:"sensor"`
}

var deviceModels = map[int]string{
	0: "FreeStyle Libre",
	1: "FreeStyle Libre Pro",
	3: "FreeStyle Libre 2",
	4: "FreeStyle Libre 3",
	5: "FreeStyle Libre 2 Plus",
	6: "FreeStyle Libre 3 Plus",
}

// DeviceModelName maps an upstream device type code to a model name.
func DeviceModelName(code int) string {
	if name, ok := deviceModels[code]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (%d)", code)
}

func (s SensorDescriptor) ActivationTime(loc *time.Location) time.Time {
	return time.Unix(s.ActivationEpochSeconds, 0).In(loc)
}
