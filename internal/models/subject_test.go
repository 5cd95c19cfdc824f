package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeviceModelName_Known(t *testing.T) {
	assert.Equal(t, "FreeStyle Libre 3", DeviceModelName(4))
	assert.Equal(t, "FreeStyle Libre 2", DeviceModelName(3))
}

func TestDeviceModelName_UnknownCarriesCode(t *testing.T) {
	assert.Equal(t, "Unknown (42)", DeviceModelName(42))
}

func TestSensorDescriptor_ActivationTime(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}
	s := SensorDescriptor{ActivationEpochSeconds: 1700000000}
	at := s.ActivationTime(loc)
	assert.Equal(t, int64(1700000000), at.Unix())
	assert.Equal(t, loc, at.Location())
}
