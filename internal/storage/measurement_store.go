package storage

import (
	"cgmd/internal/models"
	"cgmd/internal/providers"
	"cgmd/internal/structures"
	"errors"
	"fmt"
	"time"
)

// ErrNotToday is returned when a reading outside today's calendar date is
// offered to the log.
var ErrNotToday = errors.New("reading is not from today")

type MeasurementStoreInterface interface {
	Today() []models.Reading
	RecordReading(reading models.Reading) error
}

// MeasurementStore keeps the durable log of today's readings. It assumes a
// single writer; the poll scheduler guarantees that.
type MeasurementStore struct {
	files  *FileManager
	path   string
	loc    *time.Location
	logger providers.Logger
	now    func() time.Time
}

func NewMeasurementStore(conf *structures.Config, files *FileManager, logger providers.Logger) MeasurementStoreInterface {
	return &MeasurementStore{
		files:  files,
		path:   conf.Persistence.ReadingsFile,
		loc:    conf.Location(),
		logger: logger,
		now:    time.Now,
	}
}

// load returns the persisted readings. A corrupt log counts as empty; any
// other read failure is returned so the file is never overwritten blindly.
func (m *MeasurementStore) load() ([]models.Reading, error) {
	var log models.MeasurementLog
	_, err := m.files.LoadFromFile(m.path, &log)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			m.logger.Warnf(providers.TypeApp, "Measurement log reset: %s", err)
			return nil, nil
		}
		return nil, err
	}
	return log.Readings, nil
}

// retain drops every reading not on today's calendar date.
func (m *MeasurementStore) retain(readings []models.Reading) []models.Reading {
	now := m.now()
	kept := make([]models.Reading, 0, len(readings)+1)
	for _, r := range readings {
		if r.SameDay(now, m.loc) {
			kept = append(kept, r)
		}
	}
	return kept
}

// Today returns today's readings in arrival order.
func (m *MeasurementStore) Today() []models.Reading {
	readings, err := m.load()
	if err != nil {
		m.logger.Errorf(providers.TypeApp, "Measurement log unreadable: %s", err)
		return nil
	}
	return m.retain(readings)
}

// RecordReading purges entries from earlier days, appends reading and
// rewrites the whole log. Readings not from today are refused.
func (m *MeasurementStore) RecordReading(reading models.Reading) error {
	if !reading.SameDay(m.now(), m.loc) {
		return fmt.Errorf("%w: %s", ErrNotToday, reading.Timestamp.Format(time.RFC3339))
	}
	loaded, err := m.load()
	if err != nil {
		return fmt.Errorf("reading measurement log: %w", err)
	}
	readings := m.retain(loaded)
	kept := len(readings)
	readings = append(readings, reading)

	err = m.files.SaveToFile(m.path, &models.MeasurementLog{Readings: readings})
	if err != nil {
		return err
	}
	m.logger.Debugf(providers.TypeApp, "Recorded reading %d mg/dL at %s (%d kept today)", reading.ValueMgPerDl, reading.Timestamp.Format(time.RFC3339), kept+1)
	return nil
}
