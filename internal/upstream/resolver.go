package upstream

import (
	"cgmd/internal/models"
	"cgmd/internal/providers"
	"cgmd/internal/storage"
	"context"
	"fmt"
)

type connectionSensor struct {
	DeviceID     string `json:"deviceId"`
	SerialNumber string `json:"sn"`
	Activated    int64  `json:"a"`
	ProductType  int    `json:"pt"`
}

type connection struct {
	PatientID string            `json:"patientId"`
	FirstName string            `json:"firstName"`
	LastName  string            `json:"lastName"`
	Sensor    *connectionSensor `json:"sensor"`
}

// Resolver finds the followed subject. The first connection wins and is cached
// in the session store, so later cycles make no connection-list call.
type Resolver struct {
	client *Client
	store  storage.SessionStoreInterface
	logger providers.Logger
}

func NewResolver(client *Client, store storage.SessionStoreInterface, logger providers.Logger) *Resolver {
	return &Resolver{client: client, store: store, logger: logger}
}

func (r *Resolver) ResolveSubject(ctx context.Context, session *models.Session) (*models.SubjectProfile, error) {
	if cached := r.store.LoadSubject(); cached != nil && cached.SubjectID != "" {
		return cached, nil
	}

	env, err := r.client.get(ctx, "connections", "/llu/connections", session, nil)
	if err != nil {
		return nil, err
	}
	if env.Status != StatusOK {
		return nil, &StatusError{Endpoint: "connections", Status: env.Status}
	}

	var conns []connection
	if err := env.decode(&conns); err != nil {
		return nil, fmt.Errorf("decoding connections: %w", err)
	}
	if len(conns) == 0 {
		return nil, ErrNoConnections
	}
	if len(conns) > 1 {
		r.logger.Warnf(providers.TypeUpstream, "Account follows %d subjects, using the first", len(conns))
	}

	c := conns[0]
	if c.PatientID == "" {
		return nil, fmt.Errorf("connection without subject id")
	}
	profile := &models.SubjectProfile{
		SubjectID: c.PatientID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
	}
	if c.Sensor != nil {
		profile.Sensor = models.SensorDescriptor{
			SerialNumber:           c.Sensor.SerialNumber,
			ActivationEpochSeconds: c.Sensor.Activated,
			DeviceTypeCode:         c.Sensor.ProductType,
		}
	}

	if err := r.store.SaveSubject(profile); err != nil {
		r.logger.Errorf(providers.TypeUpstream, "Subject resolved but not persisted: %s", err)
	}
	r.logger.Infof(providers.TypeUpstream, "Following subject %s (sensor %s)", profile.SubjectID, profile.Sensor.SerialNumber)
	return profile, nil
}
