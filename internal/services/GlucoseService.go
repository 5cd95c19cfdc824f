package services

import (
	"cgmd/internal/models"
	"cgmd/internal/providers"
	"cgmd/internal/snapshot"
	"cgmd/internal/storage"
	"cgmd/internal/structures"
	"cgmd/internal/trend"
	"cgmd/internal/upstream"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

type AuthenticatorInterface interface {
	EstablishSession(ctx context.Context, creds models.Credentials) (*models.Session, error)
	Resume(session *models.Session)
}

type SubjectResolverInterface interface {
	ResolveSubject(ctx context.Context, session *models.Session) (*models.SubjectProfile, error)
}

type ReadingFetcherInterface interface {
	FetchLatest(ctx context.Context, session *models.Session, subject *models.SubjectProfile) (*models.Reading, error)
}

// Outcome describes one poll cycle. Reading is the reading the upstream
// reported, if any; Fresh is set only when it was new and got recorded.
type Outcome struct {
	Reading *models.Reading
	Fresh   bool
}

type SessionInfo struct {
	Established bool
	Region      string
	ExpiresAt   time.Time
}

type GlucoseServiceInterface interface {
	Poll(ctx context.Context) (Outcome, error)
	Restore()
	Session() SessionInfo
}

type GlucoseService struct {
	conf         *structures.Config
	logger       providers.Logger
	credentials  providers.CredentialsProviderInterface
	auth         AuthenticatorInterface
	resolver     SubjectResolverInterface
	fetcher      ReadingFetcherInterface
	sessions     storage.SessionStoreInterface
	measurements storage.MeasurementStoreInterface
	publisher    snapshot.PublisherInterface
	now          func() time.Time

	mu      sync.Mutex
	session *models.Session
	subject *models.SubjectProfile
	info    atomic.Pointer[SessionInfo]
	// lastRecorded is the timestamp of the newest reading written to the log.
	// It survives the midnight purge of the log itself.
	lastRecorded time.Time
}

// Poll runs one cycle: session, subject, latest reading, record, publish.
// Calls are serialized; the log has a single writer.
func (s *GlucoseService) Poll(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.ensureSession(ctx)
	if err != nil {
		return Outcome{}, err
	}

	subject, err := s.ensureSubject(ctx, session)
	if errors.Is(err, upstream.ErrNoConnections) {
		s.logger.Warnf(providers.TypeScheduler, "Account follows no subject yet, skipping cycle")
		return Outcome{}, nil
	}
	if err != nil {
		return Outcome{}, s.checkRejected(err)
	}

	reading, err := s.fetcher.FetchLatest(ctx, session, subject)
	if err != nil {
		return Outcome{}, s.checkRejected(err)
	}
	if reading == nil {
		return Outcome{}, nil
	}

	prev := lastOf(s.measurements.Today())
	if !s.isNew(*reading, prev) {
		return Outcome{Reading: reading}, nil
	}

	if err := s.measurements.RecordReading(*reading); err != nil {
		return Outcome{}, fmt.Errorf("recording reading: %w", err)
	}
	s.lastRecorded = reading.Timestamp

	sinceLast := trend.SinceLast(prev, *reading, s.conf.Polling.FreshnessThreshold)
	s.publisher.Publish(s.buildSnapshot(subject, reading, sinceLast))
	s.logger.Infof(providers.TypeScheduler, "Recorded %d mg/dL at %s", reading.ValueMgPerDl, reading.Timestamp.Format(time.RFC3339))

	return Outcome{Reading: reading, Fresh: true}, nil
}

// Restore adopts the persisted session and publishes a snapshot built from
// the persisted subject and today's log, so queries are answered before the
// first cycle completes.
func (s *GlucoseService) Restore() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stored := s.sessions.LoadSession(); stored.Valid() {
		s.adopt(stored)
		s.logger.Infof(providers.TypeApp, "Restored upstream session (region %q)", stored.Region)
	}

	s.subject = s.sessions.LoadSubject()
	today := s.measurements.Today()
	if last := lastOf(today); last != nil {
		s.lastRecorded = last.Timestamp
	}
	if s.subject == nil && len(today) == 0 {
		return
	}

	var latest, prev *models.Reading
	if n := len(today); n > 0 {
		latest = &today[n-1]
		if n > 1 {
			prev = &today[n-2]
		}
	}
	var sinceLast *int
	if latest != nil {
		sinceLast = trend.SinceLast(prev, *latest, s.conf.Polling.FreshnessThreshold)
	}

	s.publisher.Publish(s.buildSnapshot(s.subject, latest, sinceLast))
	s.logger.Infof(providers.TypeApp, "Restored snapshot with %d readings from today", len(today))
}

func (s *GlucoseService) Session() SessionInfo {
	if info := s.info.Load(); info != nil {
		return *info
	}
	return SessionInfo{}
}

func (s *GlucoseService) ensureSession(ctx context.Context) (*models.Session, error) {
	if s.session.Valid() {
		return s.session, nil
	}
	if stored := s.sessions.LoadSession(); stored.Valid() {
		s.adopt(stored)
		return stored, nil
	}

	creds, err := s.credentials.Credentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("obtaining credentials: %w", err)
	}
	session, err := s.auth.EstablishSession(ctx, creds)
	if err != nil {
		return nil, err
	}

	s.subject = nil
	s.setSession(session)
	return session, nil
}

func (s *GlucoseService) ensureSubject(ctx context.Context, session *models.Session) (*models.SubjectProfile, error) {
	if s.subject != nil {
		return s.subject, nil
	}
	subject, err := s.resolver.ResolveSubject(ctx, session)
	if err != nil {
		return nil, err
	}
	s.subject = subject
	return subject, nil
}

func (s *GlucoseService) adopt(session *models.Session) {
	s.auth.Resume(session)
	s.setSession(session)
}

func (s *GlucoseService) setSession(session *models.Session) {
	s.session = session
	if session == nil {
		s.info.Store(&SessionInfo{})
		return
	}
	s.info.Store(&SessionInfo{Established: true, Region: session.Region, ExpiresAt: session.ExpiresAt})
}

// checkRejected drops the session when the upstream refused it, so the next
// cycle logs in again.
func (s *GlucoseService) checkRejected(err error) error {
	if !upstream.IsUnauthorized(err) {
		return err
	}
	s.logger.Warnf(providers.TypeScheduler, "Upstream rejected the session, logging in again next cycle")
	s.setSession(nil)
	s.subject = nil
	if cerr := s.sessions.Clear(); cerr != nil {
		s.logger.Errorf(providers.TypeScheduler, "Failed to clear session store: %s", cerr)
	}
	return err
}

func (s *GlucoseService) buildSnapshot(subject *models.SubjectProfile, reading *models.Reading, sinceLast *int) *models.Snapshot {
	snap := &models.Snapshot{UpdatedAt: s.now().UTC()}
	if subject != nil {
		snap.Patient = &models.PatientInfo{
			FirstName: subject.FirstName,
			LastName:  subject.LastName,
			SubjectID: subject.SubjectID,
		}
		if subject.Sensor.SerialNumber != "" {
			snap.Sensor = &models.SensorInfo{
				SerialNumber:    subject.Sensor.SerialNumber,
				ActivationTime:  subject.Sensor.ActivationTime(s.conf.Location()),
				ActivationEpoch: subject.Sensor.ActivationEpochSeconds,
				DeviceModelName: models.DeviceModelName(subject.Sensor.DeviceTypeCode),
			}
		}
	}
	if reading != nil {
		snap.MgDl, snap.Mmol = trend.Views(*reading, sinceLast)
	}
	return snap
}

// isNew reports whether reading belongs in today's log: it must fall on the
// current local date and be newer than anything recorded so far.
func (s *GlucoseService) isNew(reading models.Reading, prev *models.Reading) bool {
	stamp := reading.Timestamp.Format(time.RFC3339)
	if !reading.SameDay(s.now(), s.conf.Location()) {
		s.logger.Debugf(providers.TypeScheduler, "Reading at %s is from an earlier day, not recorded", stamp)
		return false
	}
	last := s.lastRecorded
	if prev != nil && prev.Timestamp.After(last) {
		last = prev.Timestamp
	}
	if !last.IsZero() && !reading.Timestamp.After(last) {
		s.logger.Debugf(providers.TypeScheduler, "Reading at %s already recorded", stamp)
		return false
	}
	return true
}

func lastOf(readings []models.Reading) *models.Reading {
	if len(readings) == 0 {
		return nil
	}
	r := readings[len(readings)-1]
	return &r
}

func NewGlucoseService(
	conf *structures.Config,
	logger providers.Logger,
	credentials providers.CredentialsProviderInterface,
	auth AuthenticatorInterface,
	resolver SubjectResolverInterface,
	fetcher ReadingFetcherInterface,
	sessions storage.SessionStoreInterface,
	measurements storage.MeasurementStoreInterface,
	publisher snapshot.PublisherInterface,
) GlucoseServiceInterface {
	return &GlucoseService{
		conf:         conf,
		logger:       logger,
		credentials:  credentials,
		auth:         auth,
		resolver:     resolver,
		fetcher:      fetcher,
		sessions:     sessions,
		measurements: measurements,
		publisher:    publisher,
		now:          time.Now,
	}
}
