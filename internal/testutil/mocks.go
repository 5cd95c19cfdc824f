package testutil

import (
	"cgmd/internal/models"
	"cgmd/internal/providers"
	"cgmd/internal/structures"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Count returns how many entries were logged at level.
func (m *MockLogger) Count(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.Logs {
		if l.Level == level {
			n++
		}
	}
	return n
}

// Contains reports whether any rendered message at level contains substr.
func (m *MockLogger) Contains(level, substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.Logs {
		if l.Level == level && strings.Contains(fmt.Sprintf(l.Format, l.Args...), substr) {
			return true
		}
	}
	return false
}

// MockMetrics implements providers.MetricsProviderInterface.
type MockMetrics struct {
	mu            sync.Mutex
	Cycles        map[string]int
	NextDelays    []time.Duration
	UpstreamCalls map[string]int
	Persisted     int
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) IncCacheHits()                                    {}
func (m *MockMetrics) IncCacheMisses()                                  {}

func (m *MockMetrics) ObservePersistenceDuration(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Persisted++
}

func (m *MockMetrics) ObserveUpstreamDuration(endpoint string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpstreamCalls == nil {
		m.UpstreamCalls = make(map[string]int)
	}
	m.UpstreamCalls[endpoint]++
}

func (m *MockMetrics) IncCyclesTotal(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Cycles == nil {
		m.Cycles = make(map[string]int)
	}
	m.Cycles[outcome]++
}

func (m *MockMetrics) SetNextPollDelay(delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NextDelays = append(m.NextDelays, delay)
}

// Delays returns a copy of the recorded next-poll delays.
func (m *MockMetrics) Delays() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.NextDelays...)
}

func (m *MockMetrics) CycleCount(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Cycles[outcome]
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

// MockCompressor implements storage.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

// MockCredentials implements providers.CredentialsProviderInterface.
type MockCredentials struct {
	mu    sync.Mutex
	Creds models.Credentials
	Err   error
	Calls int
}

func (m *MockCredentials) Credentials(_ context.Context) (models.Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	return m.Creds, m.Err
}

// Config returns a fully populated configuration suitable for unit tests.
// Persistence paths point into dir.
func Config(dir string) *structures.Config {
	conf := &structures.Config{
		AppName:  "CGMDaemon",
		TimeZone: "UTC",
		WebServer: structures.Server{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Upstream: structures.UpstreamConfig{
			BaseURL:           "https://api.libreview.io",
			RegionURLTemplate: "https://api-{region}.libreview.io",
			Product:           "llu.android",
			Version:           "4.12.0",
			Timeout:           5 * time.Second,
			MaxRedirects:      3,
			MaxContinuations:  5,
		},
		Polling: structures.PollingConfig{
			SamplingInterval:   time.Minute,
			PublishOffset:      10 * time.Second,
			MinDelay:           5 * time.Second,
			FallbackDelay:      time.Minute,
			FreshnessThreshold: 24 * time.Minute,
		},
		Persistence: structures.Persistence{
			SessionFile:  dir + "/session.json",
			ReadingsFile: dir + "/readings.json",
			Compression:  "none",
		},
		Logger: structures.LoggerConfig{
			Level: "debug",
			Mode:  0644,
			Dir:   dir,
		},
	}
	conf.SetLocation(time.UTC)
	return conf
}
