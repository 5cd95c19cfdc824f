package structures

import "time"

type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"certFile"`
	KeyFile  string `yaml:"keyFile"`
}

type Server struct {
	Host string    `yaml:"host" validate:"required"`
	Port int       `yaml:"port" validate:"required|uint|min:1"`
	TLS  TLSConfig `yaml:"tls"`
}

type UpstreamConfig struct {
	BaseURL           string        `yaml:"baseUrl" validate:"required|fullUrl"`
	RegionURLTemplate string        `yaml:"regionUrlTemplate" validate:"required|contains:{region}"`
	Region            string        `yaml:"region"`
	Product           string        `yaml:"product" validate:"required"`
	Version           string        `yaml:"version" validate:"required"`
	Timeout           time.Duration `yaml:"timeout" validate:"required|min:1"`
	MaxRedirects      int           `yaml:"maxRedirects" validate:"required|min:1"`
	MaxContinuations  int           `yaml:"maxContinuations" validate:"required|min:1"`
}

type PollingConfig struct {
	SamplingInterval   time.Duration `yaml:"samplingInterval" validate:"required|min:1"`
	PublishOffset      time.Duration `yaml:"publishOffset"`
	MinDelay           time.Duration `yaml:"minDelay" validate:"required|min:1"`
	FallbackDelay      time.Duration `yaml:"fallbackDelay" validate:"required|min:1"`
	FreshnessThreshold time.Duration `yaml:"freshnessThreshold" validate:"required|min:1"`
}

type Persistence struct {
	SessionFile  string `yaml:"sessionFile" validate:"required|unixPath"`
	ReadingsFile string `yaml:"readingsFile" validate:"required|unixPath"`
	Compression  string `yaml:"compression" validate:"in:none,zstd"`
}

type CredentialsConfig struct {
	EnvFile string `yaml:"envFile"`
	Prompt  bool   `yaml:"prompt"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	Size    int  `yaml:"size"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName     string
	Debug       bool
	Path        string
	TimeZone    string            `yaml:"timeZone" validate:"required"`
	WebServer   Server            `yaml:"webServer"`
	Upstream    UpstreamConfig    `yaml:"upstream"`
	Polling     PollingConfig     `yaml:"polling"`
	Persistence Persistence       `yaml:"persistence"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Logger      LoggerConfig      `yaml:"logger"`
	Cache       CacheConfig       `yaml:"cache"`
	Metrics     MetricsConfig     `yaml:"metrics"`

	location *time.Location
}

// Location is the zone used for upstream timestamps and the "today" boundary.
// UTC until SetLocation is called.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

func (c *Config) SetLocation(loc *time.Location) {
	c.location = loc
}
