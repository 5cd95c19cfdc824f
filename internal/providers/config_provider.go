package providers

import (
	"cgmd/internal/structures"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("timeZone", "UTC")
	v.SetDefault("upstream.baseUrl", "https://api.libreview.io")
	v.SetDefault("upstream.regionUrlTemplate", "https://api-{region}.libreview.io")
	v.SetDefault("upstream.product", "llu.android")
	v.SetDefault("upstream.version", "4.12.0")
	v.SetDefault("upstream.timeout", 30*time.Second)
	v.SetDefault("upstream.maxRedirects", 3)
	v.SetDefault("upstream.maxContinuations", 5)
	v.SetDefault("polling.samplingInterval", time.Minute)
	v.SetDefault("polling.publishOffset", 10*time.Second)
	v.SetDefault("polling.minDelay", 5*time.Second)
	v.SetDefault("polling.fallbackDelay", time.Minute)
	v.SetDefault("polling.freshnessThreshold", 24*time.Minute)
	v.SetDefault("persistence.compression", "none")
	v.SetDefault("credentials.prompt", true)
}

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	v := viper.New()
	setConfigDefaults(v)

	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")

	_ = v.BindEnv("logger.level", "CGMD_LOG_LEVEL")
	_ = v.BindEnv("upstream.region", "CGMD_REGION")
	_ = v.BindEnv("polling.samplingInterval", "CGMD_SAMPLING_INTERVAL")
	_ = v.BindEnv("polling.fallbackDelay", "CGMD_FALLBACK_DELAY")
	_ = v.BindEnv("cache.enabled", "CGMD_CACHE_ENABLED")

	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(conf.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q: %w", conf.TimeZone, err)
	}
	conf.SetLocation(loc)

	conf.AppName = "CGMDaemon"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
