package controllers

import (
	"cgmd/internal/models"
	"cgmd/internal/providers"
	"cgmd/internal/snapshot"
	"errors"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"
)

var errNotFound = errors.New("not found")

// ApiController serves the published snapshot. Serialized bodies are cached
// per snapshot version, so a new publication never serves stale entries.
type ApiController struct {
	logger    providers.Logger
	publisher snapshot.PublisherInterface
	cache     providers.CacheProviderInterface
}

func NewApiController(logger providers.Logger, publisher snapshot.PublisherInterface, cache providers.CacheProviderInterface) *ApiController {
	return &ApiController{
		logger:    logger,
		publisher: publisher,
		cache:     cache,
	}
}

func cacheKey(name string, version uint64) string {
	return name + ":" + strconv.FormatUint(version, 10)
}

func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, cacheKey string, compute func() (any, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	result, err := compute()
	if errors.Is(err, errNotFound) {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		ac.logger.Errorf(providers.TypeGet, "Failed to encode %s: %s", cacheKey, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ac.cache.Set(cacheKey, gson)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func (ac *ApiController) serveView(w http.ResponseWriter, name string, view func(s *models.Snapshot) (any, bool)) {
	snap := ac.publisher.Current()
	if snap == nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	ac.serveFromCacheOrCompute(w, cacheKey(name, snap.Version), func() (any, error) {
		v, ok := view(snap)
		if !ok {
			return nil, errNotFound
		}
		return v, nil
	})
}

func (ac *ApiController) GetPatient(w http.ResponseWriter, _ *http.Request) {
	ac.serveView(w, "patient", func(s *models.Snapshot) (any, bool) {
		return s.Patient, s.Patient != nil
	})
}

func (ac *ApiController) GetSensor(w http.ResponseWriter, _ *http.Request) {
	ac.serveView(w, "sensor", func(s *models.Snapshot) (any, bool) {
		return s.Sensor, s.Sensor != nil
	})
}

func (ac *ApiController) GetGlucoseMgDl(w http.ResponseWriter, _ *http.Request) {
	ac.serveView(w, "mgdl", func(s *models.Snapshot) (any, bool) {
		return s.MgDl, s.MgDl != nil
	})
}

func (ac *ApiController) GetGlucoseMmol(w http.ResponseWriter, _ *http.Request) {
	ac.serveView(w, "mmol", func(s *models.Snapshot) (any, bool) {
		return s.Mmol, s.Mmol != nil
	})
}
