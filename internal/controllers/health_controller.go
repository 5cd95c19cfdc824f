package controllers

import (
	"cgmd/internal/scheduler/interfaces"
	"cgmd/internal/services"
	"cgmd/internal/snapshot"
	"cgmd/internal/structures"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

type HealthController struct {
	conf      *structures.Config
	publisher snapshot.PublisherInterface
	scheduler interfaces.SchedulerInterface
	service   services.GlucoseServiceInterface
	startTime time.Time
	now       func() time.Time
}

type healthResponse struct {
	Status            string     `json:"status"`
	Uptime            string     `json:"uptime"`
	UptimeSeconds     float64    `json:"uptime_seconds"`
	Scheduler         string     `json:"scheduler"`
	LastOutcome       string     `json:"last_outcome,omitempty"`
	NextPoll          *time.Time `json:"next_poll,omitempty"`
	ReadingAgeSeconds *float64   `json:"reading_age_seconds,omitempty"`
	Session           bool       `json:"session"`
	Region            string     `json:"region,omitempty"`
	TokenExpiresAt    *time.Time `json:"token_expires_at,omitempty"`
}

// Health reports "ok" while the latest reading is within the freshness
// threshold, "stale" when it is older and "starting" before any reading.
func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	now := hc.now()
	uptime := now.Sub(hc.startTime)
	status := hc.scheduler.Status()
	session := hc.service.Session()

	resp := healthResponse{
		Status:        "starting",
		Uptime:        formatDuration(uptime),
		UptimeSeconds: uptime.Seconds(),
		Scheduler:     status.State,
		LastOutcome:   status.LastOutcome,
		Session:       session.Established,
		Region:        session.Region,
	}
	if !status.NextPoll.IsZero() {
		next := status.NextPoll.UTC()
		resp.NextPoll = &next
	}
	if !session.ExpiresAt.IsZero() {
		exp := session.ExpiresAt.UTC()
		resp.TokenExpiresAt = &exp
	}
	if snap := hc.publisher.Current(); snap != nil && snap.MgDl != nil {
		age := now.Sub(snap.MgDl.Timestamp)
		secs := age.Seconds()
		resp.ReadingAgeSeconds = &secs
		resp.Status = "ok"
		if age > hc.conf.Polling.FreshnessThreshold {
			resp.Status = "stale"
		}
	}

	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(conf *structures.Config, publisher snapshot.PublisherInterface, scheduler interfaces.SchedulerInterface, service services.GlucoseServiceInterface) *HealthController {
	return &HealthController{
		conf:      conf,
		publisher: publisher,
		scheduler: scheduler,
		service:   service,
		startTime: time.Now(),
		now:       time.Now,
	}
}
