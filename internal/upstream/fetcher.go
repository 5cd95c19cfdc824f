package upstream

import (
	"cgmd/internal/models"
	"cgmd/internal/providers"
	"cgmd/internal/structures"
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"
)

// TimestampLayout is the upstream reading timestamp format, month first with
// a 12-hour clock.
const TimestampLayout = "1/2/2006 3:04:05 PM"

type glucoseItem struct {
	FactoryTimestamp string  `json:"FactoryTimestamp"`
	Timestamp        string  `json:"Timestamp"`
	ValueInMgPerDl   float64 `json:"ValueInMgPerDl"`
	TrendArrow       int     `json:"TrendArrow"`
	MeasurementColor *int    `json:"MeasurementColor"`
}

type graphData struct {
	Connection struct {
		GlucoseMeasurement *glucoseItem `json:"glucoseMeasurement"`
	} `json:"connection"`
}

type Fetcher struct {
	client *Client
	loc    *time.Location
	logger providers.Logger
}

func NewFetcher(conf *structures.Config, client *Client, logger providers.Logger) *Fetcher {
	return &Fetcher{client: client, loc: conf.Location(), logger: logger}
}

// FetchLatest returns the current measurement of the subject, or nil when the
// upstream has none.
func (f *Fetcher) FetchLatest(ctx context.Context, session *models.Session, subject *models.SubjectProfile) (*models.Reading, error) {
	path := "/llu/connections/" + url.PathEscape(subject.SubjectID) + "/graph"
	env, err := f.client.get(ctx, "graph", path, session, map[string]string{HeaderSubjectID: subject.SubjectID})
	if err != nil {
		return nil, err
	}
	if env.Status != StatusOK {
		return nil, &StatusError{Endpoint: "graph", Status: env.Status}
	}

	var data graphData
	if err := env.decode(&data); err != nil {
		return nil, fmt.Errorf("decoding graph: %w", err)
	}
	item := data.Connection.GlucoseMeasurement
	if item == nil {
		f.logger.Debugf(providers.TypeUpstream, "No current measurement for subject %s", subject.SubjectID)
		return nil, nil
	}

	ts, err := ParseTimestamp(item.Timestamp, item.FactoryTimestamp, f.loc)
	if err != nil {
		return nil, err
	}
	return &models.Reading{
		Timestamp:    ts,
		ValueMgPerDl: int(math.Round(item.ValueInMgPerDl)),
		TrendArrow:   item.TrendArrow,
		ColorCode:    item.MeasurementColor,
	}, nil
}

// ParseTimestamp reads the local timestamp in loc. When it is missing or
// malformed the factory timestamp, which is UTC, is used instead.
func ParseTimestamp(local, factory string, loc *time.Location) (time.Time, error) {
	ts, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(local), loc)
	if err == nil {
		return ts, nil
	}
	if factory != "" {
		if fts, ferr := time.ParseInLocation(TimestampLayout, strings.TrimSpace(factory), time.UTC); ferr == nil {
			return fts.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing reading timestamp %q: %w", local, err)
}
