package upstream

import (
	"cgmd/internal/models"
	"cgmd/internal/providers"
	"cgmd/internal/structures"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
)

const (
	StatusOK                   = 0
	StatusContinuationRequired = 4

	HeaderAccountID = "Account-Id"
	HeaderSubjectID = "Patient-Id"

	regionPlaceholder = "{region}"
)

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`

	raw []byte
}

func (e *envelope) decode(v any) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

type call struct {
	name    string
	method  string
	path    string
	body    any
	bearer  string
	session *models.Session
	headers map[string]string
}

// Client talks to the upstream API. The base address is an explicit field:
// a region redirect during login changes it for every later call.
type Client struct {
	http           *resty.Client
	baseURL        string
	region         string
	regionTemplate string
	logger         providers.Logger
	metrics        providers.MetricsProviderInterface
}

func NewClient(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface) *Client {
	rc := resty.New().
		SetTimeout(conf.Upstream.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("product", conf.Upstream.Product).
		SetHeader("version", conf.Upstream.Version).
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)

	c := &Client{
		http:           rc,
		baseURL:        strings.TrimRight(conf.Upstream.BaseURL, "/"),
		regionTemplate: conf.Upstream.RegionURLTemplate,
		logger:         logger,
		metrics:        metrics,
	}
	if conf.Upstream.Region != "" {
		c.SwitchRegion(conf.Upstream.Region)
	}
	return c
}

// SwitchRegion points all following requests at the regional endpoint.
func (c *Client) SwitchRegion(region string) {
	if region == "" || region == c.region {
		return
	}
	c.region = region
	c.baseURL = strings.TrimRight(strings.ReplaceAll(c.regionTemplate, regionPlaceholder, region), "/")
	c.logger.Infof(providers.TypeUpstream, "Upstream region set to %s (%s)", region, c.baseURL)
}

func (c *Client) Region() string {
	return c.region
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) send(ctx context.Context, cl call) (*envelope, error) {
	r := c.http.R().SetContext(ctx).SetHeaders(cl.headers)
	if cl.body != nil {
		r.SetBody(cl.body)
	}
	if cl.session != nil {
		r.SetAuthToken(cl.session.AccessToken)
		r.SetHeader(HeaderAccountID, cl.session.AccountIDHash)
	} else if cl.bearer != "" {
		r.SetAuthToken(cl.bearer)
	}

	start := time.Now()
	resp, err := r.Execute(cl.method, c.baseURL+cl.path)
	c.metrics.ObserveUpstreamDuration(cl.name, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("upstream %s request: %w", cl.name, err)
	}
	if resp.IsError() {
		c.logger.Warnf(providers.TypeUpstream, "Upstream %s returned HTTP %d", cl.name, resp.StatusCode())
		return nil, &StatusError{Endpoint: cl.name, HTTPStatus: resp.StatusCode()}
	}

	env := &envelope{raw: resp.Body()}
	if err := json.Unmarshal(resp.Body(), env); err != nil {
		return nil, fmt.Errorf("decoding upstream %s response: %w", cl.name, err)
	}
	c.logger.Debugf(providers.TypeUpstream, "Upstream %s status %d in %s", cl.name, env.Status, time.Since(start))
	return env, nil
}

func (c *Client) get(ctx context.Context, name, path string, session *models.Session, headers map[string]string) (*envelope, error) {
	return c.send(ctx, call{name: name, method: http.MethodGet, path: path, session: session, headers: headers})
}

// HashAccountID derives the account header value from the upstream user id.
func HashAccountID(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])
}
