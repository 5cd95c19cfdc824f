package upstream

import (
	"cgmd/internal/models"
	"cgmd/internal/providers"
	"cgmd/internal/storage"
	"cgmd/internal/structures"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type authTicket struct {
	Token    string `json:"token"`
	Expires  int64  `json:"expires"`
	Duration int64  `json:"duration"`
}

type loginStep struct {
	Type          string `json:"type"`
	ComponentName string `json:"componentName"`
}

type loginUser struct {
	ID string `json:"id"`
}

type loginData struct {
	Redirect   bool       `json:"redirect"`
	Region     string     `json:"region"`
	User       loginUser  `json:"user"`
	AuthTicket authTicket `json:"authTicket"`
	Step       *loginStep `json:"step"`
}

// AuthManager runs the login protocol: region redirects first, then any
// number of continuation steps, until the upstream reports status 0.
type AuthManager struct {
	client           *Client
	store            storage.SessionStoreInterface
	logger           providers.Logger
	maxRedirects     int
	maxContinuations int
}

func NewAuthManager(conf *structures.Config, client *Client, store storage.SessionStoreInterface, logger providers.Logger) *AuthManager {
	return &AuthManager{
		client:           client,
		store:            store,
		logger:           logger,
		maxRedirects:     conf.Upstream.MaxRedirects,
		maxContinuations: conf.Upstream.MaxContinuations,
	}
}

// Resume re-applies the region of a session restored from the store.
func (a *AuthManager) Resume(session *models.Session) {
	a.client.SwitchRegion(session.Region)
}

func (a *AuthManager) login(ctx context.Context, creds models.Credentials) (*envelope, *loginData, error) {
	env, err := a.client.send(ctx, call{name: "login", method: http.MethodPost, path: "/llu/auth/login", body: creds})
	if err != nil {
		return nil, nil, requestFailed("login request failed", err)
	}
	return decodeLogin(env)
}

func (a *AuthManager) continueStep(ctx context.Context, step, token string) (*envelope, *loginData, error) {
	env, err := a.client.send(ctx, call{
		name:   "continue",
		method: http.MethodPost,
		path:   "/auth/continue/" + url.PathEscape(step),
		bearer: token,
	})
	if err != nil {
		return nil, nil, requestFailed("continuation step "+step+" failed", err)
	}
	return decodeLogin(env)
}

// requestFailed wraps a failed login call. An HTTP error keeps its status code.
func requestFailed(reason string, err error) *AuthError {
	aerr := &AuthError{Reason: reason, Err: err}
	var serr *StatusError
	if errors.As(err, &serr) {
		aerr.Status = serr.HTTPStatus
	}
	return aerr
}

func decodeLogin(env *envelope) (*envelope, *loginData, error) {
	var data loginData
	if err := env.decode(&data); err != nil {
		return nil, nil, &AuthError{Reason: fmt.Sprintf("malformed login payload: %s", err), Status: env.Status, Payload: env.raw}
	}
	return env, &data, nil
}

// EstablishSession logs in and persists the resulting session. Region
// redirects and continuation steps are bounded by configuration; exceeding
// either bound is reported as an AuthError.
func (a *AuthManager) EstablishSession(ctx context.Context, creds models.Credentials) (*models.Session, error) {
	env, data, err := a.login(ctx, creds)
	if err != nil {
		return nil, err
	}

	for redirects := 0; data.Redirect; redirects++ {
		if redirects >= a.maxRedirects {
			return nil, &AuthError{Reason: fmt.Sprintf("more than %d region redirects", a.maxRedirects), Status: env.Status, Payload: env.raw}
		}
		if data.Region == "" {
			return nil, &AuthError{Reason: "region redirect without target region", Status: env.Status, Payload: env.raw}
		}
		a.logger.Infof(providers.TypeUpstream, "Login redirected to region %s", data.Region)
		a.client.SwitchRegion(data.Region)

		env, data, err = a.login(ctx, creds)
		if err != nil {
			return nil, err
		}
	}

	for steps := 0; env.Status == StatusContinuationRequired; steps++ {
		if steps >= a.maxContinuations {
			return nil, &AuthError{Reason: fmt.Sprintf("more than %d continuation steps", a.maxContinuations), Status: env.Status, Payload: env.raw}
		}
		if data.Step == nil || data.Step.Type == "" || data.AuthTicket.Token == "" {
			return nil, &AuthError{Reason: "continuation without step or token", Status: env.Status, Payload: env.raw}
		}
		a.logger.Infof(providers.TypeUpstream, "Completing login step %s", data.Step.Type)

		env, data, err = a.continueStep(ctx, data.Step.Type, data.AuthTicket.Token)
		if err != nil {
			return nil, err
		}
	}

	if env.Status != StatusOK {
		return nil, &AuthError{Reason: "login rejected", Status: env.Status, Payload: env.raw}
	}
	if data.AuthTicket.Token == "" || data.User.ID == "" {
		return nil, &AuthError{Reason: "login response without token or user id", Status: env.Status, Payload: env.raw}
	}

	session := &models.Session{
		AccessToken:   data.AuthTicket.Token,
		AccountIDHash: HashAccountID(data.User.ID),
		Region:        a.client.Region(),
		ExpiresAt:     tokenExpiry(data.AuthTicket),
	}
	if err := a.store.SaveSession(session); err != nil {
		a.logger.Errorf(providers.TypeUpstream, "Session established but not persisted: %s", err)
	}

	if session.ExpiresAt.IsZero() {
		a.logger.Infof(providers.TypeUpstream, "Session established")
	} else {
		a.logger.Infof(providers.TypeUpstream, "Session established, token expires %s", session.ExpiresAt.Format(time.RFC3339))
	}
	return session, nil
}

// tokenExpiry prefers the ticket's own expiry and falls back to the exp claim
// of the token. The token signature is not ours to verify.
func tokenExpiry(ticket authTicket) time.Time {
	if ticket.Expires > 0 {
		return time.Unix(ticket.Expires, 0).UTC()
	}
	token, _, err := jwt.NewParser().ParseUnverified(ticket.Token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time.UTC()
}
