package models

import "time"

// Session is an established upstream credential. It has no refresh protocol
// and stays valid until the persisted copy is deleted.
type Session struct {
	AccessToken   string    `json:"access_token"`
	AccountIDHash string    `json:"account_id_hash"`
	Region        string    `json:"region,omitempty"`
	ExpiresAt     time.Time `json:"expires_at,omitempty"`
}

func (s *Session) Valid() bool {
	return s != nil && s.AccessToken != "" && s.AccountIDHash != ""
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c Credentials) Empty() bool {
	return c.Email == "" || c.Password == ""
}
