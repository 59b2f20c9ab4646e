package domain

import (
	"strings"
	"time"
)

// DashboardPath is where an authenticated browser session is sent.
const DashboardPath = "/dashboard"

// Persisted layout of a SessionRecord.
const (
	KeyIsAuthenticated = "isAuthenticated"
	KeyUsername        = "username"
	KeyLoginTime       = "loginTime"
)

// LoginTimeLayout matches the ISO-8601 form produced by browsers (millisecond precision, UTC).
const LoginTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Credentials are the expected username and password.
type Credentials struct {
	Username string
	Password string
}

// FormInput is a single login form submission.
type FormInput struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// Trimmed returns the input with surrounding whitespace removed from both fields.
func (in FormInput) Trimmed() FormInput {
	return FormInput{
		Username: strings.TrimSpace(in.Username),
		Password: strings.TrimSpace(in.Password),
	}
}

// SessionRecord marks a browser session as authenticated.
type SessionRecord struct {
	IsAuthenticated bool
	Username        string
	LoginTime       time.Time
}

// NewSessionRecord builds an authenticated record for username.
func NewSessionRecord(username string, at time.Time) SessionRecord {
	return SessionRecord{
		IsAuthenticated: true,
		Username:        username,
		LoginTime:       at.UTC(),
	}
}

// FormattedLoginTime renders LoginTime in the persisted layout.
func (r SessionRecord) FormattedLoginTime() string {
	if r.LoginTime.IsZero() {
		return ""
	}
	return r.LoginTime.UTC().Format(LoginTimeLayout)
}

// Fields flattens the record into its persisted key/value layout.
// An unauthenticated record has no isAuthenticated key at all.
func (r SessionRecord) Fields() map[string]string {
	fields := map[string]string{
		KeyUsername:  r.Username,
		KeyLoginTime: r.FormattedLoginTime(),
	}
	if r.IsAuthenticated {
		fields[KeyIsAuthenticated] = "true"
	}
	return fields
}

// RecordFromFields rebuilds a record from its persisted layout. Only the
// isAuthenticated flag decides presence; an unparsable loginTime is left zero.
func RecordFromFields(fields map[string]string) (SessionRecord, bool) {
	if fields[KeyIsAuthenticated] != "true" {
		return SessionRecord{}, false
	}
	rec := SessionRecord{
		IsAuthenticated: true,
		Username:        fields[KeyUsername],
	}
	if raw := fields[KeyLoginTime]; raw != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			rec.LoginTime = t.UTC()
		}
	}
	return rec, true
}
