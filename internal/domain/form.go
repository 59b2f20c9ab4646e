package domain

// FormState is the state of the login form for one submission.
type FormState string

const (
	FormStateIdle       FormState = "idle"
	FormStateSubmitting FormState = "submitting"
	FormStateRedirected FormState = "redirected"
)

// Submit button labels.
const (
	LabelIdle = "Login"
	LabelBusy = "Authenticating…"
)

// Outcome describes how a submission left the form.
type Outcome struct {
	State       FormState
	Redirect    string
	Message     string
	ButtonLabel string
	Err         error
	Session     *SessionRecord
}

// Succeeded reports whether the submission authenticated the session.
func (o Outcome) Succeeded() bool {
	return o.State == FormStateRedirected
}
