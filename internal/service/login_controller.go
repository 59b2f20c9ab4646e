package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"login-portal/internal/domain"
	"login-portal/internal/repository"
)

// ErrNoSession is returned when an operation needs a browser session id and none was given.
var ErrNoSession = errors.New("browser session id is required")

// errAbandoned marks a submission whose callers all went away before the session was written.
var errAbandoned = errors.New("login abandoned")

// LoginController mediates login form submissions and the session records they produce.
type LoginController interface {
	// OnLoad reports where an already authenticated session should be sent instead of the form.
	OnLoad(ctx context.Context, sessionID string) (redirect string, ok bool, err error)
	HandleSubmit(ctx context.Context, sessionID string, input domain.FormInput) (domain.Outcome, error)
	Current(ctx context.Context, sessionID string) (domain.SessionRecord, error)
	Logout(ctx context.Context, sessionID string) error
}

type LoginOptions struct {
	Logger *logrus.Logger
	Now    func() time.Time
}

type loginController struct {
	verifier CredentialVerifier
	sessions repository.SessionStore
	logger   *logrus.Logger
	now      func() time.Time
	inflight singleflight.Group

	mu      sync.Mutex
	waiters map[string][]*waiter
}

// waiter is one caller blocked on an in-flight submission.
type waiter struct {
	ctx context.Context
}

func NewLoginController(verifier CredentialVerifier, sessions repository.SessionStore, opts LoginOptions) LoginController {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &loginController{
		verifier: verifier,
		sessions: sessions,
		logger:   opts.Logger,
		now:      opts.Now,
		waiters:  make(map[string][]*waiter),
	}
}

func (c *loginController) OnLoad(ctx context.Context, sessionID string) (string, bool, error) {
	if sessionID == "" {
		return "", false, nil
	}
	rec, ok, err := c.sessions.Read(ctx, sessionID)
	if err != nil {
		return "", false, fmt.Errorf("read session: %w", err)
	}
	if !ok || !rec.IsAuthenticated {
		return "", false, nil
	}
	return domain.DashboardPath, true, nil
}

func (c *loginController) HandleSubmit(ctx context.Context, sessionID string, input domain.FormInput) (domain.Outcome, error) {
	if sessionID == "" {
		return domain.Outcome{}, ErrNoSession
	}

	input = input.Trimmed()
	key := submissionKey(sessionID, input)

	for {
		w, ch := c.join(ctx, key, sessionID, input)
		select {
		case res := <-ch:
			c.leave(key, w)
			if errors.Is(res.Err, errAbandoned) && ctx.Err() == nil {
				// joined after the earlier callers gave up; evaluate again for this one
				continue
			}
			if res.Shared {
				c.logger.WithField("session", shortID(sessionID)).Debug("joined in-flight login submission")
			}
			outcome, _ := res.Val.(domain.Outcome)
			return outcome, res.Err
		case <-ctx.Done():
			c.leave(key, w)
			return idle(), fmt.Errorf("%w: %w", errAbandoned, ctx.Err())
		}
	}
}

// submissionKey groups identical submissions from one browser session. Different input
// never shares a result.
func submissionKey(sessionID string, input domain.FormInput) string {
	h := sha256.New()
	for _, part := range []string{sessionID, input.Username, input.Password} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// join registers ctx as a waiter for key and attaches it to the in-flight evaluation,
// starting one if needed. The evaluation runs detached from any single caller.
func (c *loginController) join(ctx context.Context, key, sessionID string, input domain.FormInput) (*waiter, <-chan singleflight.Result) {
	w := &waiter{ctx: ctx}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.waiters[key] = append(c.waiters[key], w)
	ch := c.inflight.DoChan(key, func() (any, error) {
		return c.submit(context.WithoutCancel(ctx), key, sessionID, input)
	})
	return w, ch
}

func (c *loginController) leave(key string, w *waiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ws := c.waiters[key]
	if i := slices.Index(ws, w); i >= 0 {
		ws = slices.Delete(ws, i, i+1)
	}
	if len(ws) == 0 {
		delete(c.waiters, key)
		return
	}
	c.waiters[key] = ws
}

// live reports whether any caller waiting on key still wants the result.
func (c *loginController) live(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, w := range c.waiters[key] {
		if w.ctx.Err() == nil {
			return true
		}
	}
	return false
}

func (c *loginController) waiting(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters[key])
}

func (c *loginController) submit(ctx context.Context, key, sessionID string, input domain.FormInput) (out domain.Outcome, err error) {
	log := c.logger.WithField("session", shortID(sessionID))

	if input.Username == "" || input.Password == "" {
		return failure(domain.NewValidationError()), nil
	}

	out = domain.Outcome{State: domain.FormStateSubmitting, ButtonLabel: domain.LabelBusy}
	log.WithField("label", out.ButtonLabel).Debug("login form submitting")
	defer func() {
		out.ButtonLabel = domain.LabelIdle
	}()

	ok, err := c.verifier.Verify(ctx, input.Username, input.Password)
	if err != nil {
		return idle(), fmt.Errorf("verify credentials: %w", err)
	}
	if !ok {
		log.WithField("username", input.Username).Info("login rejected")
		return failure(domain.NewAuthError()), nil
	}

	if !c.live(key) {
		return idle(), fmt.Errorf("%w: %w", errAbandoned, context.Canceled)
	}

	rec := domain.NewSessionRecord(input.Username, c.now())
	if err := c.sessions.Create(ctx, sessionID, rec); err != nil {
		return idle(), fmt.Errorf("create session: %w", err)
	}

	log.WithField("username", rec.Username).Info("login accepted")
	return domain.Outcome{
		State:    domain.FormStateRedirected,
		Redirect: domain.DashboardPath,
		Session:  &rec,
	}, nil
}

func (c *loginController) Current(ctx context.Context, sessionID string) (domain.SessionRecord, error) {
	if sessionID == "" {
		return domain.SessionRecord{}, domain.ErrSessionNotFound
	}
	rec, ok, err := c.sessions.Read(ctx, sessionID)
	if err != nil {
		return domain.SessionRecord{}, fmt.Errorf("read session: %w", err)
	}
	if !ok {
		return domain.SessionRecord{}, domain.ErrSessionNotFound
	}
	return rec, nil
}

func (c *loginController) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := c.sessions.Clear(ctx, sessionID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	c.logger.WithField("session", shortID(sessionID)).Info("logged out")
	return nil
}

func failure(err error) domain.Outcome {
	msg, _ := domain.UserMessage(err)
	return domain.Outcome{
		State:       domain.FormStateIdle,
		Message:     msg,
		ButtonLabel: domain.LabelIdle,
		Err:         err,
	}
}

func idle() domain.Outcome {
	return domain.Outcome{State: domain.FormStateIdle, ButtonLabel: domain.LabelIdle}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
