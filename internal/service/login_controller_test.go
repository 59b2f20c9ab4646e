package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"login-portal/internal/domain"
	"login-portal/internal/repository"
	"login-portal/internal/repository/memory"
)

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestController(t *testing.T, verifier CredentialVerifier, store repository.SessionStore) LoginController {
	t.Helper()
	if verifier == nil {
		verifier = NewStaticVerifier(domain.Credentials{Username: "admin", Password: "actionfi"})
	}
	if store == nil {
		store = memory.NewSessionStore()
	}
	return NewLoginController(verifier, store, LoginOptions{
		Logger: quietLogger(),
		Now:    func() time.Time { return fixedNow },
	})
}

func TestHandleSubmitSuccess(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	ctrl := newTestController(t, nil, store)

	out, err := ctrl.HandleSubmit(ctx, "tab", domain.FormInput{Username: "admin", Password: "actionfi"})
	require.NoError(t, err)

	assert.True(t, out.Succeeded())
	assert.Equal(t, domain.FormStateRedirected, out.State)
	assert.Equal(t, "/dashboard", out.Redirect)
	assert.Equal(t, domain.LabelIdle, out.ButtonLabel)
	assert.Empty(t, out.Message)
	require.NotNil(t, out.Session)

	rec, ok, err := store.Read(ctx, "tab")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.SessionRecord{IsAuthenticated: true, Username: "admin", LoginTime: fixedNow}, rec)
}

func TestHandleSubmitTrimsWhitespace(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	ctrl := newTestController(t, nil, store)

	out, err := ctrl.HandleSubmit(ctx, "tab", domain.FormInput{Username: " admin ", Password: "\tactionfi \n"})
	require.NoError(t, err)
	assert.True(t, out.Succeeded())

	rec, ok, err := store.Read(ctx, "tab")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "admin", rec.Username)
}

func TestHandleSubmitRequiresBothFields(t *testing.T) {
	var calls int32
	verifier := VerifierFunc(func(context.Context, string, string) (bool, error) {
		atomic.AddInt32(&calls, 1)
		return true, nil
	})
	store := memory.NewSessionStore()
	ctrl := newTestController(t, verifier, store)

	inputs := []domain.FormInput{
		{},
		{Username: "admin"},
		{Password: "actionfi"},
		{Username: "   ", Password: "actionfi"},
		{Username: "admin", Password: " \t "},
	}
	for _, in := range inputs {
		out, err := ctrl.HandleSubmit(context.Background(), "tab", in)
		require.NoError(t, err)
		assert.Equal(t, domain.FormStateIdle, out.State)
		assert.Equal(t, "Username and password are required.", out.Message)
		assert.Equal(t, domain.LabelIdle, out.ButtonLabel)
		assert.Empty(t, out.Redirect)

		var validationErr *domain.ValidationError
		assert.True(t, errors.As(out.Err, &validationErr))
	}

	assert.Zero(t, atomic.LoadInt32(&calls), "credentials must not be checked for incomplete input")
	assert.Zero(t, store.(*memory.SessionStore).Len())
}

func TestHandleSubmitRejectsMismatch(t *testing.T) {
	store := memory.NewSessionStore()
	ctrl := newTestController(t, nil, store)

	inputs := []domain.FormInput{
		{Username: "Admin", Password: "actionfi"},
		{Username: "admin", Password: "wrong"},
		{Username: "guest", Password: "actionfi"},
		{Username: "ADMIN", Password: "ACTIONFI"},
	}
	for _, in := range inputs {
		out, err := ctrl.HandleSubmit(context.Background(), "tab", in)
		require.NoError(t, err)
		assert.False(t, out.Succeeded())
		assert.Equal(t, "Invalid username or password.", out.Message)
		assert.Equal(t, domain.LabelIdle, out.ButtonLabel)

		var authErr *domain.AuthError
		assert.True(t, errors.As(out.Err, &authErr))
	}
	assert.Zero(t, store.(*memory.SessionStore).Len())
}

func TestHandleSubmitMismatchKeepsExistingRecord(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	ctrl := newTestController(t, nil, store)

	_, err := ctrl.HandleSubmit(ctx, "tab", domain.FormInput{Username: "admin", Password: "actionfi"})
	require.NoError(t, err)

	out, err := ctrl.HandleSubmit(ctx, "tab", domain.FormInput{Username: "admin", Password: "nope"})
	require.NoError(t, err)
	assert.False(t, out.Succeeded())

	rec, ok, err := store.Read(ctx, "tab")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, fixedNow, rec.LoginTime)
}

func TestHandleSubmitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()

	now := fixedNow
	ctrl := NewLoginController(
		NewStaticVerifier(domain.Credentials{Username: "admin", Password: "actionfi"}),
		store,
		LoginOptions{Logger: quietLogger(), Now: func() time.Time { now = now.Add(time.Minute); return now }},
	)

	first, err := ctrl.HandleSubmit(ctx, "tab", domain.FormInput{Username: "admin", Password: "actionfi"})
	require.NoError(t, err)
	second, err := ctrl.HandleSubmit(ctx, "tab", domain.FormInput{Username: "admin", Password: "actionfi"})
	require.NoError(t, err)

	assert.Equal(t, first.Session.IsAuthenticated, second.Session.IsAuthenticated)
	assert.Equal(t, first.Session.Username, second.Session.Username)
	assert.True(t, second.Session.LoginTime.After(first.Session.LoginTime))
	assert.Equal(t, 1, store.(*memory.SessionStore).Len())
}

func TestHandleSubmitRequiresSessionID(t *testing.T) {
	ctrl := newTestController(t, nil, nil)
	_, err := ctrl.HandleSubmit(context.Background(), "", domain.FormInput{Username: "admin", Password: "actionfi"})
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestHandleSubmitVerifierFault(t *testing.T) {
	boom := errors.New("backend down")
	store := memory.NewSessionStore()
	ctrl := newTestController(t, VerifierFunc(func(context.Context, string, string) (bool, error) {
		return false, boom
	}), store)

	out, err := ctrl.HandleSubmit(context.Background(), "tab", domain.FormInput{Username: "admin", Password: "actionfi"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, domain.LabelIdle, out.ButtonLabel)
	assert.Zero(t, store.(*memory.SessionStore).Len())
}

type failingStore struct {
	repository.SessionStore
	err error
}

func (f failingStore) Create(context.Context, string, domain.SessionRecord) error { return f.err }

func TestHandleSubmitStoreFault(t *testing.T) {
	boom := errors.New("disk full")
	ctrl := newTestController(t, nil, failingStore{SessionStore: memory.NewSessionStore(), err: boom})

	out, err := ctrl.HandleSubmit(context.Background(), "tab", domain.FormInput{Username: "admin", Password: "actionfi"})
	assert.ErrorIs(t, err, boom)
	assert.False(t, out.Succeeded())
}

func TestHandleSubmitCancelledBeforeWrite(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := memory.NewSessionStore()
	ctrl := newTestController(t, VerifierFunc(func(context.Context, string, string) (bool, error) {
		cancel()
		return true, nil
	}), store)

	out, err := ctrl.HandleSubmit(ctx, "tab", domain.FormInput{Username: "admin", Password: "actionfi"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, out.Succeeded())
	assert.Zero(t, store.(*memory.SessionStore).Len())
}

// gatedVerifier blocks every call until release is closed and counts the calls that entered.
func gatedVerifier() (CredentialVerifier, *int32, chan struct{}) {
	var calls int32
	release := make(chan struct{})
	return VerifierFunc(func(_ context.Context, u, p string) (bool, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return u == "admin" && p == "actionfi", nil
	}), &calls, release
}

func waitForWaiters(t *testing.T, ctrl LoginController, sessionID string, input domain.FormInput, n int) {
	t.Helper()
	key := submissionKey(sessionID, input.Trimmed())
	require.Eventually(t, func() bool {
		return ctrl.(*loginController).waiting(key) == n
	}, time.Second, time.Millisecond)
}

func TestHandleSubmitConcurrentSameSession(t *testing.T) {
	verifier, calls, release := gatedVerifier()
	store := memory.NewSessionStore()
	ctrl := newTestController(t, verifier, store)
	input := domain.FormInput{Username: "admin", Password: "actionfi"}

	const workers = 8
	var wg sync.WaitGroup
	results := make([]domain.Outcome, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = ctrl.HandleSubmit(context.Background(), "tab", input)
		}(i)
	}
	waitForWaiters(t, ctrl, "tab", input, workers)
	close(release)
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.True(t, results[i].Succeeded())
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, 1, store.(*memory.SessionStore).Len())
}

func TestHandleSubmitOverlappingDifferentInput(t *testing.T) {
	verifier, calls, release := gatedVerifier()
	store := memory.NewSessionStore()
	ctrl := newTestController(t, verifier, store)
	bad := domain.FormInput{Username: "admin", Password: "bad"}
	good := domain.FormInput{Username: "admin", Password: "actionfi"}

	var wg sync.WaitGroup
	var badOut, goodOut domain.Outcome
	var badErr, goodErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		badOut, badErr = ctrl.HandleSubmit(context.Background(), "tab", bad)
	}()
	waitForWaiters(t, ctrl, "tab", bad, 1)
	go func() {
		defer wg.Done()
		goodOut, goodErr = ctrl.HandleSubmit(context.Background(), "tab", good)
	}()
	waitForWaiters(t, ctrl, "tab", good, 1)
	require.Eventually(t, func() bool { return atomic.LoadInt32(calls) == 2 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	require.NoError(t, badErr)
	assert.False(t, badOut.Succeeded())
	assert.Equal(t, domain.MsgInvalidCredentials, badOut.Message)

	require.NoError(t, goodErr)
	assert.True(t, goodOut.Succeeded())
	assert.Equal(t, "/dashboard", goodOut.Redirect)

	rec, ok, err := store.Read(context.Background(), "tab")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "admin", rec.Username)
}

func TestHandleSubmitSharedSurvivesFirstCallerCancel(t *testing.T) {
	verifier, calls, release := gatedVerifier()
	store := memory.NewSessionStore()
	ctrl := newTestController(t, verifier, store)
	input := domain.FormInput{Username: "admin", Password: "actionfi"}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := ctrl.HandleSubmit(firstCtx, "tab", input)
		firstErr <- err
	}()
	waitForWaiters(t, ctrl, "tab", input, 1)

	type result struct {
		out domain.Outcome
		err error
	}
	second := make(chan result, 1)
	go func() {
		out, err := ctrl.HandleSubmit(context.Background(), "tab", input)
		second <- result{out, err}
	}()
	waitForWaiters(t, ctrl, "tab", input, 2)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	res := <-second
	require.NoError(t, res.err)
	assert.True(t, res.out.Succeeded())
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, 1, store.(*memory.SessionStore).Len())
}

func TestOnLoad(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	ctrl := newTestController(t, nil, store)

	_, ok, err := ctrl.OnLoad(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = ctrl.OnLoad(ctx, "tab")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Create(ctx, "tab", domain.SessionRecord{IsAuthenticated: true}))
	redirect, ok, err := ctrl.OnLoad(ctx, "tab")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/dashboard", redirect)
}

func TestCurrentAndLogout(t *testing.T) {
	ctx := context.Background()
	ctrl := newTestController(t, nil, nil)

	_, err := ctrl.Current(ctx, "tab")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = ctrl.HandleSubmit(ctx, "tab", domain.FormInput{Username: "admin", Password: "actionfi"})
	require.NoError(t, err)

	rec, err := ctrl.Current(ctx, "tab")
	require.NoError(t, err)
	assert.Equal(t, "admin", rec.Username)

	require.NoError(t, ctrl.Logout(ctx, "tab"))
	require.NoError(t, ctrl.Logout(ctx, ""))
	_, err = ctrl.Current(ctx, "tab")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
