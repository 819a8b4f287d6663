package harvest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/lpi-harvester/internal/types"
)

var testAccount = types.Account{Identity: "a@example.com", Secret: "hunter2", CohortLabel: "cohort-1"}

type fakeSession struct {
	mu        sync.Mutex
	loginErr  error
	visitErrs map[string]error
	visited   []string
	responses []types.CapturedResponse
	closeErr  error
	closed    int
	blockOn   string
}

func (s *fakeSession) Login(ctx context.Context, _ types.Account) error {
	return s.loginErr
}

func (s *fakeSession) Visit(ctx context.Context, page Page) error {
	s.mu.Lock()
	s.visited = append(s.visited, page.URL)
	s.mu.Unlock()
	if page.URL == s.blockOn {
		<-ctx.Done()
		return &SessionError{Stage: StageNavigate, Message: "could not load " + page.URL, Cause: ctx.Err()}
	}
	return s.visitErrs[page.URL]
}

func (s *fakeSession) Responses() []types.CapturedResponse {
	return s.responses
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return s.closeErr
}

type fakeBrowser struct {
	session *fakeSession
	err     error
}

func (b *fakeBrowser) NewSession(ctx context.Context) (Session, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.session, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testPages = []Page{
	{URL: "https://example.test/stats"},
	{URL: "https://example.test/stats/games"},
}

func newTestHarvester(b Browser) *Harvester {
	now := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	return New(b, Options{Pages: testPages, Logger: quietLogger()}).
		WithClock(func() time.Time { return now })
}

func TestHarvest_Success(t *testing.T) {
	session := &fakeSession{
		responses: []types.CapturedResponse{{
			SourceURL: "https://example.test/gateway/graphql",
			Body: json.RawMessage(`{"data":{"me":{"id":"u1","firstName":"Ada","lpiSummary":{"overallLpi":700},
				"streakHistory":{"streaks":[{"startDate":"2024-03-10","endDate":"2024-03-12","length":3}]}}}}`),
		}},
	}

	report := newTestHarvester(&fakeBrowser{session: session}).Harvest(context.Background(), testAccount)

	require.True(t, report.OK())
	assert.Equal(t, "a@example.com", report.AccountInfo.Identity)
	assert.Equal(t, "Ada", report.Summary.User)
	assert.Equal(t, 700.0, report.LPI.Overall.Value)
	assert.Equal(t, 3, report.Streaks.MonthInfo.DaysPlayed)
	assert.Equal(t, []string{"https://example.test/stats", "https://example.test/stats/games"}, session.visited)
	assert.Equal(t, 1, session.closed)
}

func TestHarvest_FailureVariants(t *testing.T) {
	tests := []struct {
		name    string
		browser *fakeBrowser
		want    string
		closed  int
	}{
		{
			name:    "session cannot be opened",
			browser: &fakeBrowser{err: &SessionError{Stage: StageLaunch, Message: "failed to open browser context", Cause: errors.New("target closed")}},
			want:    "launch failed: failed to open browser context: target closed",
		},
		{
			name:    "login rejected",
			browser: &fakeBrowser{session: &fakeSession{loginErr: &SessionError{Stage: StageLogin, Message: "Incorrect email or password", Cause: ErrLoginRejected}}},
			want:    "login failed: Incorrect email or password: login rejected",
			closed:  1,
		},
		{
			name:    "email field missing",
			browser: &fakeBrowser{session: &fakeSession{loginErr: &SessionError{Stage: StageLogin, Message: "email field not found", Cause: context.DeadlineExceeded}}},
			want:    "login failed: email field not found: context deadline exceeded",
			closed:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := newTestHarvester(tt.browser).Harvest(context.Background(), testAccount)

			assert.False(t, report.OK())
			require.NotNil(t, report.Success)
			assert.False(t, *report.Success)
			assert.Equal(t, tt.want, report.Error)
			assert.Equal(t, "a@example.com", report.AccountInfo.Identity)
			assert.Equal(t, "cohort-1", report.AccountInfo.CohortLabel)
			assert.NotContains(t, report.Error, "hunter2")
			if tt.browser.session != nil {
				assert.Equal(t, tt.closed, tt.browser.session.closed)
			}
		})
	}
}

func TestHarvest_PageFailureIsSkipped(t *testing.T) {
	session := &fakeSession{
		visitErrs: map[string]error{
			"https://example.test/stats": &SessionError{Stage: StageNavigate, Message: "could not load", Cause: errors.New("net::ERR_ABORTED")},
		},
	}

	report := newTestHarvester(&fakeBrowser{session: session}).Harvest(context.Background(), testAccount)

	assert.True(t, report.OK())
	assert.Len(t, session.visited, 2, "remaining pages are still visited")
	assert.Equal(t, 1, session.closed)
}

func TestHarvest_CancellationReleasesSession(t *testing.T) {
	session := &fakeSession{blockOn: "https://example.test/stats"}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	report := newTestHarvester(&fakeBrowser{session: session}).Harvest(ctx, testAccount)

	assert.False(t, report.OK())
	assert.Contains(t, report.Error, "context deadline exceeded")
	assert.Len(t, session.visited, 1, "no further pages after cancellation")
	assert.Equal(t, 1, session.closed)
}

func TestHarvest_CloseErrorDoesNotFailReport(t *testing.T) {
	session := &fakeSession{closeErr: errors.New("browser context already disposed")}

	report := newTestHarvester(&fakeBrowser{session: session}).Harvest(context.Background(), testAccount)

	assert.True(t, report.OK())
	assert.Equal(t, 1, session.closed)
}

func TestSessionError(t *testing.T) {
	err := &SessionError{Stage: StageLogin, Message: "bad", Cause: ErrLoginRejected}
	assert.ErrorIs(t, err, ErrLoginRejected)
	assert.Equal(t, "navigate failed: x", (&SessionError{Stage: StageNavigate, Message: "x"}).Error())
}

func TestSleep(t *testing.T) {
	assert.NoError(t, sleep(context.Background(), 0))
	assert.NoError(t, sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleep(ctx, time.Hour), context.Canceled)
}

func TestOptions_Defaults(t *testing.T) {
	opts := Options{BaseURL: "https://example.test/"}.withDefaults()
	assert.Equal(t, "https://example.test", opts.BaseURL)
	assert.Equal(t, "https://example.test/login", opts.LoginURL())
	require.Len(t, opts.Pages, 4)
	assert.Equal(t, "https://example.test/stats", opts.Pages[0].URL)
	assert.Equal(t, 5*time.Second, opts.Pages[0].Settle)
	assert.Equal(t, 30*time.Second, opts.ActionTimeout)
	assert.Equal(t, 15*time.Second, opts.NavigationTimeout)
	assert.NotNil(t, opts.Logger)

	d := DefaultOptions()
	assert.Equal(t, 2*time.Second, d.FinalSettle)
	assert.True(t, d.Headless)
	assert.Equal(t, []string{"gateway/graphql", "lumosity.com/api"}, d.APIMarkers)
}

func TestAllocatorOptions(t *testing.T) {
	base := len(allocatorOptions(Options{}))
	assert.Equal(t, base+2, len(allocatorOptions(Options{ExecPath: "/usr/bin/chromium", UserAgent: "ua"})))
}
