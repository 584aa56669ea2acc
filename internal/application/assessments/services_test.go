package assessments_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/phishguard/internal/application"
	"github.com/bryanwahyu/phishguard/internal/application/assessments"
	domain "github.com/bryanwahyu/phishguard/internal/domain/assessment"
)

// --- Mock implementations ---

type mockAssessor struct {
	result     domain.Result
	err        error
	model      string
	calls      int
	gotURL     string
	assessFunc func(ctx context.Context, url string) (domain.Result, error)
}

func (m *mockAssessor) Assess(ctx context.Context, url string) (domain.Result, error) {
	m.calls++
	m.gotURL = url
	if m.assessFunc != nil {
		return m.assessFunc(ctx, url)
	}
	return m.result, m.err
}

func (m *mockAssessor) Model() string { return m.model }

type listingAssessor struct {
	mockAssessor
	models []domain.ModelInfo
}

func (l *listingAssessor) ListModels(context.Context) ([]domain.ModelInfo, error) {
	return l.models, nil
}

type memoryHistory struct {
	mu       sync.Mutex
	entries  []*domain.HistoryEntry
	saveErr  error
	listErr  error
	clearErr error
}

func (m *memoryHistory) Prepend(_ context.Context, e *domain.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.entries = append([]*domain.HistoryEntry{e}, m.entries...)
	return nil
}

func (m *memoryHistory) List(context.Context) ([]*domain.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*domain.HistoryEntry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *memoryHistory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clearErr != nil {
		return m.clearErr
	}
	m.entries = nil
	return nil
}

type countingRecorder struct {
	mu             sync.Mutex
	ai, fallback   int
	persistFailure int
}

func (c *countingRecorder) RecordEvaluation(usedAI bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if usedAI {
		c.ai++
	} else {
		c.fallback++
	}
}

func (c *countingRecorder) RecordPersistFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.persistFailure++
}

var fixedNow = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

func newService(ai domain.Assessor, repo *memoryHistory) *assessments.Service {
	return &assessments.Service{
		AI:      ai,
		History: repo,
		Clock:   application.FixedClock(fixedNow),
	}
}

// --- Tests ---

func TestEvaluate_AIPath(t *testing.T) {
	ai := &mockAssessor{
		model:  "models/gemini-2.5-flash",
		result: domain.Result{Verdict: domain.VerdictPhishing, RiskScore: 93, Reasons: []string{"lookalike"}},
	}
	repo := &memoryHistory{}
	rec := &countingRecorder{}
	svc := newService(ai, repo)
	svc.Metrics = rec

	entry, err := svc.Evaluate(context.Background(), "  https://paypa1.com/login \n")

	require.NoError(t, err)
	assert.Equal(t, "https://paypa1.com/login", entry.URL)
	assert.Equal(t, "https://paypa1.com/login", ai.gotURL)
	assert.True(t, entry.UsedAI)
	require.NotNil(t, entry.Model)
	assert.Equal(t, "models/gemini-2.5-flash", *entry.Model)
	assert.Empty(t, entry.AIError)
	assert.Equal(t, 93, entry.Result.RiskScore)
	assert.Equal(t, fixedNow, entry.Timestamp)
	assert.NotEmpty(t, entry.ID)

	require.Len(t, repo.entries, 1)
	assert.Same(t, entry, repo.entries[0])
	assert.Equal(t, 1, rec.ai)
}

func TestEvaluate_FallbackOnAIError(t *testing.T) {
	ai := &mockAssessor{
		model: "models/gemini-2.5-flash",
		err:   fmt.Errorf("%w: unexpected Gemini response format", domain.ErrMalformedResponse),
	}
	repo := &memoryHistory{}
	rec := &countingRecorder{}
	svc := newService(ai, repo)
	svc.Metrics = rec

	entry, err := svc.Evaluate(context.Background(), "http://paypal-login-secure.tk")

	require.NoError(t, err)
	assert.False(t, entry.UsedAI)
	assert.Nil(t, entry.Model)
	assert.Contains(t, entry.AIError, "unexpected Gemini response format")
	assert.Equal(t, 50, entry.Result.RiskScore)
	assert.Equal(t, domain.VerdictSuspicious, entry.Result.Verdict)
	assert.Equal(t, "paypal-login-secure.tk", entry.Result.Domain)
	assert.Len(t, entry.Result.Reasons, 3)
	assert.Len(t, repo.entries, 1)
	assert.Equal(t, 1, rec.fallback)
}

func TestEvaluate_NoAIConfigured(t *testing.T) {
	repo := &memoryHistory{}
	svc := newService(nil, repo)

	entry, err := svc.Evaluate(context.Background(), "bit.ly/abcd")

	require.NoError(t, err)
	assert.False(t, entry.UsedAI)
	assert.Equal(t, domain.ErrConfigurationMissing.Error(), entry.AIError)
	assert.Equal(t, 20, entry.Result.RiskScore)
	assert.Equal(t, []string{"URL shortener detected"}, entry.Result.Reasons)
}

func TestEvaluate_IncompleteAIResultFallsBack(t *testing.T) {
	ai := &mockAssessor{model: "m", result: domain.Result{}}
	svc := newService(ai, &memoryHistory{})

	entry, err := svc.Evaluate(context.Background(), "https://example.com")

	require.NoError(t, err)
	assert.False(t, entry.UsedAI)
	assert.NotEmpty(t, entry.AIError)
}

func TestEvaluate_PanickingAssessorFallsBack(t *testing.T) {
	ai := &mockAssessor{assessFunc: func(context.Context, string) (domain.Result, error) {
		panic("nil map")
	}}
	svc := newService(ai, &memoryHistory{})

	entry, err := svc.Evaluate(context.Background(), "https://example.com")

	require.NoError(t, err)
	assert.False(t, entry.UsedAI)
	assert.Contains(t, entry.AIError, "panicked")
}

func TestEvaluate_CustomHeuristic(t *testing.T) {
	svc := newService(nil, &memoryHistory{})
	svc.Heuristic = func(url string) domain.Result {
		return domain.Result{Verdict: domain.VerdictSafe, Reasons: []string{"stub " + url}}
	}

	entry, err := svc.Evaluate(context.Background(), "x")

	require.NoError(t, err)
	assert.Equal(t, []string{"stub x"}, entry.Result.Reasons)
}

func TestEvaluate_CancelledContextPersistsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ai := &mockAssessor{assessFunc: func(ctx context.Context, _ string) (domain.Result, error) {
		cancel()
		return domain.Result{}, ctx.Err()
	}}
	repo := &memoryHistory{}
	svc := newService(ai, repo)

	entry, err := svc.Evaluate(ctx, "https://example.com")

	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, entry)
	assert.Empty(t, repo.entries)
}

func TestEvaluate_PersistFailureStillReturnsEntry(t *testing.T) {
	repo := &memoryHistory{saveErr: errors.New("disk full")}
	rec := &countingRecorder{}
	svc := newService(nil, repo)
	svc.Metrics = rec

	entry, err := svc.Evaluate(context.Background(), "https://example.com")

	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 1, rec.persistFailure)
}

func TestEvaluate_ConcurrentAppendsAreAllKept(t *testing.T) {
	repo := &memoryHistory{}
	svc := &assessments.Service{History: repo, Clock: application.SystemClock{}}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Evaluate(context.Background(), fmt.Sprintf("https://site-%d.example", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, svc.ListHistory(context.Background()), 50)
}

func TestListHistory(t *testing.T) {
	t.Run("newest first", func(t *testing.T) {
		repo := &memoryHistory{}
		svc := newService(nil, repo)

		first, err := svc.Evaluate(context.Background(), "https://one.example")
		require.NoError(t, err)
		second, err := svc.Evaluate(context.Background(), "https://two.example")
		require.NoError(t, err)

		list := svc.ListHistory(context.Background())
		require.Len(t, list, 2)
		assert.Equal(t, second.ID, list[0].ID)
		assert.Equal(t, first.ID, list[1].ID)
	})

	t.Run("read failure yields empty log", func(t *testing.T) {
		svc := newService(nil, &memoryHistory{listErr: errors.New("corrupt")})

		list := svc.ListHistory(context.Background())

		assert.NotNil(t, list)
		assert.Empty(t, list)
	})
}

func TestClearHistory(t *testing.T) {
	repo := &memoryHistory{}
	svc := newService(nil, repo)
	_, err := svc.Evaluate(context.Background(), "https://example.com")
	require.NoError(t, err)

	require.NoError(t, svc.ClearHistory(context.Background()))
	require.NoError(t, svc.ClearHistory(context.Background()))

	assert.Empty(t, svc.ListHistory(context.Background()))
}

func TestClearHistory_Error(t *testing.T) {
	svc := newService(nil, &memoryHistory{clearErr: errors.New("read-only")})

	err := svc.ClearHistory(context.Background())

	assert.ErrorContains(t, err, "read-only")
}

func TestModels(t *testing.T) {
	t.Run("no assessor", func(t *testing.T) {
		_, err := newService(nil, &memoryHistory{}).Models(context.Background())
		assert.ErrorIs(t, err, domain.ErrConfigurationMissing)
	})

	t.Run("assessor without listing", func(t *testing.T) {
		_, err := newService(&mockAssessor{}, &memoryHistory{}).Models(context.Background())
		assert.Error(t, err)
	})

	t.Run("listing assessor", func(t *testing.T) {
		ai := &listingAssessor{models: []domain.ModelInfo{{Name: "models/gemini-2.5-flash"}}}
		models, err := newService(ai, &memoryHistory{}).Models(context.Background())
		require.NoError(t, err)
		assert.Len(t, models, 1)
	})
}

func TestStatus(t *testing.T) {
	svc := newService(&mockAssessor{model: "models/gemini-2.5-flash"}, &memoryHistory{})

	st := svc.Status(true)

	assert.Equal(t, "PhishGuard backend running", st.Status)
	assert.Equal(t, "models/gemini-2.5-flash", st.Model)
	assert.True(t, st.AIEnabled)
}
