package digest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fakduai/khun-phaen-sync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	workspaces []models.Workspace
	tasks      map[string][]models.Task
	lastSent   map[string]time.Time
	listErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{tasks: map[string][]models.Task{}, lastSent: map[string]time.Time{}}
}

func (f *fakeStore) ListWorkspacesWithDigestsEnabled(ctx context.Context) ([]models.Workspace, error) {
	return f.workspaces, f.listErr
}

func (f *fakeStore) ListNonArchivedTasksByWorkspace(ctx context.Context, workspaceID string) ([]models.Task, error) {
	return f.tasks[workspaceID], nil
}

func (f *fakeStore) UpdateWorkspaceNotificationLastSent(ctx context.Context, workspaceID string, at time.Time) error {
	f.lastSent[workspaceID] = at
	return nil
}

// mondayMorning is a Monday 02:00 UTC, i.e. Monday 09:00 in UTC+7.
var mondayMorning = time.Date(2026, 1, 5, 2, 0, 0, 0, time.UTC)

func digestWorkspace(webhookURL string) models.Workspace {
	return models.Workspace{
		ID:       "ws1",
		Name:     "Alpha",
		RoomCode: "ABCD23",
		NotificationConfig: &models.NotificationConfig{
			WebhookURL: webhookURL,
			Enabled:    true,
			Days:       []int{1},
			Time:       "09:00",
		},
	}
}

func TestTickSendsDueDigest(t *testing.T) {
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	store := newFakeStore()
	store.workspaces = []models.Workspace{digestWorkspace(server.URL)}
	store.tasks["ws1"] = []models.Task{
		{WorkspaceID: "ws1", Title: "A", Status: "done"},
		{WorkspaceID: "ws1", Title: "B", Status: "todo"},
	}

	s := New(store, 7, slog.Default())
	s.Tick(context.Background(), mondayMorning)

	require.Len(t, bodies, 1)
	assert.Contains(t, bodies[0], "Completed Today (1)")
	assert.Contains(t, bodies[0], "Pending Tasks (1)")
	assert.Contains(t, bodies[0], "Daily Summary: Alpha")

	sent, ok := store.lastSent["ws1"]
	require.True(t, ok)
	assert.Equal(t, mondayMorning, sent)
}

func TestTickIdempotentWithinGuardWindow(t *testing.T) {
	var posts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ws := digestWorkspace(server.URL)
	sentAt := mondayMorning.Add(-10 * time.Minute)
	ws.NotificationConfig.LastSentAt = &sentAt

	store := newFakeStore()
	store.workspaces = []models.Workspace{ws}
	store.tasks["ws1"] = []models.Task{{WorkspaceID: "ws1", Title: "A", Status: "done"}}

	s := New(store, 7, slog.Default())
	s.Tick(context.Background(), mondayMorning)

	assert.Zero(t, posts)
}

func TestTickSkipsWrongDayAndTime(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("webhook should not be called")
	}))
	defer server.Close()

	store := newFakeStore()
	store.workspaces = []models.Workspace{digestWorkspace(server.URL)}
	store.tasks["ws1"] = []models.Task{{WorkspaceID: "ws1", Title: "A", Status: "done"}}

	s := New(store, 7, slog.Default())

	// Tuesday 09:00 local: right minute, wrong weekday.
	s.Tick(context.Background(), mondayMorning.Add(24*time.Hour))
	// Monday 09:01 local: right weekday, wrong minute.
	s.Tick(context.Background(), mondayMorning.Add(time.Minute))

	assert.Empty(t, store.lastSent)
}

func TestTickSkipsEmptyTaskList(t *testing.T) {
	var posts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts++
	}))
	defer server.Close()

	store := newFakeStore()
	store.workspaces = []models.Workspace{digestWorkspace(server.URL)}

	s := New(store, 7, slog.Default())
	s.Tick(context.Background(), mondayMorning)

	assert.Zero(t, posts)
	assert.Empty(t, store.lastSent, "last_sent_at must not advance when nothing was emitted")
}

func TestTickLeavesLastSentOnWebhookFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	store := newFakeStore()
	store.workspaces = []models.Workspace{digestWorkspace(server.URL)}
	store.tasks["ws1"] = []models.Task{{WorkspaceID: "ws1", Title: "A", Status: "done"}}

	s := New(store, 7, slog.Default())
	s.Tick(context.Background(), mondayMorning)

	assert.Empty(t, store.lastSent, "a failed POST must leave last_sent_at unchanged so a later matching tick retries")
}

func TestComposeSummarySectionsAndIcons(t *testing.T) {
	tasks := []models.Task{
		{Title: "shipped", Status: "done"},
		{Title: "wip", Status: "in-progress"},
		{Title: "qa", Status: "in-test"},
		{Title: "later", Status: "todo"},
	}

	out := composeSummary("Alpha", tasks, mondayMorning.In(time.FixedZone("UTC+7", 7*3600)))

	assert.Contains(t, out, "Daily Summary: Alpha")
	assert.Contains(t, out, "2026-01-05")
	assert.Contains(t, out, "Completed Today (1)")
	assert.Contains(t, out, "• ✅ shipped")
	assert.Contains(t, out, "Pending Tasks (3)")
	assert.Contains(t, out, "• 🔄 wip")
	assert.Contains(t, out, "• 🧪 qa")
	assert.Contains(t, out, "• 📝 later")
}

func TestComposeSummaryCapsSections(t *testing.T) {
	var tasks []models.Task
	for i := 0; i < 20; i++ {
		tasks = append(tasks, models.Task{Title: fmt.Sprintf("t%d", i), Status: "todo"})
	}

	out := composeSummary("Alpha", tasks, mondayMorning)

	assert.Contains(t, out, "Pending Tasks (20)")
	assert.Contains(t, out, "... and 5 more")
	assert.NotContains(t, out, "t15\n", "lines past the cap are collapsed")
}
