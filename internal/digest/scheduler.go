// Package digest implements the scheduled per-workspace summary notifier:
// a 60-second ticker that, at each workspace's configured local wallclock
// time, composes a task summary and POSTs it to the workspace's webhook.
package digest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fakduai/khun-phaen-sync/internal/metrics"
	"github.com/fakduai/khun-phaen-sync/internal/models"
)

const (
	tickInterval = 60 * time.Second

	// A digest that succeeded within this window is not resent, which keeps
	// the minute-precision time match idempotent across overlapping ticks
	// and modest clock skew.
	resendGuard = 55 * time.Minute

	// Per-section line cap; the remainder collapses into "... and N more".
	maxSectionLines = 15

	embedColor = 0x4F46E5
)

// Store is the slice of the persistence adapter the scheduler depends on.
type Store interface {
	ListWorkspacesWithDigestsEnabled(ctx context.Context) ([]models.Workspace, error)
	ListNonArchivedTasksByWorkspace(ctx context.Context, workspaceID string) ([]models.Task, error)
	UpdateWorkspaceNotificationLastSent(ctx context.Context, workspaceID string, at time.Time) error
}

// Scheduler walks digest-enabled workspaces once a minute and delivers due
// summaries. One instance runs per process.
type Scheduler struct {
	store  Store
	client *http.Client
	loc    *time.Location
	logger *slog.Logger
}

// New builds a Scheduler whose "local" wallclock is UTC shifted by
// utcOffsetHours (the deployment's home timezone for digest scheduling).
func New(store Store, utcOffsetHours int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:  store,
		client: &http.Client{},
		loc:    time.FixedZone(fmt.Sprintf("UTC%+d", utcOffsetHours), utcOffsetHours*3600),
		logger: logger,
	}
}

// Run blocks, ticking every 60s until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx, time.Now().UTC())
		}
	}
}

// Tick evaluates every digest-enabled workspace against nowUTC and sends
// whatever is due. Exposed so tests can drive the schedule deterministically.
func (s *Scheduler) Tick(ctx context.Context, nowUTC time.Time) {
	workspaces, err := s.store.ListWorkspacesWithDigestsEnabled(ctx)
	if err != nil {
		s.logger.Error("digest: listing workspaces failed", "error", err)
		return
	}

	nowLocal := nowUTC.In(s.loc)
	weekday := int(nowLocal.Weekday()) // 0=Sun, matching the config encoding
	wallclock := nowLocal.Format("15:04")

	for _, ws := range workspaces {
		cfg := ws.NotificationConfig
		if cfg == nil || !cfg.Enabled {
			continue
		}
		if !containsDay(cfg.Days, weekday) {
			continue
		}
		if cfg.Time != wallclock {
			continue
		}
		if cfg.LastSentAt != nil && nowUTC.Sub(*cfg.LastSentAt) < resendGuard {
			continue
		}

		if err := s.sendSummary(ctx, &ws, nowUTC); err != nil {
			metrics.DigestSends.WithLabelValues("failure").Inc()
			// last_sent_at stays untouched, so the next tick that matches
			// the configured day and time sends again.
			s.logger.Error("digest: send failed", "workspace", ws.Name, "error", err)
		}
	}
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

// webhookPayload is the POSTed body: a short content line plus one embed,
// consumable by Discord-compatible webhook endpoints.
type webhookPayload struct {
	Username  string  `json:"username"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	Content   string  `json:"content,omitempty"`
	Embeds    []embed `json:"embeds"`
}

type embed struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Color       int         `json:"color"`
	Footer      embedFooter `json:"footer"`
	Timestamp   string      `json:"timestamp"`
}

type embedFooter struct {
	Text string `json:"text"`
}

func (s *Scheduler) sendSummary(ctx context.Context, ws *models.Workspace, nowUTC time.Time) error {
	if ws.NotificationConfig.WebhookURL == "" {
		return nil
	}

	tasks, err := s.store.ListNonArchivedTasksByWorkspace(ctx, ws.ID)
	if err != nil {
		return fmt.Errorf("fetching tasks: %w", err)
	}
	if len(tasks) == 0 {
		// Nothing to report; last_sent_at is deliberately left alone.
		return nil
	}

	description := composeSummary(ws.Name, tasks, nowUTC.In(s.loc))

	payload := webhookPayload{
		Username: "Khun Phaen Reporter",
		Embeds: []embed{{
			Title:       fmt.Sprintf("Report for %s", ws.Name),
			Description: description,
			Color:       embedColor,
			Footer:      embedFooter{Text: "Khun Phaen Task Tracker ✨"},
			Timestamp:   nowUTC.Format(time.RFC3339),
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ws.NotificationConfig.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting digest: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}

	metrics.DigestSends.WithLabelValues("success").Inc()
	if err := s.store.UpdateWorkspaceNotificationLastSent(ctx, ws.ID, nowUTC); err != nil {
		// Logged only; the digest was delivered, but without the new
		// last_sent_at the resend guard cannot suppress a second send from
		// another tick that falls in the same minute.
		s.logger.Error("digest: updating last_sent_at failed", "workspace", ws.Name, "error", err)
	}
	s.logger.Info("digest sent", "workspace", ws.Name, "tasks", len(tasks))
	return nil
}

// composeSummary renders the digest body: a dated header, the completed
// section, then pending tasks with per-status icons.
func composeSummary(workspaceName string, tasks []models.Task, nowLocal time.Time) string {
	var done, pending []models.Task
	for _, t := range tasks {
		if t.Status == "done" {
			done = append(done, t)
		} else {
			pending = append(pending, t)
		}
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "📊 **Daily Summary: %s** - %s\n\n", workspaceName, nowLocal.Format("2006-01-02"))

	if len(done) > 0 {
		fmt.Fprintf(&b, "🎯 **Completed Today (%d)**\n", len(done))
		for i, t := range done {
			if i == maxSectionLines {
				fmt.Fprintf(&b, "... and %d more\n", len(done)-maxSectionLines)
				break
			}
			fmt.Fprintf(&b, "• ✅ %s\n", t.Title)
		}
		b.WriteString("\n")
	}

	if len(pending) > 0 {
		fmt.Fprintf(&b, "⏳ **Pending Tasks (%d)**\n", len(pending))
		for i, t := range pending {
			if i == maxSectionLines {
				fmt.Fprintf(&b, "... and %d more\n", len(pending)-maxSectionLines)
				break
			}
			fmt.Fprintf(&b, "• %s %s\n", statusIcon(t.Status), t.Title)
		}
	}

	return b.String()
}

func statusIcon(status string) string {
	switch status {
	case "in-progress":
		return "🔄"
	case "in-test":
		return "🧪"
	default:
		return "📝"
	}
}
