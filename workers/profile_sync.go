// workers/profile_sync.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"bean-loyalty/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RemoteProfile is one entry of the profile service's change feed.
type RemoteProfile struct {
	ExternalID string    `json:"external_id"`
	Email      string    `json:"email"`
	FirstName  *string   `json:"first_name,omitempty"`
	LastName   *string   `json:"last_name,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type profileChangesResponse struct {
	Users []RemoteProfile `json:"users"`
}

// ProfileSyncWorker copies email and name changes made in the profile service
// onto existing customers. It never creates customers; that happens on first visit.
type ProfileSyncWorker struct {
	db           *gorm.DB
	baseURL      string
	endpointPath string
	serviceToken string
	httpClient   *http.Client
	log          *zap.Logger

	mu    sync.Mutex
	since time.Time
}

func NewProfileSyncWorker(db *gorm.DB, baseURL, endpointPath, serviceToken string, client *http.Client, log *zap.Logger) *ProfileSyncWorker {
	return &ProfileSyncWorker{
		db:           db,
		baseURL:      baseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient:   client,
		log:          log.With(zap.String("component", "profile_sync")),
	}
}

// SyncProfiles pulls changes since the last successful run and returns how
// many customers were updated. The first run backfills from the beginning.
func (w *ProfileSyncWorker) SyncProfiles(ctx context.Context) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	profiles, err := w.fetchChanges(ctx, w.since)
	if err != nil {
		return 0, err
	}
	if len(profiles) == 0 {
		return 0, nil
	}

	var updated, failed int
	latest := w.since
	for _, p := range profiles {
		if p.UpdatedAt.After(latest) {
			latest = p.UpdatedAt
		}
		if p.ExternalID == "" {
			continue
		}
		changes := map[string]interface{}{"full_name": fullName(p)}
		if email := strings.ToLower(strings.TrimSpace(p.Email)); email != "" {
			changes["email"] = email
		}
		res := w.db.WithContext(ctx).Model(&models.Customer{}).
			Where("external_user_id = ?", p.ExternalID).
			Updates(changes)
		if res.Error != nil {
			failed++
			w.log.Warn("[SYNC] ⚠️ failed to update customer", zap.String("external_id", p.ExternalID), zap.Error(res.Error))
			continue
		}
		updated += int(res.RowsAffected)
	}

	// Retry the whole window next time if any row failed.
	if failed == 0 {
		w.since = latest
	}
	w.log.Info("[SYNC] ✅ profiles synced",
		zap.Int("received", len(profiles)), zap.Int("updated", updated), zap.Int("errors", failed),
		zap.Time("cursor", w.since))
	return updated, nil
}

func (w *ProfileSyncWorker) fetchChanges(ctx context.Context, since time.Time) ([]RemoteProfile, error) {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid profile service URL %q: %w", w.baseURL, err)
	}
	endpoint := base.JoinPath(w.endpointPath)
	q := endpoint.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile service request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("profile service returned %d: %s", resp.StatusCode, string(body))
	}

	var out profileChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode profile changes: %w", err)
	}
	return out.Users, nil
}

func fullName(p RemoteProfile) string {
	var parts []string
	for _, s := range []*string{p.FirstName, p.LastName} {
		if s != nil && strings.TrimSpace(*s) != "" {
			parts = append(parts, strings.TrimSpace(*s))
		}
	}
	return strings.Join(parts, " ")
}
