package services

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bean-loyalty/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	streamPollInterval = 2 * time.Second
	// Rows may commit after a later row was already delivered; each poll
	// re-reads this window behind the newest delivered created_at.
	streamLookback = 5 * time.Second
)

// activityCursor is what one stream has delivered so far.
type activityCursor struct {
	start  time.Time
	newest time.Time
	sent   map[string]time.Time
}

func newActivityCursor(start time.Time) *activityCursor {
	return &activityCursor{start: start, newest: start, sent: map[string]time.Time{}}
}

// pollActivity returns rows not yet delivered on this stream, oldest first,
// and marks them delivered. Rows from before the stream started are skipped.
func (s *ActivityService) pollActivity(ctx context.Context, userID string, cur *activityCursor) ([]models.Activity, error) {
	rows, err := s.Since(ctx, userID, cur.newest.Add(-streamLookback))
	if err != nil {
		return nil, err
	}

	var fresh []models.Activity
	for _, a := range rows {
		if a.CreatedAt.Before(cur.start) {
			continue
		}
		if _, seen := cur.sent[a.ID]; seen {
			continue
		}
		cur.sent[a.ID] = a.CreatedAt
		if a.CreatedAt.After(cur.newest) {
			cur.newest = a.CreatedAt
		}
		fresh = append(fresh, a)
	}

	horizon := cur.newest.Add(-streamLookback)
	for id, at := range cur.sent {
		if at.Before(horizon) {
			delete(cur.sent, id)
		}
	}
	return fresh, nil
}

// streamActivity writes SSE frames until ctx ends or the client goes away.
func (s *ActivityService) streamActivity(ctx context.Context, w *bufio.Writer, userID string, cur *activityCursor, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.WriteString(":\n\n")
	if err := w.Flush(); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		fresh, err := s.pollActivity(ctx, userID, cur)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("[SSE] activity query failed", zap.String("user_id", userID), zap.Error(err))
			continue
		}
		if len(fresh) == 0 {
			// keepalive
			w.WriteString(":\n\n")
		}
		for _, a := range fresh {
			payload, err := json.Marshal(a)
			if err != nil {
				s.log.Error("[SSE] ❌ cannot encode activity", zap.String("activity_id", a.ID), zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "event: activity\nid: %s\ndata: %s\n\n", a.ID, payload)
		}
		if err := w.Flush(); err != nil {
			// client went away
			return
		}
	}
}

// StreamActivitySSE streams new ledger activity for the authenticated user
// as server-sent events, starting from connection time.
func (s *ActivityService) StreamActivitySSE(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": "unauthorized"})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	// The fiber.Ctx is recycled once this handler returns; capture what the writer needs.
	base := c.UserContext()
	shutdown := c.Context().Done()
	cur := newActivityCursor(time.Now().UTC())

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(base)
		defer cancel()
		go func() {
			select {
			case <-shutdown:
				cancel()
			case <-ctx.Done():
			}
		}()
		s.streamActivity(ctx, w, userID, cur, streamPollInterval)
	})
	return nil
}
