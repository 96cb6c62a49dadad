package workers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"bean-loyalty/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	rows     []models.Activity
	err      error
	from, to time.Time
}

func (f *fakeSource) Between(_ context.Context, from, to time.Time) ([]models.Activity, error) {
	f.from, f.to = from, to
	return f.rows, f.err
}

type fakeStore struct {
	key         string
	contentType string
	body        []byte
	err         error
}

func (f *fakeStore) Put(_ context.Context, key, contentType string, body []byte) error {
	f.key, f.contentType, f.body = key, contentType, body
	return f.err
}

func TestExportKey(t *testing.T) {
	day := time.Date(2026, 3, 7, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "activity/2026/03/07.jsonl", ExportKey(day))
}

func TestActivityExporter_ExportDay(t *testing.T) {
	src := &fakeSource{rows: []models.Activity{
		{ID: "a1", ActionType: models.ActivityPointsEarned, PointsAmount: 15, UserEmail: "ana@bean.coffee"},
		{ID: "a2", ActionType: models.ActivityRewardRedeemed, PointsAmount: -120, UserEmail: "ana@bean.coffee"},
	}}
	store := &fakeStore{}
	exp := NewActivityExporter(src, store, zap.NewNop())

	n, err := exp.ExportDay(context.Background(), time.Date(2026, 10, 14, 17, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC), src.from)
	assert.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), src.to)
	assert.Equal(t, "activity/2026/10/14.jsonl", store.key)
	assert.Equal(t, "application/x-ndjson", store.contentType)

	var got []models.Activity
	sc := bufio.NewScanner(bytes.NewReader(store.body))
	for sc.Scan() {
		var a models.Activity
		require.NoError(t, json.Unmarshal(sc.Bytes(), &a))
		got = append(got, a)
	}
	require.Len(t, got, 2)
	assert.Equal(t, int64(-120), got[1].PointsAmount)
}

func TestActivityExporter_EmptyDayStillUploads(t *testing.T) {
	store := &fakeStore{}
	n, err := NewActivityExporter(&fakeSource{}, store, zap.NewNop()).
		ExportDay(context.Background(), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "activity/2026/01/01.jsonl", store.key)
	assert.Empty(t, store.body)
}

func TestActivityExporter_Errors(t *testing.T) {
	_, err := NewActivityExporter(&fakeSource{err: errors.New("db down")}, &fakeStore{}, zap.NewNop()).
		ExportDay(context.Background(), time.Now())
	assert.ErrorContains(t, err, "db down")

	_, err = NewActivityExporter(&fakeSource{}, &fakeStore{err: errors.New("r2 down")}, zap.NewNop()).
		ExportDay(context.Background(), time.Now())
	assert.ErrorContains(t, err, "r2 down")
}
