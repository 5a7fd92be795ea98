package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-management/internal/config"
)

func TestEventLine(t *testing.T) {
	amount := decimal.RequireFromString("24")
	ev := Event{
		ID:         "abc",
		Type:       OrderPlaced,
		OccurredAt: time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC),
		UserID:     7,
		OrderID:    12,
		Lines:      2,
		Amount:     &amount,
	}
	assert.Equal(t,
		"[2026-03-01T18:30:00Z] order.placed | id=abc | user_id=7 | order_id=12 | lines=2 | amount=24.00\n",
		ev.Line())
}

func TestNewEventStampsIDAndTime(t *testing.T) {
	a, b := NewEvent(ReservationCreated), NewEvent(ReservationCreated)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, a.ID, 36)
	assert.WithinDuration(t, time.Now(), a.OccurredAt, time.Second)
}

func TestConsumerHandleAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "activity.log")
	c := NewConsumer(config.EventsConfig{LogPath: path}, nil)

	ev := NewEvent(ReservationCreated)
	ev.ReservationID, ev.TableID, ev.UserID = 3, 4, 5
	ev.Date, ev.StartTime, ev.EndTime, ev.People = "2026-05-01", 18, 20, 4
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	require.NoError(t, c.Handle(body))
	require.NoError(t, c.Handle(body))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "reservation.created")
	assert.Contains(t, lines[0], "date=2026-05-01 | hours=18-20 | people=4")
}

func TestConsumerHandleRejectsBadBodies(t *testing.T) {
	c := NewConsumer(config.EventsConfig{LogPath: filepath.Join(t.TempDir(), "a.log")}, nil)
	assert.Error(t, c.Handle([]byte("{not json")))
	assert.Error(t, c.Handle([]byte(`{"id":"x"}`)))
}
