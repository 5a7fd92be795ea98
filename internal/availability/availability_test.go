package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-management/internal/model"
)

type fakeStore struct {
	tables       []model.Table
	reservations []model.Reservation
	err          error
	tableCalls   int
}

func (f *fakeStore) TablesWithCapacity(_ context.Context, min int) ([]model.Table, error) {
	f.tableCalls++
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Table
	for _, t := range f.tables {
		if t.Capacity >= min {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) ReservationsOn(_ context.Context, date time.Time) ([]model.Reservation, error) {
	var out []model.Reservation
	for _, r := range f.reservations {
		if r.Date.Equal(date) {
			out = append(out, r)
		}
	}
	return out, nil
}

func ip(v int) *int { return &v }

func day(s string) time.Time {
	d, _ := time.Parse(dateLayout, s)
	return d
}

func fixedClock(s string) Option {
	return WithClock(func() time.Time { return day(s).Add(15 * time.Hour) })
}

func TestOverlaps(t *testing.T) {
	assert.True(t, Overlaps(18, 20, 19, 21))
	assert.True(t, Overlaps(9, 17, 12, 13))
	assert.True(t, Overlaps(12, 13, 9, 17))
	assert.False(t, Overlaps(9, 12, 12, 15), "touching intervals do not conflict")
	assert.False(t, Overlaps(12, 15, 9, 12))
	assert.False(t, Overlaps(8, 9, 20, 22))
}

func TestBlocksIgnoresCancelled(t *testing.T) {
	r := model.Reservation{TableID: 1, StartTime: 18, EndTime: 20, Status: model.ReservationCancelled}
	assert.False(t, Blocks(r, 18, 20))
	r.Status = model.ReservationConfirmed
	assert.True(t, Blocks(r, 19, 21))
}

func TestResolveScenario(t *testing.T) {
	store := &fakeStore{
		tables: []model.Table{
			{TableID: 1, Capacity: 4, Location: "Window", Type: "Booth"},
			{TableID: 2, Capacity: 2, Location: "Bar", Type: "High"},
		},
		reservations: []model.Reservation{
			{TableID: 1, Date: day("2024-06-01"), StartTime: 18, EndTime: 20, Status: model.ReservationPending},
		},
	}
	r := NewResolver(store, fixedClock("2024-05-30"))

	q, err := r.Parse(Request{Date: "2024-06-01", StartTime: ip(19), EndTime: ip(21), Capacity: ip(2)})
	require.NoError(t, err)

	got, err := r.Resolve(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(2), got[0].TableID)
}

func TestResolveTouchingIntervalIsFree(t *testing.T) {
	store := &fakeStore{
		tables:       []model.Table{{TableID: 7, Capacity: 4}},
		reservations: []model.Reservation{{TableID: 7, Date: day("2030-01-10"), StartTime: 9, EndTime: 12}},
	}
	r := NewResolver(store, fixedClock("2030-01-01"))
	q, err := r.Parse(Request{Date: "2030-01-10", StartTime: ip(12), EndTime: ip(15), Capacity: ip(4)})
	require.NoError(t, err)

	got, err := r.Resolve(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(7), got[0].TableID)
}

func TestResolveExcludesSmallTablesAndIsIdempotent(t *testing.T) {
	store := &fakeStore{
		tables: []model.Table{{TableID: 1, Capacity: 2}, {TableID: 2, Capacity: 6}, {TableID: 3, Capacity: 8}},
		reservations: []model.Reservation{
			{TableID: 3, Date: day("2030-01-10"), StartTime: 10, EndTime: 14},
			{TableID: 2, Date: day("2030-01-11"), StartTime: 10, EndTime: 14},
		},
	}
	r := NewResolver(store, fixedClock("2030-01-01"))
	q, err := r.Parse(Request{Date: "2030-01-10", StartTime: ip(11), EndTime: ip(13), Capacity: ip(5)})
	require.NoError(t, err)

	first, err := r.Resolve(context.Background(), q)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first, 1)
	assert.Equal(t, uint64(2), first[0].TableID)
	for _, tbl := range first {
		assert.GreaterOrEqual(t, tbl.Capacity, q.Capacity)
	}
}

func TestResolveEmptyIsNotNil(t *testing.T) {
	r := NewResolver(&fakeStore{}, fixedClock("2030-01-01"))
	got, err := r.Resolve(context.Background(), Query{Date: day("2030-01-02"), StartTime: 10, EndTime: 12, Capacity: 2})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestResolveStoreError(t *testing.T) {
	r := NewResolver(&fakeStore{err: errors.New("connection refused")}, fixedClock("2030-01-01"))
	_, err := r.Resolve(context.Background(), Query{Date: day("2030-01-02"), StartTime: 10, EndTime: 12, Capacity: 2})
	assert.ErrorContains(t, err, "connection refused")
}

func TestParseValidation(t *testing.T) {
	r := NewResolver(&fakeStore{}, fixedClock("2030-01-10"))

	cases := map[string]Request{
		"missing date":     {StartTime: ip(10), EndTime: ip(12), Capacity: ip(2)},
		"missing start":    {Date: "2030-01-10", EndTime: ip(12), Capacity: ip(2)},
		"missing capacity": {Date: "2030-01-10", StartTime: ip(10), EndTime: ip(12)},
		"zero capacity":    {Date: "2030-01-10", StartTime: ip(10), EndTime: ip(12), Capacity: ip(0)},
		"negative cap":     {Date: "2030-01-10", StartTime: ip(10), EndTime: ip(12), Capacity: ip(-1)},
		"bad date":         {Date: "10/01/2030", StartTime: ip(10), EndTime: ip(12), Capacity: ip(2)},
		"past date":        {Date: "2030-01-09", StartTime: ip(10), EndTime: ip(12), Capacity: ip(2)},
		"reversed hours":   {Date: "2030-01-10", StartTime: ip(14), EndTime: ip(12), Capacity: ip(2)},
		"empty range":      {Date: "2030-01-10", StartTime: ip(12), EndTime: ip(12), Capacity: ip(2)},
		"hour past 24":     {Date: "2030-01-10", StartTime: ip(22), EndTime: ip(25), Capacity: ip(2)},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := r.Parse(req)
			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestParseAcceptsTodayAndTimestamps(t *testing.T) {
	r := NewResolver(&fakeStore{}, fixedClock("2030-01-10"))

	q, err := r.Parse(Request{Date: "2030-01-10", StartTime: ip(0), EndTime: ip(2), Capacity: ip(1)})
	require.NoError(t, err)
	assert.Equal(t, day("2030-01-10"), q.Date)

	q, err = r.Parse(Request{Date: "2030-01-11T00:00:00Z", StartTime: ip(10), EndTime: ip(12), Capacity: ip(1)})
	require.NoError(t, err)
	assert.Equal(t, "2030-01-11", FormatDate(q.Date))
}

func TestWithHoursRestrictsRange(t *testing.T) {
	r := NewResolver(&fakeStore{}, fixedClock("2030-01-10"), WithHours(10, 22))
	assert.Error(t, r.CheckSlot(day("2030-01-11"), 9, 11))
	assert.Error(t, r.CheckSlot(day("2030-01-11"), 21, 23))
	assert.NoError(t, r.CheckSlot(day("2030-01-11"), 10, 22))
}
