package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carrental/internal/apiclient"
	"carrental/internal/models"
)

type fakeAPI struct {
	mu       sync.Mutex
	checks   []checkParams
	creates  []models.BookingDraft
	checkFn  func(ctx context.Context, n int, p checkParams) (*models.Availability, error)
	createFn func(ctx context.Context, draft models.BookingDraft) (*models.Booking, error)
}

func (f *fakeAPI) CheckCarAvailability(ctx context.Context, carID string, start, end models.Date) (*models.Availability, error) {
	p := checkParams{carID: carID, start: start, end: end}
	f.mu.Lock()
	f.checks = append(f.checks, p)
	n := len(f.checks)
	fn := f.checkFn
	f.mu.Unlock()

	if fn == nil {
		return &models.Availability{Available: true}, nil
	}
	return fn(ctx, n, p)
}

func (f *fakeAPI) CreateBooking(ctx context.Context, draft models.BookingDraft) (*models.Booking, error) {
	f.mu.Lock()
	f.creates = append(f.creates, draft)
	fn := f.createFn
	f.mu.Unlock()

	if fn == nil {
		return &models.Booking{
			ID: "b1", CarID: draft.CarID, StartDate: draft.StartDate, EndDate: draft.EndDate,
			TotalPrice: draft.TotalPrice, Status: draft.Status, PaymentStatus: draft.PaymentStatus,
		}, nil
	}
	return fn(ctx, draft)
}

func (f *fakeAPI) checkCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.checks)
}

func (f *fakeAPI) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates)
}

var testCar = models.Car{ID: "c1", Title: "Kia Rio", Price: 1500, Seats: 5}

func newTestFlow(t *testing.T, api API, opts ...FlowOption) *Flow {
	t.Helper()
	opts = append([]FlowOption{WithDebounce(0)}, opts...)
	f, err := NewFlow(api, testCar, opts...)
	require.NoError(t, err)
	t.Cleanup(f.Close)
	return f
}

func selectAndWait(t *testing.T, f *Flow, start, end models.Date) Availability {
	t.Helper()
	require.NoError(t, f.SetDates(start, end))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	state, err := f.WaitForAvailability(ctx)
	require.NoError(t, err)
	return state
}

func TestNewFlowRejectsBadCar(t *testing.T) {
	_, err := NewFlow(&fakeAPI{}, models.Car{ID: "c1"})
	require.Error(t, err)
	_, err = NewFlow(&fakeAPI{}, models.Car{Price: 100})
	require.Error(t, err)
}

func TestHappyPath(t *testing.T) {
	api := &fakeAPI{}
	f := newTestFlow(t, api, WithRenter("u-7"))

	state := selectAndWait(t, f, date(2025, 3, 1), date(2025, 3, 4))
	assert.Equal(t, AvailabilityAvailable, state.Status)

	view := f.Snapshot()
	require.NotNil(t, view.Quote)
	assert.Equal(t, 3, view.Quote.Days)
	assert.Equal(t, int64(4500), view.Quote.Total)
	assert.True(t, view.CanProceed)

	require.NoError(t, f.Proceed())
	assert.Equal(t, StepConfirmingDetails, f.Step())

	booking, err := f.Submit(context.Background(), validRenter())
	require.NoError(t, err)
	assert.Equal(t, StepCompleted, f.Step())
	assert.Equal(t, "b1", booking.ID)

	require.Equal(t, 1, api.createCount())
	draft := api.creates[0]
	assert.Equal(t, models.BookingPending, draft.Status)
	assert.Equal(t, models.PaymentPending, draft.PaymentStatus)
	assert.Equal(t, int64(4500), draft.TotalPrice)
	assert.Equal(t, "u-7", draft.UserID)
	assert.Equal(t, "Ivan Petrov", draft.UserDetails.Name)
}

func TestCompletedIsIdempotent(t *testing.T) {
	api := &fakeAPI{}
	f := newTestFlow(t, api)
	selectAndWait(t, f, date(2025, 3, 1), date(2025, 3, 1))
	require.NoError(t, f.Proceed())

	first, err := f.Submit(context.Background(), validRenter())
	require.NoError(t, err)
	second, err := f.Submit(context.Background(), RenterDetails{})
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, api.createCount())
	assert.ErrorIs(t, f.SetDates(date(2025, 4, 1), date(2025, 4, 2)), ErrWrongStep)
}

func TestUnavailableDatesBlockProceed(t *testing.T) {
	api := &fakeAPI{checkFn: func(_ context.Context, _ int, p checkParams) (*models.Availability, error) {
		assert.Equal(t, "c1", p.carID)
		return &models.Availability{Available: false, ConflictDates: []models.Date{date(2025, 3, 2)}}, nil
	}}
	f := newTestFlow(t, api)

	state := selectAndWait(t, f, date(2025, 3, 1), date(2025, 3, 4))
	assert.Equal(t, AvailabilityUnavailable, state.Status)
	assert.Equal(t, []models.Date{date(2025, 3, 2)}, state.ConflictDates)

	err := f.Proceed()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDatesUnavailable))
	assert.Contains(t, err.Error(), "2025-03-02")
	assert.Equal(t, StepSelectingDates, f.Step())

	view := f.Snapshot()
	assert.False(t, view.CanProceed)
	assert.True(t, errors.Is(view.Blocker, ErrDatesUnavailable))
}

func TestProceedBlockers(t *testing.T) {
	t.Run("no dates", func(t *testing.T) {
		f := newTestFlow(t, &fakeAPI{})
		assert.ErrorIs(t, f.Proceed(), ErrNoDates)

		require.NoError(t, f.SetDates(date(2025, 3, 1), models.Date{}))
		assert.ErrorIs(t, f.Proceed(), ErrNoDates)
	})

	t.Run("reversed range", func(t *testing.T) {
		api := &fakeAPI{}
		f := newTestFlow(t, api)
		require.NoError(t, f.SetDates(date(2025, 3, 4), date(2025, 3, 1)))
		assert.ErrorIs(t, f.Proceed(), ErrInvalidRange)
		assert.Equal(t, 0, api.checkCount())
	})

	t.Run("check in progress", func(t *testing.T) {
		block := make(chan struct{})
		f := newTestFlow(t, &fakeAPI{}, WithWaiter(func(ctx context.Context, _ time.Duration) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-block:
				return nil
			}
		}))
		require.NoError(t, f.SetDates(date(2025, 3, 1), date(2025, 3, 2)))
		assert.Equal(t, AvailabilityChecking, f.Availability().Status)
		assert.ErrorIs(t, f.Proceed(), ErrCheckInProgress)
		close(block)
	})

	t.Run("check failed", func(t *testing.T) {
		api := &fakeAPI{checkFn: func(context.Context, int, checkParams) (*models.Availability, error) {
			return nil, &apiclient.APIError{Status: 500, Message: "server error: 500"}
		}}
		f := newTestFlow(t, api)
		state := selectAndWait(t, f, date(2025, 3, 1), date(2025, 3, 2))
		assert.Equal(t, AvailabilityIdle, state.Status)
		require.Error(t, state.Err)

		err := f.Proceed()
		assert.True(t, errors.Is(err, ErrAvailabilityUnknown))
	})
}

func TestDebounceOnlyChecksLatestSelection(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{}
	f := newTestFlow(t, api, WithDebounce(time.Hour), WithWaiter(func(ctx context.Context, _ time.Duration) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-gate:
		}
		return ctx.Err()
	}))

	require.NoError(t, f.SetDates(date(2025, 3, 1), date(2025, 3, 2)))
	require.NoError(t, f.SetDates(date(2025, 3, 1), date(2025, 3, 3)))
	require.NoError(t, f.SetDates(date(2025, 3, 1), date(2025, 3, 5)))
	close(gate)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	state, err := f.WaitForAvailability(ctx)
	require.NoError(t, err)
	assert.Equal(t, AvailabilityAvailable, state.Status)

	require.Equal(t, 1, api.checkCount())
	assert.Equal(t, date(2025, 3, 5), api.checks[0].end)
}

func TestStaleResultIsDiscarded(t *testing.T) {
	releaseFirst := make(chan struct{})
	api := &fakeAPI{checkFn: func(_ context.Context, n int, _ checkParams) (*models.Availability, error) {
		if n == 1 {
			// Ignores cancellation to simulate a slow response that still arrives.
			<-releaseFirst
			return &models.Availability{Available: true}, nil
		}
		return &models.Availability{Available: false, ConflictDates: []models.Date{date(2025, 3, 3)}}, nil
	}}
	f := newTestFlow(t, api)

	require.NoError(t, f.SetDates(date(2025, 3, 1), date(2025, 3, 2)))
	require.Eventually(t, func() bool { return api.checkCount() == 1 }, 5*time.Second, time.Millisecond)

	state := selectAndWait(t, f, date(2025, 3, 1), date(2025, 3, 4))
	assert.Equal(t, AvailabilityUnavailable, state.Status)

	close(releaseFirst)
	assert.Never(t, func() bool {
		return f.Availability().Status != AvailabilityUnavailable
	}, 100*time.Millisecond, 5*time.Millisecond)
	assert.ErrorIs(t, f.Proceed(), ErrDatesUnavailable)
}

func TestSubmitValidationKeepsConfirming(t *testing.T) {
	api := &fakeAPI{}
	f := newTestFlow(t, api)
	selectAndWait(t, f, date(2025, 3, 1), date(2025, 3, 2))
	require.NoError(t, f.Proceed())

	r := validRenter()
	r.Phone = "12345"
	_, err := f.Submit(context.Background(), r)
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Contains(t, verrs, "phone")
	assert.Equal(t, StepConfirmingDetails, f.Step())
	assert.Equal(t, 0, api.createCount())
}

func TestSubmitFailureKeepsConfirming(t *testing.T) {
	api := &fakeAPI{createFn: func(context.Context, models.BookingDraft) (*models.Booking, error) {
		return nil, &apiclient.NetworkError{Method: "POST", Path: "/bookings", Err: errors.New("connection refused")}
	}}
	f := newTestFlow(t, api)
	selectAndWait(t, f, date(2025, 3, 1), date(2025, 3, 2))
	require.NoError(t, f.Proceed())

	_, err := f.Submit(context.Background(), validRenter())
	require.Error(t, err)
	assert.True(t, apiclient.IsNetwork(err))
	assert.Equal(t, StepConfirmingDetails, f.Step())

	view := f.Snapshot()
	assert.False(t, view.Submitting)
	assert.Error(t, view.LastError)

	api.mu.Lock()
	api.createFn = nil
	api.mu.Unlock()
	_, err = f.Submit(context.Background(), validRenter())
	require.NoError(t, err)
	assert.Equal(t, StepCompleted, f.Step())
}

func TestNoConcurrentSubmission(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	api := &fakeAPI{createFn: func(context.Context, models.BookingDraft) (*models.Booking, error) {
		close(entered)
		<-release
		return &models.Booking{ID: "b1"}, nil
	}}
	f := newTestFlow(t, api)
	selectAndWait(t, f, date(2025, 3, 1), date(2025, 3, 2))
	require.NoError(t, f.Proceed())

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background(), validRenter())
		done <- err
	}()
	<-entered

	assert.True(t, f.Snapshot().Submitting)
	_, err := f.Submit(context.Background(), validRenter())
	assert.ErrorIs(t, err, ErrSubmitInProgress)
	assert.ErrorIs(t, f.Back(), ErrSubmitInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, api.createCount())
}

func TestBackReturnsToDates(t *testing.T) {
	f := newTestFlow(t, &fakeAPI{})
	selectAndWait(t, f, date(2025, 3, 1), date(2025, 3, 2))
	require.NoError(t, f.Proceed())
	require.NoError(t, f.Back())
	assert.Equal(t, StepSelectingDates, f.Step())
	assert.ErrorIs(t, f.Back(), ErrWrongStep)
}

func TestCloseCancelsPendingCheck(t *testing.T) {
	api := &fakeAPI{}
	f := newTestFlow(t, api, WithDebounce(time.Hour))

	require.NoError(t, f.SetDates(date(2025, 3, 1), date(2025, 3, 2)))
	f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	state, err := f.WaitForAvailability(ctx)
	require.NoError(t, err)
	assert.Equal(t, AvailabilityIdle, state.Status)
	assert.Equal(t, 0, api.checkCount())
	assert.ErrorIs(t, f.SetDates(date(2025, 3, 1), date(2025, 3, 3)), ErrClosed)
}

func TestFinishedCheckReleasesContext(t *testing.T) {
	ctxs := make(chan context.Context, 2)
	api := &fakeAPI{checkFn: func(ctx context.Context, _ int, _ checkParams) (*models.Availability, error) {
		ctxs <- ctx
		return &models.Availability{Available: true}, nil
	}}
	f := newTestFlow(t, api)

	state := selectAndWait(t, f, models.NewDate(2025, time.March, 1), models.NewDate(2025, time.March, 3))
	require.Equal(t, AvailabilityAvailable, state.Status)

	checkCtx := <-ctxs
	assert.Eventually(t, func() bool { return checkCtx.Err() != nil }, time.Second, 5*time.Millisecond)
	assert.Equal(t, AvailabilityAvailable, f.Availability().Status)
}
