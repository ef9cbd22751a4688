package booking

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"carrental/internal/apiclient"
	"carrental/internal/models"
)

// DefaultDebounce is how long date changes settle before availability is checked.
const DefaultDebounce = 400 * time.Millisecond

// Step of the booking form.
type Step int

const (
	StepSelectingDates Step = iota
	StepConfirmingDetails
	StepCompleted
)

func (s Step) String() string {
	switch s {
	case StepSelectingDates:
		return "selecting_dates"
	case StepConfirmingDetails:
		return "confirming_details"
	case StepCompleted:
		return "completed"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// AvailabilityStatus is the orthogonal availability sub-state.
type AvailabilityStatus int

const (
	AvailabilityIdle AvailabilityStatus = iota
	AvailabilityChecking
	AvailabilityAvailable
	AvailabilityUnavailable
)

func (s AvailabilityStatus) String() string {
	switch s {
	case AvailabilityIdle:
		return "idle"
	case AvailabilityChecking:
		return "checking"
	case AvailabilityAvailable:
		return "available"
	case AvailabilityUnavailable:
		return "unavailable"
	}
	return fmt.Sprintf("availability(%d)", int(s))
}

// Availability is the result of the latest applied check.
type Availability struct {
	Status        AvailabilityStatus
	ConflictDates []models.Date
	// Err is set when the latest check failed; Status is then idle.
	Err error
}

// Blocking reasons for Proceed.
var (
	ErrNoDates             = errors.New("booking: select both rental dates")
	ErrInvalidRange        = errors.New("booking: end date is before start date")
	ErrCheckInProgress     = errors.New("booking: availability check in progress")
	ErrDatesUnavailable    = errors.New("booking: selected dates are unavailable")
	ErrAvailabilityUnknown = errors.New("booking: availability has not been confirmed")
	ErrSubmitInProgress    = errors.New("booking: submission already in progress")
	ErrWrongStep           = errors.New("booking: action not allowed in this step")
	ErrClosed              = errors.New("booking: flow closed")
)

// UnavailableError carries the dates that collide with existing bookings.
type UnavailableError struct {
	ConflictDates []models.Date
}

func (e *UnavailableError) Error() string {
	if len(e.ConflictDates) == 0 {
		return ErrDatesUnavailable.Error()
	}
	dates := make([]string, len(e.ConflictDates))
	for i, d := range e.ConflictDates {
		dates[i] = d.String()
	}
	return fmt.Sprintf("%s: %s", ErrDatesUnavailable.Error(), strings.Join(dates, ", "))
}

func (e *UnavailableError) Unwrap() error { return ErrDatesUnavailable }

// API is what the flow needs from the backend client.
type API interface {
	CheckCarAvailability(ctx context.Context, carID string, start, end models.Date) (*models.Availability, error)
	CreateBooking(ctx context.Context, draft models.BookingDraft) (*models.Booking, error)
}

// Waiter blocks for d or until ctx is done.
type Waiter func(ctx context.Context, d time.Duration) error

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// FlowOption customizes a Flow.
type FlowOption func(*Flow)

func WithDebounce(d time.Duration) FlowOption {
	return func(f *Flow) { f.debounce = d }
}

// WithWaiter replaces the debounce timer.
func WithWaiter(w Waiter) FlowOption {
	return func(f *Flow) { f.wait = w }
}

// WithRenter books under a user id instead of as a guest.
func WithRenter(userID string) FlowOption {
	return func(f *Flow) {
		if userID != "" {
			f.renterID = userID
		}
	}
}

func WithLogger(logger *zap.Logger) FlowOption {
	return func(f *Flow) { f.logger = logger }
}

type checkParams struct {
	carID string
	start models.Date
	end   models.Date
}

// Flow is the state of one booking form. It is safe for concurrent use.
type Flow struct {
	api      API
	car      models.Car
	renterID string
	debounce time.Duration
	wait     Waiter
	logger   *zap.Logger

	base   context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	step         Step
	start, end   models.Date
	availability Availability
	checkSeq     uint64
	checkCancel  context.CancelFunc
	checkDone    chan struct{}
	submitting   bool
	lastErr      error
	booking      *models.Booking
	closed       bool
}

// NewFlow starts a flow for car at its per-day price.
func NewFlow(api API, car models.Car, opts ...FlowOption) (*Flow, error) {
	if car.ID == "" {
		return nil, errors.New("booking: car id is required")
	}
	if car.Price <= 0 {
		return nil, errors.Newf("booking: car %s has no positive daily price", car.ID)
	}

	f := &Flow{
		api:      api,
		car:      car,
		renterID: models.GuestUserID,
		debounce: DefaultDebounce,
		wait:     sleep,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.Named("booking").With(zap.String("car_id", car.ID))
	f.base, f.cancel = context.WithCancel(context.Background())
	return f, nil
}

// SetDates records the selection and restarts the debounced availability
// check. A zero date means "not selected".
func (f *Flow) SetDates(start, end models.Date) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	if f.step != StepSelectingDates {
		return ErrWrongStep
	}

	f.start, f.end = start, end
	f.restartCheckLocked()
	return nil
}

func (f *Flow) restartCheckLocked() {
	if f.checkCancel != nil {
		f.checkCancel()
		f.checkCancel = nil
	}
	f.checkSeq++

	if f.start.IsZero() || f.end.IsZero() || f.end.Before(f.start) {
		f.availability = Availability{Status: AvailabilityIdle}
		f.checkDone = nil
		return
	}

	ctx, cancel := context.WithCancel(f.base)
	done := make(chan struct{})
	f.availability = Availability{Status: AvailabilityChecking}
	f.checkCancel = cancel
	f.checkDone = done

	params := checkParams{carID: f.car.ID, start: f.start, end: f.end}
	go f.runCheck(ctx, cancel, f.checkSeq, params, done)
}

func (f *Flow) runCheck(ctx context.Context, cancel context.CancelFunc, seq uint64, p checkParams, done chan struct{}) {
	defer close(done)
	defer cancel()

	if err := f.wait(ctx, f.debounce); err != nil {
		return
	}

	res, err := f.api.CheckCarAvailability(ctx, p.carID, p.start, p.end)

	f.mu.Lock()
	defer f.mu.Unlock()

	if seq != f.checkSeq || f.start != p.start || f.end != p.end {
		f.logger.Debug("discarding stale availability result",
			zap.Stringer("start", p.start), zap.Stringer("end", p.end))
		return
	}
	f.checkCancel = nil

	switch {
	case err != nil && (apiclient.IsAbort(err) || ctx.Err() != nil):
		// Superseded elsewhere; whoever superseded it owns the state.
		f.availability = Availability{Status: AvailabilityIdle}
	case err != nil:
		f.logger.Warn("availability check failed", zap.Error(err))
		f.availability = Availability{Status: AvailabilityIdle, Err: err}
	case res.Available:
		f.availability = Availability{Status: AvailabilityAvailable}
	default:
		f.availability = Availability{Status: AvailabilityUnavailable, ConflictDates: res.ConflictDates}
	}
}

// WaitForAvailability blocks until the pending check (if any) settles and
// returns the resulting availability.
func (f *Flow) WaitForAvailability(ctx context.Context) (Availability, error) {
	for {
		f.mu.Lock()
		done := f.checkDone
		state := f.availability
		f.mu.Unlock()

		if done == nil || state.Status != AvailabilityChecking {
			return state, nil
		}
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-done:
		}
		// A newer check may have started meanwhile; loop to wait for it too.
		f.mu.Lock()
		same := f.checkDone == done
		state = f.availability
		f.mu.Unlock()
		if same {
			return state, nil
		}
	}
}

// Availability returns the current availability sub-state.
func (f *Flow) Availability() Availability {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.availability
}

// Step returns the current step.
func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Proceed moves from date selection to confirmation, or reports what blocks it.
func (f *Flow) Proceed() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	if f.step != StepSelectingDates {
		return ErrWrongStep
	}
	if err := f.blockerLocked(); err != nil {
		return err
	}
	f.step = StepConfirmingDetails
	return nil
}

func (f *Flow) blockerLocked() error {
	if f.start.IsZero() || f.end.IsZero() {
		return ErrNoDates
	}
	if f.end.Before(f.start) {
		return ErrInvalidRange
	}
	switch f.availability.Status {
	case AvailabilityAvailable:
		return nil
	case AvailabilityChecking:
		return ErrCheckInProgress
	case AvailabilityUnavailable:
		return &UnavailableError{ConflictDates: f.availability.ConflictDates}
	}
	if f.availability.Err != nil {
		return errors.Mark(errors.Wrap(f.availability.Err, ErrAvailabilityUnknown.Error()), ErrAvailabilityUnknown)
	}
	return ErrAvailabilityUnknown
}

// Back returns from confirmation to date selection.
func (f *Flow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepConfirmingDetails {
		return ErrWrongStep
	}
	if f.submitting {
		return ErrSubmitInProgress
	}
	f.step = StepSelectingDates
	return nil
}

// Submit validates the renter and creates the booking in pending/pending.
// Only one submission can be outstanding. Once completed, Submit returns the
// stored booking without calling the backend again.
func (f *Flow) Submit(ctx context.Context, renter RenterDetails) (*models.Booking, error) {
	f.mu.Lock()
	if f.step == StepCompleted {
		b := f.booking
		f.mu.Unlock()
		return b, nil
	}
	if f.closed {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	if f.step != StepConfirmingDetails {
		f.mu.Unlock()
		return nil, ErrWrongStep
	}
	if f.submitting {
		f.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	if err := ValidateRenter(renter); err != nil {
		f.lastErr = err
		f.mu.Unlock()
		return nil, err
	}

	renter = renter.Normalize()
	quote := NewQuote(f.start, f.end, f.car.Price)
	draft := models.BookingDraft{
		CarID:         f.car.ID,
		UserID:        f.renterID,
		StartDate:     f.start,
		EndDate:       f.end,
		TotalPrice:    quote.Total,
		Status:        models.BookingPending,
		PaymentStatus: models.PaymentPending,
		UserDetails:   &models.UserDetails{Name: renter.Name, Email: renter.Email, Phone: renter.Phone},
	}
	f.submitting = true
	f.lastErr = nil
	f.mu.Unlock()

	created, err := f.api.CreateBooking(ctx, draft)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false
	if err != nil {
		f.lastErr = err
		f.logger.Warn("booking submission failed", zap.Error(err))
		return nil, err
	}
	if created == nil {
		created = &models.Booking{}
	}
	f.booking = created
	f.step = StepCompleted
	f.logger.Info("booking created", zap.String("booking_id", created.ID), zap.Int64("total", created.TotalPrice))
	return created, nil
}

// Close cancels pending checks. The flow rejects further changes.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.cancel()
	f.checkCancel = nil
	if f.availability.Status == AvailabilityChecking {
		f.availability = Availability{Status: AvailabilityIdle}
	}
}

// View is everything a form needs to render.
type View struct {
	Step         Step
	Start        models.Date
	End          models.Date
	Quote        *Quote
	Availability Availability
	CanProceed   bool
	// Blocker explains why CanProceed is false while selecting dates.
	Blocker    error
	Submitting bool
	LastError  error
	Booking    *models.Booking
}

// Snapshot returns a consistent view of the flow.
func (f *Flow) Snapshot() View {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := View{
		Step:         f.step,
		Start:        f.start,
		End:          f.end,
		Availability: f.availability,
		Submitting:   f.submitting,
		LastError:    f.lastErr,
		Booking:      f.booking,
	}
	if !f.start.IsZero() && !f.end.IsZero() && !f.end.Before(f.start) {
		q := NewQuote(f.start, f.end, f.car.Price)
		v.Quote = &q
	}
	if f.step == StepSelectingDates {
		v.Blocker = f.blockerLocked()
		v.CanProceed = v.Blocker == nil && !f.closed
	}
	return v
}
