package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carrental/internal/booking"
	"carrental/internal/config"
	"carrental/internal/models"
	"carrental/internal/session"
)

func backend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /cars/c1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(models.Car{ID: "c1", Title: "Kia Rio", Price: 2000, Seats: 5})
	})
	mux.HandleFunc("POST /cars/c1/availability", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(models.Availability{Available: true})
	})
	mux.HandleFunc("POST /bookings", func(w http.ResponseWriter, r *http.Request) {
		var draft models.BookingDraft
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(models.Booking{
			ID: "b-1", CarID: draft.CarID, UserID: draft.UserID,
			StartDate: draft.StartDate, EndDate: draft.EndDate, TotalPrice: draft.TotalPrice,
			Status: draft.Status, PaymentStatus: draft.PaymentStatus,
		})
	})
	mux.HandleFunc("GET /users/profile", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestBookingEndToEnd(t *testing.T) {
	srv := backend(t)

	cfg := config.Default()
	cfg.API.BaseURL = srv.URL
	cfg.Session.Store = config.StoreMemory
	cfg.Booking.DebounceMillis = 0

	a, err := New(context.Background(), cfg, zap.NewNop(), Deps{HTTPClient: srv.Client()})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	flow, car, err := a.NewBookingFlow(context.Background(), "c1")
	require.NoError(t, err)
	defer flow.Close()
	assert.Equal(t, int64(2000), car.Price)

	require.NoError(t, flow.SetDates(models.NewDate(2025, time.March, 1), models.NewDate(2025, time.March, 1)))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	state, err := flow.WaitForAvailability(ctx)
	require.NoError(t, err)
	require.Equal(t, booking.AvailabilityAvailable, state.Status)
	require.NoError(t, flow.Proceed())

	created, err := flow.Submit(context.Background(), booking.RenterDetails{
		Name: "Anna", Email: "anna@example.com", Phone: "89123456789", Agreed: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2000), created.TotalPrice)
	assert.Equal(t, models.GuestUserID, created.UserID)
	assert.Equal(t, models.BookingPending, created.Status)
}

func TestSessionExpiryNavigates(t *testing.T) {
	srv := backend(t)
	redisSrv := miniredis.RunT(t)

	cfg := config.Default()
	cfg.API.BaseURL = srv.URL
	cfg.Session.Store = config.StoreRedis
	cfg.Redis.Addr = redisSrv.Addr()

	var routes []string
	nav := session.NavigatorFunc(func(_ context.Context, route string) error {
		routes = append(routes, route)
		return nil
	})

	a, err := New(context.Background(), cfg, zap.NewNop(), Deps{HTTPClient: srv.Client(), Navigator: nav})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	require.NoError(t, a.Client().SetToken(context.Background(), "tok"))
	stored, err := redisSrv.Get("carrental:session:auth_token")
	require.NoError(t, err)
	assert.Equal(t, "tok", stored)

	_, err = a.Client().GetProfile(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"/admin/login"}, routes)
	assert.False(t, redisSrv.Exists("carrental:session:auth_token"))
}

func TestNewFailsOnUnreachableRedis(t *testing.T) {
	cfg := config.Default()
	cfg.Session.Store = config.StoreRedis
	cfg.Redis.Addr = "127.0.0.1:1"

	_, err := New(context.Background(), cfg, zap.NewNop(), Deps{})
	require.Error(t, err)
}
