package app

import (
	"context"

	"github.com/cockroachdb/errors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"carrental/internal/apiclient"
	"carrental/internal/booking"
	"carrental/internal/config"
	"carrental/internal/models"
	"carrental/internal/session"
	"carrental/internal/tokenstore"
	libredis "carrental/libs/redis"
)

// App wires client dependencies.
type App struct {
	cfg      *config.Config
	client   *apiclient.Client
	listener *session.Listener
	redis    *goredis.Client
	logger   *zap.Logger
}

// Deps lets callers replace the outer edges (tests, embedding UIs).
type Deps struct {
	HTTPClient apiclient.HTTPDoer
	Notifier   apiclient.Notifier
	Navigator  session.Navigator
}

// New constructs the application graph.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, deps Deps) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	store, err := a.tokenStore(ctx)
	if err != nil {
		return nil, err
	}

	var httpClient apiclient.HTTPDoer = apiclient.NewDefaultHTTPClient(cfg.HTTPTimeout())
	if deps.HTTPClient != nil {
		httpClient = deps.HTTPClient
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = apiclient.NewLogNotifier(logger.Named("notify"))
	}

	client, err := apiclient.New(ctx, apiclient.Options{
		BaseURL:    cfg.API.BaseURL,
		HTTPClient: httpClient,
		Store:      store,
		Notifier:   notifier,
		Logger:     logger.Named("apiclient"),
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.client = client
	a.listener = session.NewListener(client, deps.Navigator, cfg.Session.LoginRoute, logger)
	return a, nil
}

func (a *App) tokenStore(ctx context.Context) (tokenstore.Store, error) {
	switch a.cfg.Session.Store {
	case config.StoreMemory:
		return tokenstore.NewMemory(), nil
	case config.StoreRedis:
		client, err := libredis.NewRedisClient(ctx, libredis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		a.redis = client
		return tokenstore.NewRedis(client, a.cfg.Redis.Namespace, a.cfg.Session.Key, a.cfg.TokenTTL()), nil
	case config.StoreFile, "":
		return tokenstore.NewFile(a.cfg.Session.FilePath, a.cfg.Session.Key), nil
	}
	return nil, errors.Newf("app: unknown token store %q", a.cfg.Session.Store)
}

// Client returns the shared API client.
func (a *App) Client() *apiclient.Client { return a.client }

// Session returns the session-expiry listener.
func (a *App) Session() *session.Listener { return a.listener }

// NewBookingFlow loads the car and starts a booking form for it. Logged-in
// users book under their own id, everyone else as a guest.
func (a *App) NewBookingFlow(ctx context.Context, carID string) (*booking.Flow, *models.Car, error) {
	car, err := a.client.GetCar(ctx, carID)
	if err != nil {
		return nil, nil, err
	}

	renter := models.GuestUserID
	if claims, err := a.client.Claims(); err == nil && claims.UserID != "" {
		renter = claims.UserID
	}

	flow, err := booking.NewFlow(a.client, *car,
		booking.WithDebounce(a.cfg.Debounce()),
		booking.WithRenter(renter),
		booking.WithLogger(a.logger),
	)
	if err != nil {
		return nil, nil, err
	}
	return flow, car, nil
}

// Close releases acquired resources.
func (a *App) Close() {
	if a.listener != nil {
		a.listener.Stop()
	}
	if a.client != nil {
		a.client.CancelAll()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
