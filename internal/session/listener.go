// Package session reacts to session expiry reported by the API client. The
// client only purges credentials; routing the user back to the login screen
// happens here.
package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"carrental/internal/apiclient"
)

// DefaultLoginRoute is where expired sessions are sent.
const DefaultLoginRoute = "/admin/login"

// Navigator moves the user to a route. A nil Navigator means the runtime has
// no navigable location and expiry is only logged.
type Navigator interface {
	Navigate(ctx context.Context, route string) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, route string) error

func (f NavigatorFunc) Navigate(ctx context.Context, route string) error { return f(ctx, route) }

// Source is the part of the API client the listener subscribes to.
type Source interface {
	OnSessionExpired(fn apiclient.SessionListener) func()
}

// Listener routes expired sessions to the login route. Concurrent 401s
// collapse into one navigation until Reset is called (e.g. after login).
type Listener struct {
	navigator  Navigator
	loginRoute string
	logger     *zap.Logger

	mu          sync.Mutex
	redirected  bool
	unsubscribe func()
}

// NewListener subscribes to src. Call Stop to unsubscribe.
func NewListener(src Source, navigator Navigator, loginRoute string, logger *zap.Logger) *Listener {
	if loginRoute == "" {
		loginRoute = DefaultLoginRoute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Listener{
		navigator:  navigator,
		loginRoute: loginRoute,
		logger:     logger.Named("session"),
	}
	l.unsubscribe = src.OnSessionExpired(l.handle)
	return l
}

func (l *Listener) handle(ctx context.Context, apiErr *apiclient.APIError) {
	l.mu.Lock()
	if l.redirected {
		l.mu.Unlock()
		return
	}
	l.redirected = true
	l.mu.Unlock()

	l.logger.Info("session expired", zap.Int("status", apiErr.Status), zap.String("route", l.loginRoute))
	if l.navigator == nil {
		return
	}
	if err := l.navigator.Navigate(ctx, l.loginRoute); err != nil {
		l.logger.Warn("navigation to login failed", zap.Error(err))
	}
}

// Expired reports whether an expiry has been handled since the last Reset.
func (l *Listener) Expired() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.redirected
}

// Reset re-arms the listener after the user authenticated again.
func (l *Listener) Reset() {
	l.mu.Lock()
	l.redirected = false
	l.mu.Unlock()
}

// Stop unsubscribes from the client.
func (l *Listener) Stop() {
	l.mu.Lock()
	unsubscribe := l.unsubscribe
	l.unsubscribe = nil
	l.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}
