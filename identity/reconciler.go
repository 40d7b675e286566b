package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/bishopmatthew/messagecenter/limits"
)

// Store persists the identity.
type Store interface {
	LoadIdentity(ctx context.Context) (Identity, error)
	SaveIdentity(ctx context.Context, id Identity) error
}

// Reconciler compares newly supplied addresses with the last persisted
// identity. It never compares against what a dialog displayed.
type Reconciler struct {
	store Store
	mu    sync.Mutex
}

// NewReconciler creates a reconciler backed by store.
func NewReconciler(store Store) *Reconciler {
	return &Reconciler{store: store}
}

// Load returns the persisted identity.
func (r *Reconciler) Load(ctx context.Context) (Identity, error) {
	return r.store.LoadIdentity(ctx)
}

// RecordAddress persists address as the current contact address and returns
// the diff to deliver. It returns a nil diff when address is empty or equal
// to the persisted value.
//
// The initial address is set on first touch only: to the prior address if
// there was one, otherwise to address itself.
func (r *Reconciler) RecordAddress(ctx context.Context, address string) (*Diff, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, nil
	}
	if err := limits.ValidateAddress(address); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.store.LoadIdentity(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}
	if current.Address == address {
		logrus.WithFields(logrus.Fields{
			"function": "RecordAddress",
		}).Debug("Address unchanged, no diff")
		return nil, nil
	}

	next := current
	next.Address = address
	if next.InitialAddress == "" {
		if current.Address != "" {
			next.InitialAddress = current.Address
		} else {
			next.InitialAddress = address
		}
	}

	if err := r.store.SaveIdentity(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to save identity: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":      "RecordAddress",
		"had_previous":  current.Address != "",
		"initial_fixed": current.InitialAddress != "",
	}).Info("Contact address updated")

	changed := address
	return &Diff{Email: &changed}, nil
}

// SetInitialAddress seeds the initial address supplied by the host app.
// It has no effect once an initial address exists. It reports whether the
// value was stored.
func (r *Reconciler) SetInitialAddress(ctx context.Context, address string) (bool, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return false, nil
	}
	if err := limits.ValidateAddress(address); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.store.LoadIdentity(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load identity: %w", err)
	}
	if current.InitialAddress != "" {
		return false, nil
	}

	current.InitialAddress = address
	if err := r.store.SaveIdentity(ctx, current); err != nil {
		return false, fmt.Errorf("failed to save identity: %w", err)
	}
	return true, nil
}
