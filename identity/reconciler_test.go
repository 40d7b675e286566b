package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bishopmatthew/messagecenter/limits"
	"github.com/bishopmatthew/messagecenter/payload"
)

// memStore implements Store for testing.
type memStore struct {
	mu      sync.Mutex
	id      Identity
	saves   int
	saveErr error
	loadErr error
}

func (s *memStore) LoadIdentity(context.Context) (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id, s.loadErr
}

func (s *memStore) SaveIdentity(_ context.Context, id Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.id = id
	return nil
}

func TestRecordAddressProducesDiff(t *testing.T) {
	st := &memStore{}
	r := NewReconciler(st)

	diff, err := r.RecordAddress(context.Background(), "u@x.com")
	require.NoError(t, err)
	require.NotNil(t, diff)
	require.NotNil(t, diff.Email)
	assert.Equal(t, "u@x.com", *diff.Email)

	assert.Equal(t, Identity{Address: "u@x.com", InitialAddress: "u@x.com"}, st.id)
}

func TestRecordAddressIdempotent(t *testing.T) {
	st := &memStore{}
	r := NewReconciler(st)

	_, err := r.RecordAddress(context.Background(), "u@x.com")
	require.NoError(t, err)

	diff, err := r.RecordAddress(context.Background(), "u@x.com")
	require.NoError(t, err)
	assert.Nil(t, diff, "same address twice must not produce a second diff")

	diff, err = r.RecordAddress(context.Background(), "  u@x.com  ")
	require.NoError(t, err)
	assert.Nil(t, diff, "surrounding whitespace is not a change")
	assert.Equal(t, 1, st.saves)
}

func TestRecordAddressEmpty(t *testing.T) {
	st := &memStore{}
	diff, err := NewReconciler(st).RecordAddress(context.Background(), "   ")
	require.NoError(t, err)
	assert.Nil(t, diff)
	assert.Zero(t, st.saves)
}

func TestRecordAddressFirstTouch(t *testing.T) {
	st := &memStore{}

	// Two sessions, each with its own reconciler over the same store.
	_, err := NewReconciler(st).RecordAddress(context.Background(), "a")
	require.NoError(t, err)
	diff, err := NewReconciler(st).RecordAddress(context.Background(), "b")
	require.NoError(t, err)

	require.NotNil(t, diff)
	assert.Equal(t, "b", *diff.Email)
	assert.Equal(t, "b", st.id.Address)
	assert.Equal(t, "a", st.id.InitialAddress, "initial address is never overwritten")

	_, err = NewReconciler(st).RecordAddress(context.Background(), "c")
	require.NoError(t, err)
	assert.Equal(t, "a", st.id.InitialAddress)
}

func TestRecordAddressComparesPersistedValue(t *testing.T) {
	// The persisted value differs from anything a dialog might have shown.
	st := &memStore{id: Identity{Address: "old@x.com", InitialAddress: "seed@x.com"}}
	diff, err := NewReconciler(st).RecordAddress(context.Background(), "new@x.com")
	require.NoError(t, err)
	require.NotNil(t, diff)
	assert.Equal(t, "seed@x.com", st.id.InitialAddress)
}

func TestRecordAddressPriorBecomesInitial(t *testing.T) {
	st := &memStore{id: Identity{Address: "prior@x.com"}}
	_, err := NewReconciler(st).RecordAddress(context.Background(), "next@x.com")
	require.NoError(t, err)
	assert.Equal(t, "prior@x.com", st.id.InitialAddress)
}

func TestRecordAddressErrors(t *testing.T) {
	boom := errors.New("disk gone")

	t.Run("load failure", func(t *testing.T) {
		_, err := NewReconciler(&memStore{loadErr: boom}).RecordAddress(context.Background(), "u@x.com")
		assert.True(t, errors.Is(err, boom))
	})

	t.Run("save failure", func(t *testing.T) {
		st := &memStore{saveErr: boom}
		diff, err := NewReconciler(st).RecordAddress(context.Background(), "u@x.com")
		assert.True(t, errors.Is(err, boom))
		assert.Nil(t, diff)
	})

	t.Run("too long", func(t *testing.T) {
		_, err := NewReconciler(&memStore{}).RecordAddress(context.Background(), strings.Repeat("a", limits.MaxAddressLength+1))
		assert.True(t, errors.Is(err, limits.ErrAddressTooLong))
	})
}

func TestSetInitialAddress(t *testing.T) {
	st := &memStore{}
	r := NewReconciler(st)

	stored, err := r.SetInitialAddress(context.Background(), "host@x.com")
	require.NoError(t, err)
	assert.True(t, stored)

	stored, err = r.SetInitialAddress(context.Background(), "other@x.com")
	require.NoError(t, err)
	assert.False(t, stored)

	id, err := r.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "host@x.com", id.InitialAddress)
	assert.Empty(t, id.Address, "seeding does not set a current address")
}

func TestDiffPayload(t *testing.T) {
	email := "u@x.com"
	p, err := Diff{Email: &email}.Payload()
	require.NoError(t, err)
	assert.Equal(t, payload.KindPerson, p.Kind)
	assert.JSONEq(t, `{"person":{"email":"u@x.com"}}`, string(p.Body))

	assert.True(t, Diff{}.Empty())
	assert.False(t, Diff{Email: &email}.Empty())
}

func TestIsValidAddress(t *testing.T) {
	tests := []struct {
		address string
		want    bool
	}{
		{"u@x.com", true},
		{" u@x.com ", true},
		{"first.last+tag@sub.example.org", true},
		{"", false},
		{"u@x", false},
		{"not-an-email", false},
		{"Jo <jo@x.com>", false},
		{"@x.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidAddress(tt.address))
		})
	}
}
