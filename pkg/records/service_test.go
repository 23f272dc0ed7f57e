package records

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"p9e.in/energydesk/models"
	"p9e.in/energydesk/pkg/authz"
)

// memStore is an in-memory Store that counts mutating calls.
type memStore struct {
	mu     sync.Mutex
	recs   []models.ClientRecord
	nextID int
	writes int
	err    error
}

func (m *memStore) List(ctx context.Context) ([]models.ClientRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.recs == nil {
		return nil, nil
	}
	return append([]models.ClientRecord(nil), m.recs...), nil
}

func (m *memStore) Insert(ctx context.Context, rec *models.ClientRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.err != nil {
		return m.err
	}
	m.nextID++
	rec.ID = fmt.Sprintf("rec-%d", m.nextID)
	m.recs = append(m.recs, *rec)
	return nil
}

func (m *memStore) Replace(ctx context.Context, id string, fields models.ClientRecordFields, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.err != nil {
		return m.err
	}
	for i := range m.recs {
		if m.recs[i].ID == id {
			m.recs[i].ClientRecordFields = fields
			m.recs[i].UpdatedAt = updatedAt
			return nil
		}
	}
	return ErrNotFound
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.err != nil {
		return m.err
	}
	for i := range m.recs {
		if m.recs[i].ID == id {
			m.recs = append(m.recs[:i], m.recs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

var (
	admin  = authz.Identity{UserID: "user_admin", Role: authz.RoleAdmin}
	member = authz.Identity{UserID: "user_member", Role: authz.RoleMember}
)

func validPayload(name string) map[string]any {
	return map[string]any{
		"businessName":          name,
		"mpanMprn":              "123",
		"soldDate":              "2025-01-01",
		"siteAddress":           "1 Road",
		"ssd":                   0.0,
		"eac":                   100.0,
		"standingCharges":       10.0,
		"dayPrice":              0.25,
		"nightPrice":            0.15,
		"terms":                 12.0,
		"kva":                   50.0,
		"uplift":                0.01,
		"commission":            100.0,
		"totalCommission":       120.0,
		"partnerSaleCommission": 20.0,
		"supplier":              "SupplierX",
		"customerName":          "Jane Doe",
		"email":                 "jane@x.com",
		"contactNumber":         "07123456789",
		"status":                "in discussion",
	}
}

// stepClock advances by one second, plus some sub-millisecond noise, per call.
type stepClock struct {
	t time.Time
}

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t.Add(456 * time.Microsecond)
}

func newTestService(st Store) *Service {
	clock := &stepClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.FixedZone("BST", 3600))}
	return NewService(st, nil, WithClock(clock.now))
}

func TestCreateThenList(t *testing.T) {
	st := &memStore{}
	svc := newTestService(st)
	ctx := context.Background()

	rec, err := svc.Create(ctx, admin, validPayload("Acme Ltd"))
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "Acme Ltd", rec.BusinessName)
	assert.Equal(t, rec.CreatedAt, rec.UpdatedAt)
	assert.Equal(t, time.UTC, rec.CreatedAt.Location())
	assert.Zero(t, rec.CreatedAt.Nanosecond()%int(time.Millisecond), "timestamps are millisecond precision")

	recs, err := svc.List(ctx, member)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, rec.ID, recs[0].ID)
	assert.Equal(t, "Acme Ltd", recs[0].BusinessName)
}

func TestListEmptyIsNotNil(t *testing.T) {
	svc := newTestService(&memStore{})

	recs, err := svc.List(context.Background(), member)
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestCreateIgnoresClientSuppliedIdentity(t *testing.T) {
	svc := newTestService(&memStore{})

	in := validPayload("Acme Ltd")
	in["_id"] = "forged"
	in["createdAt"] = "1999-01-01T00:00:00Z"
	delete(in, "status")

	rec, err := svc.Create(context.Background(), admin, in)
	require.NoError(t, err)
	assert.NotEqual(t, "forged", rec.ID)
	assert.Equal(t, 2025, rec.CreatedAt.Year())
	assert.Equal(t, models.DefaultStatus, rec.Status)
}

func TestUpdatePreservesIdentityAndCreatedAt(t *testing.T) {
	st := &memStore{}
	svc := newTestService(st)
	ctx := context.Background()

	rec, err := svc.Create(ctx, admin, validPayload("Acme Ltd"))
	require.NoError(t, err)
	rec2, err := svc.Create(ctx, admin, validPayload("Other Ltd"))
	require.NoError(t, err)

	in := validPayload("Acme Holdings")
	in["status"] = "completed"
	require.NoError(t, svc.Update(ctx, admin, rec.ID, in))

	recs, err := svc.List(ctx, admin)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	got := recs[0]
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "Acme Holdings", got.BusinessName)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, rec.CreatedAt, got.CreatedAt)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))

	assert.Equal(t, rec2.ID, recs[1].ID)
	assert.Equal(t, rec2.UpdatedAt, recs[1].UpdatedAt, "other records are untouched")
}

func TestUpdateAllowsAnyStatusTransition(t *testing.T) {
	svc := newTestService(&memStore{})
	ctx := context.Background()

	in := validPayload("Acme Ltd")
	in["status"] = "completed"
	rec, err := svc.Create(ctx, admin, in)
	require.NoError(t, err)

	in["status"] = "in progress"
	require.NoError(t, svc.Update(ctx, admin, rec.ID, in))
}

func TestUpdateAndDeleteUnknownRecord(t *testing.T) {
	st := &memStore{}
	svc := newTestService(st)
	ctx := context.Background()

	rec, err := svc.Create(ctx, admin, validPayload("Acme Ltd"))
	require.NoError(t, err)

	err = svc.Update(ctx, admin, "rec-404", validPayload("Ghost"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "not_found", Result(err))

	err = svc.Delete(ctx, admin, "rec-404")
	assert.ErrorIs(t, err, ErrNotFound)

	recs, err := svc.List(ctx, admin)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, rec.ID, recs[0].ID)
	assert.Equal(t, "Acme Ltd", recs[0].BusinessName)
}

func TestDelete(t *testing.T) {
	svc := newTestService(&memStore{})
	ctx := context.Background()

	rec, err := svc.Create(ctx, admin, validPayload("Acme Ltd"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, admin, rec.ID))
	assert.ErrorIs(t, svc.Delete(ctx, admin, rec.ID), ErrNotFound)

	recs, err := svc.List(ctx, member)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestGateRejectsWithoutTouchingStore(t *testing.T) {
	anonymous := authz.Anonymous
	noRole := authz.Identity{UserID: "user_norole"}

	tests := []struct {
		name     string
		identity authz.Identity
		run      func(s *Service, id authz.Identity) error
		expected error
	}{
		{"anonymous list", anonymous, func(s *Service, id authz.Identity) error {
			_, err := s.List(context.Background(), id)
			return err
		}, authz.ErrUnauthenticated},
		{"anonymous create with bad payload", anonymous, func(s *Service, id authz.Identity) error {
			_, err := s.Create(context.Background(), id, map[string]any{"businessName": ""})
			return err
		}, authz.ErrUnauthenticated},
		{"member create", member, func(s *Service, id authz.Identity) error {
			_, err := s.Create(context.Background(), id, validPayload("Acme Ltd"))
			return err
		}, authz.ErrForbidden},
		{"member create with bad payload", member, func(s *Service, id authz.Identity) error {
			_, err := s.Create(context.Background(), id, nil)
			return err
		}, authz.ErrForbidden},
		{"no role update", noRole, func(s *Service, id authz.Identity) error {
			return s.Update(context.Background(), id, "rec-1", validPayload("Changed"))
		}, authz.ErrForbidden},
		{"member delete", member, func(s *Service, id authz.Identity) error {
			return s.Delete(context.Background(), id, "rec-1")
		}, authz.ErrForbidden},
		{"anonymous delete", anonymous, func(s *Service, id authz.Identity) error {
			return s.Delete(context.Background(), id, "rec-1")
		}, authz.ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &memStore{}
			svc := newTestService(st)
			_, err := svc.Create(context.Background(), admin, validPayload("Acme Ltd"))
			require.NoError(t, err)
			writes := st.writes

			err = tt.run(svc, tt.identity)
			assert.ErrorIs(t, err, tt.expected)
			assert.Equal(t, writes, st.writes)
			require.Len(t, st.recs, 1)
			assert.Equal(t, "Acme Ltd", st.recs[0].BusinessName)
		})
	}
}

func TestValidationRejectsWithoutTouchingStore(t *testing.T) {
	st := &memStore{}
	svc := newTestService(st)
	ctx := context.Background()

	rec, err := svc.Create(ctx, admin, validPayload("Acme Ltd"))
	require.NoError(t, err)
	writes := st.writes

	bad := validPayload("")
	bad["ssd"] = -1.0
	bad["terms"] = 0.0
	bad["email"] = "nope"
	bad["contactNumber"] = "0712345"

	_, err = svc.Create(ctx, admin, bad)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"businessName", "contactNumber", "email", "ssd", "terms"}, verr.Fields.Fields())
	assert.Equal(t, "invalid", Result(err))

	err = svc.Update(ctx, admin, rec.ID, bad)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "SSD must be positive", verr.Fields["ssd"])

	assert.Equal(t, writes, st.writes)
	assert.Equal(t, "Acme Ltd", st.recs[0].BusinessName)
}

func TestStoreFaultsAreWrapped(t *testing.T) {
	boom := errors.New("connection reset")
	st := &memStore{err: boom}
	svc := newTestService(st)
	ctx := context.Background()

	_, err := svc.List(ctx, member)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "list client records")

	_, err = svc.Create(ctx, admin, validPayload("Acme Ltd"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "error", Result(err))

	err = svc.Update(ctx, admin, "rec-1", validPayload("Acme Ltd"))
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)

	err = svc.Delete(ctx, admin, "rec-1")
	assert.ErrorIs(t, err, boom)
}

func TestAuthorize(t *testing.T) {
	svc := newTestService(&memStore{})

	assert.NoError(t, svc.Authorize(member, authz.ActionRead))
	assert.ErrorIs(t, svc.Authorize(member, authz.ActionWrite), authz.ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(authz.Anonymous, authz.ActionRead), authz.ErrUnauthenticated)
	assert.NoError(t, svc.Authorize(admin, authz.ActionWrite))
}

func TestOperationsAreCounted(t *testing.T) {
	svc := newTestService(&memStore{})
	ctx := context.Background()

	forbidden := operationsTotal.WithLabelValues(opDelete, "forbidden")
	ok := operationsTotal.WithLabelValues(opCreate, "ok")
	beforeForbidden := testutil.ToFloat64(forbidden)
	beforeOK := testutil.ToFloat64(ok)

	_ = svc.Delete(ctx, member, "rec-1")
	_, err := svc.Create(ctx, admin, validPayload("Acme Ltd"))
	require.NoError(t, err)

	assert.Equal(t, beforeForbidden+1, testutil.ToFloat64(forbidden))
	assert.Equal(t, beforeOK+1, testutil.ToFloat64(ok))
}

func TestDeniedAccessIsLogged(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	st := &memStore{}
	svc := NewService(st, zap.New(core))
	ctx := context.Background()

	err := svc.Delete(ctx, member, "rec-1")
	require.ErrorIs(t, err, authz.ErrForbidden)
	_, err = svc.List(ctx, authz.Anonymous)
	require.ErrorIs(t, err, authz.ErrUnauthenticated)
	_, err = svc.List(ctx, member)
	require.NoError(t, err)

	denied := logs.FilterMessage("client record access denied").All()
	require.Len(t, denied, 2, "granted calls are not logged as denials")

	fields := denied[0].ContextMap()
	assert.Equal(t, "write", fields["action"])
	assert.Equal(t, "user_member", fields["user_id"])
	assert.Equal(t, false, fields["admin"])
	assert.Equal(t, authz.ErrForbidden.Error(), fields["error"])

	assert.Equal(t, "read", denied[1].ContextMap()["action"])
	assert.Equal(t, zap.DebugLevel, denied[1].Level)
}
