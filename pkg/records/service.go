// Package records implements the client record lifecycle: listing, creation,
// full-replace updates and hard deletes, each gated by pkg/authz.
package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"p9e.in/energydesk/models"
	"p9e.in/energydesk/pkg/authz"
	"p9e.in/energydesk/validation"
)

// Store persists client records. Implementations must make every call a
// single atomic operation and return ErrNotFound for an unknown or malformed id.
type Store interface {
	List(ctx context.Context) ([]models.ClientRecord, error)
	// Insert assigns rec.ID.
	Insert(ctx context.Context, rec *models.ClientRecord) error
	// Replace overwrites every mutable field and updated_at, leaving id and
	// created_at untouched.
	Replace(ctx context.Context, id string, fields models.ClientRecordFields, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

var ErrNotFound = errors.New("record not found")

// ValidationError carries every violated field of a rejected payload.
type ValidationError struct {
	Fields validation.Violations
}

func (e *ValidationError) Error() string {
	return e.Fields.Error()
}

// Service composes the authorization gate, the record validator and a Store.
// It holds no mutable state; concurrent updates to one record are
// last-write-wins.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authorize applies the gate for action. Routes call it before decoding a
// body so auth failures win over malformed input.
func (s *Service) Authorize(id authz.Identity, action authz.Action) error {
	return s.check(id, action)
}

func (s *Service) check(id authz.Identity, action authz.Action) error {
	err := authz.Check(id, action)
	if err != nil {
		s.logger.Debug("client record access denied",
			zap.Stringer("action", action),
			zap.String("user_id", id.UserID),
			zap.Bool("admin", id.IsAdmin()),
			zap.Error(err),
		)
	}
	return err
}

// List returns every record in store order.
func (s *Service) List(ctx context.Context, id authz.Identity) ([]models.ClientRecord, error) {
	if err := s.check(id, authz.ActionRead); err != nil {
		observe(opList, err)
		return nil, err
	}
	recs, err := s.store.List(ctx)
	if err != nil {
		err = fmt.Errorf("list client records: %w", err)
		observe(opList, err)
		return nil, err
	}
	if recs == nil {
		recs = []models.ClientRecord{}
	}
	observe(opList, nil)
	return recs, nil
}

// Create validates input and stores it as a new record with
// createdAt == updatedAt.
func (s *Service) Create(ctx context.Context, id authz.Identity, input map[string]any) (*models.ClientRecord, error) {
	if err := s.check(id, authz.ActionWrite); err != nil {
		observe(opCreate, err)
		return nil, err
	}
	fields, violations := models.ParseClientRecordInput(input)
	if !violations.Empty() {
		err := &ValidationError{Fields: violations}
		observe(opCreate, err)
		return nil, err
	}

	now := s.timestamp()
	rec := &models.ClientRecord{
		ClientRecordFields: fields,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		err = fmt.Errorf("insert client record: %w", err)
		observe(opCreate, err)
		return nil, err
	}

	s.logger.Info("client record created",
		zap.String("record_id", rec.ID),
		zap.String("user_id", id.UserID),
	)
	observe(opCreate, nil)
	return rec, nil
}

// Update replaces every mutable field of record recordID.
func (s *Service) Update(ctx context.Context, id authz.Identity, recordID string, input map[string]any) error {
	if err := s.check(id, authz.ActionWrite); err != nil {
		observe(opUpdate, err)
		return err
	}
	fields, violations := models.ParseClientRecordInput(input)
	if !violations.Empty() {
		err := &ValidationError{Fields: violations}
		observe(opUpdate, err)
		return err
	}

	if err := s.store.Replace(ctx, recordID, fields, s.timestamp()); err != nil {
		if !errors.Is(err, ErrNotFound) {
			err = fmt.Errorf("update client record %s: %w", recordID, err)
		}
		observe(opUpdate, err)
		return err
	}

	s.logger.Info("client record updated",
		zap.String("record_id", recordID),
		zap.String("user_id", id.UserID),
		zap.String("status", string(fields.Status)),
	)
	observe(opUpdate, nil)
	return nil
}

// Delete removes record recordID unconditionally.
func (s *Service) Delete(ctx context.Context, id authz.Identity, recordID string) error {
	if err := s.check(id, authz.ActionWrite); err != nil {
		observe(opDelete, err)
		return err
	}
	if err := s.store.Delete(ctx, recordID); err != nil {
		if !errors.Is(err, ErrNotFound) {
			err = fmt.Errorf("delete client record %s: %w", recordID, err)
		}
		observe(opDelete, err)
		return err
	}

	s.logger.Info("client record deleted",
		zap.String("record_id", recordID),
		zap.String("user_id", id.UserID),
	)
	observe(opDelete, nil)
	return nil
}

// timestamp is UTC at millisecond precision, the resolution every backend
// stores losslessly.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}
