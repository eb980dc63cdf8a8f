package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"billed/internal/amqp"
	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/session"
	"billed/internal/store"
)

var _ store.BillStore = (*BillService)(nil)

// ProofStore keeps uploaded proof files and returns their public URL.
type ProofStore interface {
	Save(ctx context.Context, key, ext string, content []byte) (string, error)
}

// Publisher announces stored bills to the sync worker.
type Publisher interface {
	PublishBillSubmitted(ctx context.Context, msg *amqp.BillSubmittedMessage) error
}

// BillService is the bills backend: proofs go to a ProofStore, records to a
// repository, and every update is announced on the message bus.
type BillService struct {
	repo      store.Repository
	proofs    ProofStore
	publisher Publisher
	newKey    func() string
	logger    *log.Logger
}

type Option func(*BillService)

// WithPublisher enables bill.submitted events.
func WithPublisher(p Publisher) Option {
	return func(s *BillService) { s.publisher = p }
}

func WithLogger(l *log.Logger) Option {
	return func(s *BillService) { s.logger = l.WithComponent(log.ComponentBills) }
}

// WithKeyFunc replaces the uuid key generator.
func WithKeyFunc(f func() string) Option {
	return func(s *BillService) { s.newKey = f }
}

func NewBillService(repo store.Repository, proofs ProofStore, opts ...Option) *BillService {
	s := &BillService{
		repo:   repo,
		proofs: proofs,
		newKey: uuid.NewString,
		logger: log.New(log.DefaultConfig()).WithComponent(log.ComponentBills),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores the proof of a multipart upload and reserves a pending bill
// for it.
func (s *BillService) Create(ctx context.Context, req store.CreateRequest) (store.CreateResult, error) {
	up, err := store.ParseUpload(req)
	if err != nil {
		return store.CreateResult{}, fmt.Errorf("parse upload: %w", err)
	}
	if strings.TrimSpace(up.Email) == "" {
		return store.CreateResult{}, store.ErrMissingEmail
	}
	if err := up.File.Validate(); err != nil {
		return store.CreateResult{}, err
	}
	if err := s.checkOwner(ctx, up.Email); err != nil {
		return store.CreateResult{}, err
	}

	key := s.newKey()
	url, err := s.proofs.Save(ctx, key, up.File.Extension(), up.File.Content)
	if err != nil {
		return store.CreateResult{}, fmt.Errorf("save proof: %w", err)
	}

	bill := core.Bill{
		ID:       key,
		Email:    up.Email,
		Pct:      core.DefaultPct,
		FileURL:  core.StringPtr(url),
		FileName: core.StringPtr(up.File.Name),
		Status:   core.StatusPending,
	}
	if err := s.repo.Insert(ctx, bill); err != nil {
		return store.CreateResult{}, fmt.Errorf("insert bill: %w", err)
	}

	s.logger.InfoContext(ctx, "Proof stored",
		log.FieldOperation, log.OpCreate,
		log.FieldBillID, key,
		log.FieldEmail, up.Email,
		log.FieldFileURL, url)
	return store.CreateResult{FileURL: url, Key: key}, nil
}

// Update saves the JSON bill under the selector. An empty selector gets a
// fresh key. File fields missing from the payload keep their stored values.
func (s *BillService) Update(ctx context.Context, req store.UpdateRequest) error {
	var b core.Bill
	if err := json.Unmarshal(req.Data, &b); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidUpdate, err)
	}
	if b.Status == "" {
		b.Status = core.StatusPending
	}
	if err := b.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidUpdate, err)
	}
	if err := s.checkOwner(ctx, b.Email); err != nil {
		return err
	}

	b.ID = req.Selector
	if b.ID == "" {
		b.ID = s.newKey()
		s.logger.WarnContext(ctx, "Update without selector, assigning a new key",
			log.FieldBillID, b.ID,
			log.FieldEmail, b.Email)
	} else {
		existing, err := s.repo.Get(ctx, b.ID)
		switch {
		case err == nil:
			if err := s.checkOwner(ctx, existing.Email); err != nil {
				return err
			}
			if b.FileURL == nil {
				b.FileURL = existing.FileURL
			}
			if b.FileName == nil {
				b.FileName = existing.FileName
			}
		case !errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("load bill: %w", err)
		}
	}

	if err := s.repo.Save(ctx, b); err != nil {
		return fmt.Errorf("save bill: %w", err)
	}

	fields := log.NewFields().WithBill(b).WithOperation(log.OpUpdate)
	s.logger.InfoContext(ctx, "Bill saved", fields.ToSlice()...)

	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No publisher configured, skipping bill.submitted")
		return nil
	}
	if err := s.publisher.PublishBillSubmitted(ctx, amqp.NewBillSubmittedMessage(b)); err != nil {
		// The bill is saved; the sheet mirror catches up on the next update.
		s.logger.ErrorContext(ctx, "Failed to publish bill.submitted",
			log.FieldOperation, log.OpPublish,
			log.FieldBillID, b.ID,
			log.FieldError, err)
	}
	return nil
}

// List returns the session user's bills. Admins and callers without a
// session see every bill.
func (s *BillService) List(ctx context.Context) ([]core.Bill, error) {
	email := ""
	if u, err := session.UserFromContext(ctx); err == nil && !u.IsAdmin() {
		email = u.Email
	}
	bills, err := s.repo.List(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	return bills, nil
}

func (s *BillService) checkOwner(ctx context.Context, email string) error {
	u, err := session.UserFromContext(ctx)
	if err != nil || u.IsAdmin() || u.Email == email {
		return nil
	}
	return store.ErrForbidden
}
