package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/session"
	"billed/internal/store"
	"billed/internal/view"
)

var ErrDraftSubmitted = errors.New("draft already submitted")

// State of a submission session.
type State int

const (
	StateIdle State = iota
	StateFileRejected
	StateFileAccepted
	StateFileUploaded
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFileRejected:
		return "file_rejected"
	case StateFileAccepted:
		return "file_accepted"
	case StateFileUploaded:
		return "file_uploaded"
	case StateSubmitted:
		return "submitted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Draft holds what the upload returned. File fields stay nil until it does.
type Draft struct {
	Key      string
	FileURL  *string
	FileName *string
}

// Submission drives the new-bill form for one draft.
type Submission struct {
	bills    store.BillStore
	form     view.FormPort
	session  session.Accessor
	navigate Navigator
	opts     options

	mu    sync.Mutex
	state State
	draft Draft
}

// NewSubmission starts an Idle draft. bills may be nil, in which case
// nothing is persisted.
func NewSubmission(bills store.BillStore, form view.FormPort, sess session.Accessor, navigate Navigator, opts ...Option) *Submission {
	return &Submission{
		bills:    bills,
		form:     form,
		session:  sess,
		navigate: navigate,
		opts:     newOptions(log.ComponentSubmission, opts),
	}
}

func (s *Submission) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Submission) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// OnFileSelected validates the proof and uploads it in the background.
// A rejected file resolves immediately with core.ErrInvalidProofFormat.
func (s *Submission) OnFileSelected(ctx context.Context, file core.UploadedFile) *Pending {
	s.mu.Lock()
	if s.state == StateSubmitted {
		s.mu.Unlock()
		return resolved(ErrDraftSubmitted)
	}
	s.form.RemoveFileError()
	if err := file.Validate(); err != nil {
		s.form.ShowFileError(core.ProofFormatMessage)
		s.form.ClearFileInput()
		s.state = StateFileRejected
		s.mu.Unlock()
		s.opts.logger.DebugContext(ctx, "Proof rejected", log.FieldFileName, file.Name)
		return resolved(err)
	}
	s.mu.Unlock()

	user, err := session.CurrentUser(s.session)
	if err != nil {
		return resolved(err)
	}
	req, err := store.NewUploadRequest(file, user.Email)
	if err != nil {
		return resolved(err)
	}

	s.mu.Lock()
	s.state = StateFileAccepted
	s.mu.Unlock()

	if s.bills == nil {
		return resolved(nil)
	}

	p := newPending()
	go func() {
		bctx, cancel := s.opts.detach(ctx)
		defer cancel()

		res, err := s.bills.Create(bctx, req)
		if err != nil {
			s.opts.logger.ErrorContext(bctx, "Proof upload failed",
				log.FieldFileName, file.Name,
				log.FieldEmail, user.Email,
				log.FieldError, err)
			s.mu.Lock()
			if s.state == StateFileAccepted {
				s.state = StateIdle
				if s.draft.FileURL != nil {
					s.state = StateFileUploaded
				}
			}
			s.mu.Unlock()
			p.resolve(fmt.Errorf("upload proof: %w", err))
			return
		}

		s.mu.Lock()
		s.draft = Draft{
			Key:      res.Key,
			FileURL:  core.StringPtr(res.FileURL),
			FileName: core.StringPtr(file.Name),
		}
		if s.state != StateSubmitted {
			s.state = StateFileUploaded
		}
		s.mu.Unlock()

		s.opts.logger.InfoContext(bctx, "Proof uploaded",
			log.FieldBillID, res.Key,
			log.FieldFileURL, res.FileURL,
			log.FieldFileName, file.Name)
		p.resolve(nil)
	}()
	return p
}

// OnSubmit builds a pending bill from the form and the draft, persists it in
// the background and navigates to the list without waiting. File fields are
// whatever the draft holds at this point, possibly nil if the upload is
// still running.
func (s *Submission) OnSubmit(ctx context.Context, fields view.Fields) *Pending {
	s.mu.Lock()
	if s.state == StateSubmitted {
		s.mu.Unlock()
		return resolved(ErrDraftSubmitted)
	}
	s.mu.Unlock()

	user, err := session.CurrentUser(s.session)
	if err != nil {
		return resolved(err)
	}

	s.mu.Lock()
	draft := s.draft
	s.state = StateSubmitted
	s.mu.Unlock()

	bill := core.Bill{
		Email:      user.Email,
		Type:       value(fields, view.FieldExpenseType),
		Name:       value(fields, view.FieldExpenseName),
		Amount:     core.ParseAmount(value(fields, view.FieldAmount)),
		Date:       value(fields, view.FieldDate),
		VAT:        value(fields, view.FieldVAT),
		Pct:        core.ParsePct(value(fields, view.FieldPct)),
		Commentary: value(fields, view.FieldCommentary),
		FileURL:    draft.FileURL,
		FileName:   draft.FileName,
		Status:     core.StatusPending,
	}

	p := s.UpdateBill(ctx, bill)
	s.navigate.to(PathBills)
	return p
}

// UpdateBill stores bill under the key captured at upload and navigates to
// the list once the store accepts it. Without a store it does nothing.
func (s *Submission) UpdateBill(ctx context.Context, bill core.Bill) *Pending {
	if s.bills == nil {
		return resolved(nil)
	}
	data, err := json.Marshal(bill)
	if err != nil {
		return resolved(fmt.Errorf("encode bill: %w", err))
	}

	s.mu.Lock()
	key := s.draft.Key
	s.mu.Unlock()

	p := newPending()
	go func() {
		bctx, cancel := s.opts.detach(ctx)
		defer cancel()

		err := s.bills.Update(bctx, store.UpdateRequest{Data: data, Selector: key})
		if err != nil {
			fields := log.NewFields().WithBill(bill).WithOperation(log.OpUpdate).WithError(err)
			s.opts.logger.ErrorContext(bctx, "Bill update failed", fields.ToSlice()...)
			p.resolve(fmt.Errorf("update bill: %w", err))
			return
		}
		s.navigate.to(PathBills)
		p.resolve(nil)
	}()
	return p
}

func value(f view.Fields, id view.FieldID) string {
	if f == nil {
		return ""
	}
	v, _ := f.Value(id)
	return v
}
