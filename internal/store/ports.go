package store

import (
	"context"
	"errors"

	"billed/internal/core"
)

var (
	ErrNotFound      = errors.New("bill not found")
	ErrAlreadyExists = errors.New("bill already exists")
	ErrMissingFile   = errors.New("upload payload has no file part")
	ErrMissingEmail  = errors.New("upload payload has no email part")
	ErrInvalidUpdate = errors.New("invalid update payload")
)

// Ports for the bills resource.
type (
	// BillStore is the backend consumed by the submission and listing flows.
	BillStore interface {
		// Create stores an uploaded proof file and reserves a bill key for it.
		Create(ctx context.Context, req CreateRequest) (CreateResult, error)
		// Update persists the serialized bill under the given selector.
		Update(ctx context.Context, req UpdateRequest) error
		// List returns the bills visible to the session carried by ctx.
		List(ctx context.Context) ([]core.Bill, error)
	}

	// Repository keeps bill records. Implementations must be safe for
	// concurrent use.
	Repository interface {
		Insert(ctx context.Context, b core.Bill) error
		// Save inserts or replaces the bill with the same ID.
		Save(ctx context.Context, b core.Bill) error
		Get(ctx context.Context, id string) (core.Bill, error)
		// List returns the bills owned by email, or every bill when email is "".
		List(ctx context.Context, email string) ([]core.Bill, error)
	}

	CreateResult struct {
		FileURL string `json:"fileUrl"`
		Key     string `json:"key"`
	}

	UpdateRequest struct {
		Data     []byte
		Selector string
	}
)

// ErrForbidden is returned when a session user touches another user's bill.
var ErrForbidden = errors.New("bill belongs to another user")
