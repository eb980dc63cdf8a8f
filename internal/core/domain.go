package core

import (
	"errors"
	"fmt"
	"strings"
)

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRefused  Status = "refused"
)

const (
	UserEmployee UserType = "Employee"
	UserAdmin    UserType = "Admin"
)

// DefaultPct is the VAT percentage used when the form leaves it blank.
const DefaultPct = 20

// DateLayout is the storage format of Bill.Date.
const DateLayout = "2006-01-02"

type (
	Status   string
	UserType string

	// Bill is an expense record submitted by an employee.
	// FileURL and FileName stay nil until the proof upload resolves.
	Bill struct {
		ID         string  `json:"id,omitempty"`
		Email      string  `json:"email"`
		Type       string  `json:"type"`
		Name       string  `json:"name"`
		Amount     int     `json:"amount"`
		Date       string  `json:"date"`
		VAT        string  `json:"vat"`
		Pct        int     `json:"pct"`
		Commentary string  `json:"commentary"`
		FileURL    *string `json:"fileUrl"`
		FileName   *string `json:"fileName"`
		Status     Status  `json:"status"`
	}

	// User is the identity stored in the session under the "user" key.
	User struct {
		Type  UserType `json:"type"`
		Email string   `json:"email"`
	}
)

// ExpenseTypes lists the categories offered by the submission form.
var ExpenseTypes = []string{
	"Transports",
	"Restaurants et bars",
	"Hôtel et logement",
	"Services en ligne",
	"IT et électronique",
	"Equipement et matériel",
	"Fournitures de bureau",
}

var (
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidExpenseType = errors.New("invalid expense type")
	ErrEmptyEmail         = errors.New("empty email")
	ErrNegativeAmount     = errors.New("negative amount")
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRefused:
		return true
	}
	return false
}

// IsAdmin reports whether the user may see every employee's bills.
func (u User) IsAdmin() bool {
	return u.Type == UserAdmin
}

// IsExpenseType reports whether t belongs to ExpenseTypes.
func IsExpenseType(t string) bool {
	for _, v := range ExpenseTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Validate checks the fields a backend needs to store the bill.
// Dates and file fields are not checked: drafts may be incomplete and
// stored dates are shown raw when they cannot be parsed.
func (b Bill) Validate() error {
	if strings.TrimSpace(b.Email) == "" {
		return ErrEmptyEmail
	}
	if !b.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, b.Status)
	}
	if b.Type != "" && !IsExpenseType(b.Type) {
		return fmt.Errorf("%w: %q", ErrInvalidExpenseType, b.Type)
	}
	if b.Amount < 0 {
		return ErrNegativeAmount
	}
	return nil
}

// HasProof reports whether the upload fields were filled in.
func (b Bill) HasProof() bool {
	return b.FileURL != nil && b.FileName != nil
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string {
	return &s
}

// Deref returns the pointed string or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
