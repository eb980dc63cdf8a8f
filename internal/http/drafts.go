package http

import (
	"context"
	"sync"

	"billed/internal/billing"
	"billed/internal/core"
	"billed/internal/session"
	"billed/internal/view"
)

// draft is one user's new-bill page: the page model and the submission
// driving it. The last navigation target is kept for the redirect.
type draft struct {
	doc *view.Document
	sub *billing.Submission

	mu       sync.Mutex
	location string
}

func (d *draft) navigate(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.location = path
}

func (d *draft) lastLocation() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.location
}

type fileInputData struct {
	State    string
	FileName string
	Errors   []string
	Required bool
}

func (d *draft) fileInput() fileInputData {
	return fileInputData{
		State:    d.sub.State().String(),
		FileName: d.doc.FileInput(),
		Errors:   d.doc.FileErrors(),
		Required: d.sub.Draft().FileURL == nil,
	}
}

// newDraft replaces the user's draft with an empty one.
func (s *Server) newDraft(ctx context.Context, user core.User) *draft {
	d := &draft{doc: view.NewDocument(s.opts.ModalWidth)}
	d.sub = billing.NewSubmission(
		s.bills,
		d.doc,
		session.FromContext(ctx),
		s.navigator(d.navigate),
		billing.WithLogger(s.logger),
		billing.WithTimeout(s.opts.StoreTimeout),
	)
	s.drafts.Set(user.Email, d)
	return d
}

// currentDraft returns the user's draft, submitted or not, creating one when
// none is open.
func (s *Server) currentDraft(ctx context.Context, user core.User) *draft {
	if d, ok := s.drafts.Get(user.Email); ok {
		return d
	}
	return s.newDraft(ctx, user)
}

// navigator drops cached listings whenever a flow goes back to the list, so
// the next page load sees the saved bill.
func (s *Server) navigator(record func(string)) billing.Navigator {
	return func(path string) {
		if path == billing.PathBills {
			s.listCache.Purge()
		}
		if record != nil {
			record(path)
		}
	}
}
