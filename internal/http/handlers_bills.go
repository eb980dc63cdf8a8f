package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"slices"

	"billed/internal/billing"
	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/session"
	"billed/internal/view"
)

type pageData struct {
	Title      string
	User       *core.User
	ModalWidth int

	Bills []billing.FormattedBill

	ExpenseTypes []string
	Values       map[string]string
	File         fileInputData
}

func (s *Server) render(name string, data any) ([]byte, error) {
	if s.templates == nil {
		return nil, errors.New("templates not loaded")
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Server) writePage(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	body, err := s.render(name, data)
	if err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			"template", name)
		ErrorResponse(http.StatusInternalServerError, "Erreur interne.").Write(w)
		return
	}
	NewHTMXResponse().Status(status).BodyHTML(body).Write(w)
}

func (s *Server) listing(preview view.PreviewPort, navigate billing.Navigator) *billing.Listing {
	return billing.NewListing(s.bills, preview, navigate,
		billing.WithLogger(s.logger),
		billing.WithTimeout(s.opts.StoreTimeout))
}

// listBills serves the user's listing from cache when possible.
func (s *Server) listBills(ctx context.Context, user core.User) ([]billing.FormattedBill, error) {
	if bills, ok := s.listCache.Get(user.Email); ok {
		log.FromContext(ctx).WithComponent(log.ComponentCache).DebugContext(ctx, "Listing cache hit", log.FieldCount, len(bills))
		return slices.Clone(bills), nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	bills, err := s.listing(nil, nil).GetBills(ctx)
	if err != nil {
		return nil, err
	}
	s.listCache.Set(user.Email, slices.Clone(bills))
	return bills, nil
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(r)

	bills, err := s.listBills(ctx, user)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to list bills",
			log.FieldOperation, log.OpList,
			log.FieldError, err)
		ErrorResponse(http.StatusBadGateway, "Impossible de charger les notes de frais.").Write(w)
		return
	}

	s.writePage(w, r, http.StatusOK, "bills.html", pageData{
		Title:      "Notes de frais",
		User:       &user,
		ModalWidth: s.opts.ModalWidth,
		Bills:      bills,
	})
}

func (s *Server) handleNewBillButton(w http.ResponseWriter, r *http.Request) {
	target := billing.PathNewBill
	s.listing(nil, func(path string) { target = path }).OnNewBillButtonClicked()
	redirect(w, r, target)
}

func (s *Server) handleProofPreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	doc := view.NewDocument(s.opts.ModalWidth)
	trigger := view.Attrs{}
	if u := r.URL.Query().Get("url"); u != "" {
		trigger[view.AttrBillURL] = u
	}

	if err := s.listing(doc, nil).OnPreviewIconClicked(trigger); err != nil {
		log.FromContext(ctx).InfoContext(ctx, "Proof preview without url",
			log.FieldOperation, log.OpPreview,
			log.FieldError, err)
		ErrorResponse(http.StatusBadRequest, "Justificatif introuvable.").Write(w)
		return
	}

	body, err := s.render("proof_preview", doc.Proofs())
	if err != nil {
		log.FromContext(ctx).WithComponent(log.ComponentTemplate).ErrorContext(ctx, "Template execution failed",
			log.FieldError, err,
			"template", "proof_preview")
		ErrorResponse(http.StatusInternalServerError, "Erreur interne.").Write(w)
		return
	}

	resp := NewHTMXResponse().BodyHTML(body)
	if doc.ModalShown() > 0 {
		resp.TriggerModalShow()
	}
	resp.Write(w)
}

// pageFields maps template value keys to form field ids.
var pageFields = map[string]view.FieldID{
	"type":       view.FieldExpenseType,
	"name":       view.FieldExpenseName,
	"date":       view.FieldDate,
	"amount":     view.FieldAmount,
	"vat":        view.FieldVAT,
	"pct":        view.FieldPct,
	"commentary": view.FieldCommentary,
}

func (s *Server) newBillPage(user core.User, d *draft) pageData {
	values := make(map[string]string, len(pageFields))
	for key, id := range pageFields {
		values[key], _ = d.doc.Value(id)
	}
	return pageData{
		Title:        "Nouvelle note de frais",
		User:         &user,
		ExpenseTypes: core.ExpenseTypes,
		Values:       values,
		File:         d.fileInput(),
	}
}

func (s *Server) handleNewBillPage(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	d := s.newDraft(r.Context(), user)
	s.writePage(w, r, http.StatusOK, "new_bill.html", s.newBillPage(user, d))
}

func (s *Server) handleUploadProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(r)

	file, err := ParseProofFile(w, r, s.opts.MaxUploadBytes)
	if err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Invalid proof upload",
			log.FieldOperation, log.OpUpload,
			log.FieldError, err)
		msg := "Fichier manquant."
		if errors.Is(err, errProofTooLarge) {
			msg = "Fichier trop volumineux."
		}
		ErrorResponse(http.StatusBadRequest, msg).Write(w)
		return
	}

	d := s.currentDraft(ctx, user)
	d.doc.SelectFile(file.Name)
	p := d.sub.OnFileSelected(ctx, file)

	select {
	case <-p.Done():
		if s.writeFlowError(w, r, p.Err()) {
			return
		}
	default:
	}

	s.writePage(w, r, http.StatusOK, "file_input", d.fileInput())
}

func (s *Server) handleSubmitBill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(r)

	fields, err := ParseBillForm(w, r, s.opts.MaxUploadBytes)
	if err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Invalid bill form", log.FieldError, err)
		ErrorResponse(http.StatusBadRequest, "Formulaire invalide.").Write(w)
		return
	}

	d := s.currentDraft(ctx, user)
	for id, v := range fields {
		d.doc.SetField(id, v)
	}

	p := d.sub.OnSubmit(ctx, d.doc)
	select {
	case <-p.Done():
		if s.writeFlowError(w, r, p.Err()) {
			return
		}
	default:
	}

	target := d.lastLocation()
	if target == "" {
		target = billing.PathBills
	}
	redirect(w, r, target)
}

// writeFlowError answers for errors a flow resolved synchronously. Upload and
// update failures are only logged by the flows and are not reported here.
func (s *Server) writeFlowError(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, billing.ErrDraftSubmitted):
		ErrorResponse(http.StatusConflict, "Cette note de frais a déjà été envoyée.").Write(w)
	case errors.Is(err, session.ErrNoUser), errors.Is(err, session.ErrInvalidUser):
		s.unauthorized(w, r, err.Error())
	case errors.Is(err, core.ErrInvalidProofFormat):
		// the form shows the message next to the input
		return false
	default:
		return false
	}
	return true
}
