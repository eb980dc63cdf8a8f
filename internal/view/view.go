// Package view describes the page surface the billing flows drive.
package view

// FieldID addresses a form element by its test identifier.
type FieldID string

const (
	FieldExpenseType FieldID = "expense-type"
	FieldExpenseName FieldID = "expense-name"
	FieldAmount      FieldID = "amount"
	FieldDate        FieldID = "datepicker"
	FieldVAT         FieldID = "vat"
	FieldPct         FieldID = "pct"
	FieldCommentary  FieldID = "commentary"
	FieldFile        FieldID = "file"
	FormNewBill      FieldID = "form-new-bill"
)

// AttrBillURL is the attribute carrying the proof URL on preview triggers.
const AttrBillURL = "data-bill-url"

// Fields reads submitted form values.
type Fields interface {
	Value(id FieldID) (string, bool)
}

// FormPort is the new-bill form.
type FormPort interface {
	Fields
	// ClearFileInput resets the file input so the same file can be chosen again.
	ClearFileInput()
	ShowFileError(msg string)
	RemoveFileError()
}

// PreviewPort is the proof preview modal on the listing page.
type PreviewPort interface {
	ModalWidth() int
	RenderProof(url string, width int)
	ShowModal()
}

// Trigger is the element a user interaction came from.
type Trigger interface {
	Attr(name string) (string, bool)
}

// Attrs is a Trigger backed by a map.
type Attrs map[string]string

func (a Attrs) Attr(name string) (string, bool) {
	v, ok := a[name]
	return v, ok
}

// FormValues is a Fields backed by a map, as decoded from a request.
type FormValues map[FieldID]string

func (f FormValues) Value(id FieldID) (string, bool) {
	v, ok := f[id]
	return v, ok
}
