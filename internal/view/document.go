package view

import "sync"

var (
	_ FormPort    = (*Document)(nil)
	_ PreviewPort = (*Document)(nil)
)

// Proof is a rendered preview image.
type Proof struct {
	URL   string
	Width int
}

// Document is an in-memory page. The HTTP server keeps one per draft and
// renders templates from it; tests inspect it directly.
type Document struct {
	mu         sync.Mutex
	fields     map[FieldID]string
	fileInput  string
	fileErrors []string
	proofs     []Proof
	modalWidth int
	modalShown int
}

func NewDocument(modalWidth int) *Document {
	return &Document{
		fields:     make(map[FieldID]string),
		modalWidth: modalWidth,
	}
}

func (d *Document) SetField(id FieldID, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fields[id] = value
}

func (d *Document) Value(id FieldID) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.fields[id]
	return v, ok
}

// SelectFile records the name held by the file input.
func (d *Document) SelectFile(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fileInput = name
}

func (d *Document) FileInput() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fileInput
}

func (d *Document) ClearFileInput() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fileInput = ""
}

// ShowFileError appends an error node. Callers remove the previous one first.
func (d *Document) ShowFileError(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fileErrors = append(d.fileErrors, msg)
}

func (d *Document) RemoveFileError() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n := len(d.fileErrors); n > 0 {
		d.fileErrors = d.fileErrors[:n-1]
	}
}

// FileErrors returns the error nodes currently in the page.
func (d *Document) FileErrors() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.fileErrors...)
}

func (d *Document) ModalWidth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.modalWidth
}

// RenderProof replaces the modal body with a single image.
func (d *Document) RenderProof(url string, width int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.proofs = []Proof{{URL: url, Width: width}}
}

func (d *Document) Proofs() []Proof {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Proof(nil), d.proofs...)
}

func (d *Document) ShowModal() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.modalShown++
}

// ModalShown counts ShowModal calls.
func (d *Document) ModalShown() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.modalShown
}
