package core

import (
	"errors"
	"strings"
)

// ProofFormatMessage is shown next to the file input when a proof is rejected.
const ProofFormatMessage = "Format invalide. Seuls les fichiers jpg, jpeg ou png sont acceptés."

var ErrInvalidProofFormat = errors.New("invalid proof format: only jpg, jpeg or png accepted")

var proofExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// UploadedFile is a proof file picked in the form. It only lives for the
// duration of the upload.
type UploadedFile struct {
	Name     string
	MIMEType string
	Content  []byte
}

// Extension returns the lowercased text after the last dot of the name,
// or "" when the name has no dot.
func (f UploadedFile) Extension() string {
	return FileExtension(f.Name)
}

// Validate accepts only jpg, jpeg and png proofs.
func (f UploadedFile) Validate() error {
	return ValidateProofName(f.Name)
}

// FileExtension returns the lowercased suffix after the last dot of name.
func FileExtension(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// ValidateProofName checks the extension of a proof file name.
func ValidateProofName(name string) error {
	if _, ok := proofExtensions[FileExtension(name)]; !ok {
		return ErrInvalidProofFormat
	}
	return nil
}
