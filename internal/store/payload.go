package store

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"

	"billed/internal/core"
)

// HeaderNoContentType tells transports to let the multipart body carry its
// own content type.
const HeaderNoContentType = "noContentType"

// CreateRequest carries a multipart upload with a "file" and an "email" part.
type CreateRequest struct {
	Body        []byte
	ContentType string
	Headers     map[string]string
}

// Upload is the decoded form of a CreateRequest.
type Upload struct {
	Email string
	File  core.UploadedFile
}

// NewUploadRequest builds the multipart payload sent when a proof is selected.
func NewUploadRequest(file core.UploadedFile, email string) (CreateRequest, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	contentType := file.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return CreateRequest{}, fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(file.Content); err != nil {
		return CreateRequest{}, fmt.Errorf("write file part: %w", err)
	}
	if err := mw.WriteField("email", email); err != nil {
		return CreateRequest{}, fmt.Errorf("write email part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return CreateRequest{}, fmt.Errorf("close multipart writer: %w", err)
	}

	return CreateRequest{
		Body:        buf.Bytes(),
		ContentType: mw.FormDataContentType(),
		Headers:     map[string]string{HeaderNoContentType: "true"},
	}, nil
}

// ParseUpload decodes the multipart body of a CreateRequest.
func ParseUpload(req CreateRequest) (Upload, error) {
	_, params, err := mime.ParseMediaType(req.ContentType)
	if err != nil {
		return Upload{}, fmt.Errorf("parse content type: %w", err)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return Upload{}, fmt.Errorf("parse content type: missing boundary")
	}

	var up Upload
	var hasFile, hasEmail bool
	mr := multipart.NewReader(bytes.NewReader(req.Body), boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Upload{}, fmt.Errorf("read multipart: %w", err)
		}
		data, err := io.ReadAll(part)
		if err != nil {
			return Upload{}, fmt.Errorf("read part %s: %w", part.FormName(), err)
		}
		switch part.FormName() {
		case "file":
			up.File = core.UploadedFile{
				Name:     part.FileName(),
				MIMEType: part.Header.Get("Content-Type"),
				Content:  data,
			}
			hasFile = true
		case "email":
			up.Email = string(data)
			hasEmail = true
		}
	}
	if !hasFile {
		return Upload{}, ErrMissingFile
	}
	if !hasEmail {
		return Upload{}, ErrMissingEmail
	}
	return up, nil
}
