package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"billed/internal/core"
	"billed/internal/view"
)

var (
	errMissingProofFile = errors.New("request has no file part")
	errProofTooLarge    = errors.New("proof file too large")
)

// billFormFields are the inputs of the new-bill form, named by field id.
var billFormFields = []view.FieldID{
	view.FieldExpenseType,
	view.FieldExpenseName,
	view.FieldAmount,
	view.FieldDate,
	view.FieldVAT,
	view.FieldPct,
	view.FieldCommentary,
}

// ParseBillForm reads the new-bill fields from a urlencoded, multipart or
// JSON body. Absent fields are left out of the result.
func ParseBillForm(w http.ResponseWriter, r *http.Request, maxBytes int64) (view.FormValues, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var get func(string) (string, bool)

	switch mediaType {
	case "application/json":
		var data map[string]any
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode json form: %w", err)
		}
		get = func(key string) (string, bool) {
			v, ok := data[key]
			return stringValue(v), ok
		}
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			return nil, fmt.Errorf("parse multipart form: %w", err)
		}
		get = formGetter(r.MultipartForm.Value)
	default:
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("parse form: %w", err)
		}
		get = formGetter(r.PostForm)
	}

	values := view.FormValues{}
	for _, id := range billFormFields {
		if v, ok := get(string(id)); ok {
			values[id] = sanitizeInput(v)
		}
	}
	return values, nil
}

func formGetter(form url.Values) func(string) (string, bool) {
	return func(key string) (string, bool) {
		vs, ok := form[key]
		if !ok || len(vs) == 0 {
			return "", false
		}
		return vs[0], true
	}
}

// ParseProofFile reads the "file" part of a multipart upload.
func ParseProofFile(w http.ResponseWriter, r *http.Request, maxBytes int64) (core.UploadedFile, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.UploadedFile{}, errProofTooLarge
		}
		return core.UploadedFile{}, fmt.Errorf("parse multipart form: %w", err)
	}

	f, header, err := r.FormFile(string(view.FieldFile))
	if err != nil {
		return core.UploadedFile{}, errMissingProofFile
	}
	defer f.Close()

	if header.Size > maxBytes {
		return core.UploadedFile{}, errProofTooLarge
	}
	content, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return core.UploadedFile{}, fmt.Errorf("read proof: %w", err)
	}
	if int64(len(content)) > maxBytes {
		return core.UploadedFile{}, errProofTooLarge
	}

	return core.UploadedFile{
		Name:     sanitizeInput(header.Filename),
		MIMEType: header.Header.Get("Content-Type"),
		Content:  content,
	}, nil
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
