package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/media"
)

const (
	multipartMemory = 8 << 20
	maxFieldBytes   = 1 << 20
)

// requestForm is the decoded body of a write request. JSON, urlencoded and
// multipart bodies all land here.
type requestForm struct {
	fields map[string]string
	files  map[string]*multipart.FileHeader
	opened []multipart.File
	form   *multipart.Form
}

// readForm decodes a body of plain fields, capped at maxFieldBytes.
// Multipart bodies are refused because these routes take no files.
func readForm(w http.ResponseWriter, r *http.Request) (*requestForm, error) {
	return decodeForm(w, r, maxFieldBytes, false)
}

// readUploadForm decodes a body that may carry files, capped at maxBytes.
func readUploadForm(w http.ResponseWriter, r *http.Request, maxBytes int64) (*requestForm, error) {
	if maxBytes <= 0 {
		maxBytes = maxFieldBytes
	}
	return decodeForm(w, r, maxBytes, true)
}

func decodeForm(w http.ResponseWriter, r *http.Request, maxBytes int64, allowFiles bool) (*requestForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	f := &requestForm{fields: map[string]string{}, files: map[string]*multipart.FileHeader{}}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if !allowFiles {
			return nil, apperr.Validation("multipart bodies are not accepted here")
		}
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, bodyError(err)
		}
		f.form = r.MultipartForm
		for key, values := range r.MultipartForm.Value {
			if len(values) > 0 {
				f.fields[key] = values[0]
			}
		}
		for key, headers := range r.MultipartForm.File {
			if len(headers) > 0 {
				f.files[key] = headers[0]
			}
		}
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, bodyError(err)
		}
		for key := range r.PostForm {
			f.fields[key] = r.PostForm.Get(key)
		}
	default:
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return nil, bodyError(err)
		}
		for key, value := range raw {
			switch v := value.(type) {
			case string:
				f.fields[key] = v
			case bool:
				f.fields[key] = strconv.FormatBool(v)
			case float64:
				f.fields[key] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
	}
	return f, nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperr.Validation(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
	}
	return apperr.Validation("invalid request body")
}

func (f *requestForm) value(key string) string {
	return f.fields[key]
}

// optional returns nil when key was not sent.
func (f *requestForm) optional(key string) *string {
	v, ok := f.fields[key]
	if !ok {
		return nil
	}
	return &v
}

func (f *requestForm) boolean(key string) (*bool, error) {
	v, ok := f.fields[key]
	if !ok || v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, apperr.Validation(key + " must be a boolean")
	}
	return &b, nil
}

// upload opens the file sent as key. It returns nil when no file was sent.
func (f *requestForm) upload(key string, kind media.Kind) (*media.Upload, error) {
	header, ok := f.files[key]
	if !ok {
		return nil, nil
	}
	file, err := header.Open()
	if err != nil {
		return nil, apperr.Internal("read "+key, err)
	}
	f.opened = append(f.opened, file)
	return &media.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Kind:        kind,
		Body:        file,
	}, nil
}

// close releases opened files and the temporary files of the multipart form.
func (f *requestForm) close() {
	for _, file := range f.opened {
		_ = file.Close()
	}
	if f.form != nil {
		_ = f.form.RemoveAll()
	}
}
