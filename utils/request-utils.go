package utils

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

const DefaultMaxUploadBytes = 64 << 20

type MultipartResult struct {
	File       []byte
	FileName   string
	Properties Properties
}

type Properties struct {
	WKT           string
	ExcludeParcel string
}

var ErrNoUpload = errors.New("no file uploaded")

// ReadMultiPartForm reads the file under fileKey along with the wkt and car
// form values. A missing file is not an error; File is left nil.
func ReadMultiPartForm(r *http.Request, fileKey string, maxBytes int64) (MultipartResult, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	var result MultipartResult
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return result, fmt.Errorf("failed to parse multipart form: %w", err)
	}

	result.Properties.WKT = firstValue(r.MultipartForm.Value["wkt"])
	result.Properties.ExcludeParcel = firstValue(r.MultipartForm.Value["car"])

	var fileHeader *multipart.FileHeader
	if headers := r.MultipartForm.File[fileKey]; len(headers) > 0 {
		fileHeader = headers[0]
	}
	if fileHeader == nil {
		return result, nil
	}

	file, err := fileHeader.Open()
	if err != nil {
		return result, fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	result.File, err = io.ReadAll(io.LimitReader(file, maxBytes))
	if err != nil {
		return result, fmt.Errorf("failed to read upload: %w", err)
	}
	result.FileName = filepath.Base(fileHeader.Filename)
	return result, nil
}

// SaveUpload writes the uploaded bytes to a temp file that keeps the upload's
// extension. The returned cleanup removes it.
func SaveUpload(result MultipartResult) (string, func(), error) {
	if len(result.File) == 0 {
		return "", func() {}, ErrNoUpload
	}
	dir, err := os.MkdirTemp("", "upload_")
	if err != nil {
		return "", func() {}, fmt.Errorf("failed to create temp directory: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	name := result.FileName
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "upload.zip"
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, result.File, 0o600); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("failed to save upload: %w", err)
	}
	return path, cleanup, nil
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
