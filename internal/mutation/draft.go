// ABOUTME: Draft recommendation and its conversion to a create request
// ABOUTME: Validates required fields and encodes the cover image as a data URL

package mutation

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/2389/bookfeed/internal/api"
)

// MaxImageBytes is the largest cover image accepted for upload.
const MaxImageBytes = 10000 * 1024

// MaxRating is the highest rating a draft may carry.
const MaxRating = 5

// Draft is a recommendation being composed. Either ImagePath or ImageData
// supplies the cover; ImageData wins when both are set.
type Draft struct {
	Title     string
	Caption   string
	Rating    int
	ImagePath string
	ImageData []byte
}

// ValidationError reports a draft that cannot be submitted. It wraps
// ErrInvalidInput.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// Request validates d and builds the POST /books body.
func (d Draft) Request() (api.CreateBookRequest, error) {
	title := strings.TrimSpace(d.Title)
	caption := strings.TrimSpace(d.Caption)

	switch {
	case title == "":
		return api.CreateBookRequest{}, &ValidationError{Field: "title", Message: MessageFillAllFields}
	case caption == "":
		return api.CreateBookRequest{}, &ValidationError{Field: "caption", Message: MessageFillAllFields}
	case d.Rating < 1 || d.Rating > MaxRating:
		return api.CreateBookRequest{}, &ValidationError{Field: "rating", Message: MessageFillAllFields}
	case d.ImagePath == "" && len(d.ImageData) == 0:
		return api.CreateBookRequest{}, &ValidationError{Field: "image", Message: MessageFillAllFields}
	}

	data := d.ImageData
	if len(data) == 0 {
		var err error
		data, err = readImage(d.ImagePath)
		if err != nil {
			return api.CreateBookRequest{}, err
		}
	}
	if len(data) > MaxImageBytes {
		return api.CreateBookRequest{}, &ValidationError{Field: "image", Message: MessageImageTooLarge}
	}

	return api.CreateBookRequest{
		Title:   title,
		Caption: caption,
		Rating:  d.Rating,
		Image:   DataURL(data, d.ImagePath),
	}, nil
}

func readImage(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &ValidationError{Field: "image", Message: MessageImageUnreadable}
	}
	if info.Size() > MaxImageBytes {
		return nil, &ValidationError{Field: "image", Message: MessageImageTooLarge}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ValidationError{Field: "image", Message: MessageImageUnreadable}
	}
	return data, nil
}

// DataURL encodes data as a base64 data URL. The media type is sniffed from
// the bytes; when that is inconclusive the file extension of name is used,
// falling back to image/jpeg.
func DataURL(data []byte, name string) string {
	return "data:" + imageType(data, name) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func imageType(data []byte, name string) string {
	if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch ext {
	case "", "jpg":
		return "image/jpeg"
	default:
		return "image/" + ext
	}
}
