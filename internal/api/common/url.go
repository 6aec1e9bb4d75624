// Package common holds helpers shared by the v1 handlers.
package common

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"unicode"

	"github.com/go-chi/chi/v5"
)

// MaxIDLength bounds ticket and attempt ids accepted from a path.
const MaxIDLength = 64

var (
	errEmptyID     = errors.New("id cannot be empty")
	errBadEncoding = errors.New("invalid URL encoding in id")
	errIDSpace     = errors.New("id cannot contain whitespace")
	errIDTooLong   = errors.New("id is too long")
)

// PathID returns the decoded {id} route parameter of r.
func PathID(r *http.Request) (string, error) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		return "", errBadEncoding
	}
	if strings.TrimSpace(id) == "" {
		return "", errEmptyID
	}
	if strings.IndexFunc(id, unicode.IsSpace) >= 0 {
		return "", errIDSpace
	}
	if len(id) > MaxIDLength {
		return "", errIDTooLong
	}
	return id, nil
}
