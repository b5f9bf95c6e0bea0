package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
)

const offsetPrefix = "offset:"

// PageResult represents a paginated result set
type PageResult[T any] struct {
	Items   []T    `json:"items"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"has_more"`
}

var (
	ErrInvalidCursor = errors.New("invalid cursor format")
)

// EncodeCursor creates an opaque cursor for the given result offset
func EncodeCursor(offset int) string {
	if offset <= 0 {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(offsetPrefix + strconv.Itoa(offset)))
}

// DecodeCursor returns the offset stored in cursor; an empty cursor is offset 0
func DecodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, ErrInvalidCursor
	}

	raw, ok := strings.CutPrefix(string(decoded), offsetPrefix)
	if !ok {
		return 0, ErrInvalidCursor
	}

	offset, err := strconv.Atoi(raw)
	if err != nil || offset < 0 {
		return 0, ErrInvalidCursor
	}
	return offset, nil
}

// NewPage builds a page of items taken at offset out of total ranked results.
func NewPage[T any](items []T, offset, total int) PageResult[T] {
	if items == nil {
		items = []T{}
	}
	next := offset + len(items)
	page := PageResult[T]{Items: items}
	if len(items) > 0 && next < total {
		page.HasMore = true
		page.Cursor = EncodeCursor(next)
	}
	return page
}
