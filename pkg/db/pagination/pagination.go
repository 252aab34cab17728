package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var ErrInvalidPageToken = errors.New("invalid_page_token")

type Pagination struct {
	PageToken string `form:"page_token" json:"page_token,omitempty"`
	PageSize  int    `form:"page_size" json:"page_size,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

// Cursor points at the last row of the previous page. CreatedAt is
// RFC3339Nano so rows created within the same second stay ordered.
type Cursor struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

func EncodeCursor(c Cursor) (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func DecodeCursor(token string) (Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Cursor{}, ErrInvalidPageToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, ErrInvalidPageToken
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil || c.ID == "" || c.CreatedAt == "" {
		return Cursor{}, ErrInvalidPageToken
	}
	return c, nil
}

// NormalizePageSize clamps size into (0, MaxPageSize].
func NormalizePageSize(size int) int {
	switch {
	case size <= 0:
		return DefaultPageSize
	case size > MaxPageSize:
		return MaxPageSize
	default:
		return size
	}
}

// BuildCursorPageInfo expects items fetched with a limit of pageSize+1.
// The extra row only signals that another page exists.
func BuildCursorPageInfo[T any](items []T, pageSize int32, token func(T) string) *PageInfo {
	if pageSize <= 0 {
		return &PageInfo{}
	}
	if len(items) <= int(pageSize) {
		return &PageInfo{HasMore: false}
	}
	return &PageInfo{
		HasMore:       true,
		NextPageToken: token(items[pageSize-1]),
	}
}
