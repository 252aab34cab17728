package option

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/railzwaylabs/caremarket/pkg/db/pagination"
	"gorm.io/gorm"
)

type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type QueryOptionFunc func(db *gorm.DB) *gorm.DB

func (f QueryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

func ApplyAll(db *gorm.DB, opts ...QueryOption) *gorm.DB {
	for _, opt := range opts {
		if opt != nil {
			db = opt.Apply(db)
		}
	}
	return db
}

type Operator string

const (
	EQ  Operator = "="
	NEQ Operator = "<>"
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
	IN  Operator = "IN"
)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

// ApplyOperator builds a single-column predicate. Field must come from
// code, never from request input.
func ApplyOperator(c Condition) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		switch c.Operator {
		case IN:
			return db.Where(fmt.Sprintf("%s IN ?", c.Field), c.Value)
		case EQ, NEQ, GT, GTE, LT, LTE:
			return db.Where(fmt.Sprintf("%s %s ?", c.Field, c.Operator), c.Value)
		default:
			return db
		}
	})
}

type SortBy struct {
	Field string
	Desc  bool
}

// WithQuerySortBy whitelists the requested sort column. Unknown columns
// fall back to created_at.
func WithQuerySortBy(field, order string, allowed map[string]bool) SortBy {
	field = strings.ToLower(strings.TrimSpace(field))
	if !allowed[field] {
		field = "created_at"
	}
	return SortBy{
		Field: field,
		Desc:  !strings.EqualFold(strings.TrimSpace(order), "asc"),
	}
}

func WithSortBy(s SortBy) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		dir := "asc"
		if s.Desc {
			dir = "desc"
		}
		return db.Order(fmt.Sprintf("%s %s", s.Field, dir))
	})
}

// ApplyPagination seeks past the cursor on (created_at, id) and fetches
// one extra row for pagination.BuildCursorPageInfo. An undecodable token
// yields an empty page.
func ApplyPagination(page pagination.Pagination) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if page.PageToken == "" && page.PageSize <= 0 {
			return db
		}
		size := pagination.NormalizePageSize(page.PageSize)

		if page.PageToken != "" {
			cursor, err := pagination.DecodeCursor(page.PageToken)
			if err != nil {
				return db.Where("1 = 0")
			}
			createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
			if err != nil {
				return db.Where("1 = 0")
			}
			var id any = cursor.ID
			if n, err := strconv.ParseInt(cursor.ID, 10, 64); err == nil {
				id = n
			}
			db = db.Where("((created_at < ?) OR (created_at = ? AND id < ?))", createdAt, createdAt, id)
		}
		return db.Limit(size + 1)
	})
}
