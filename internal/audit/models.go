// Package audit records one entry per gated request asynchronously and serves
// the recorded entries page by page.
package audit

import (
	"time"
	"unicode/utf8"
)

const (
	// MaxIncomingLength bounds the serialized request inputs, in characters.
	MaxIncomingLength = 2048
	// MaxResultLength bounds the serialized outcome, in characters.
	MaxResultLength = 4096
)

// Record is one audited request. ID is assigned by the store on insert and is
// zero before that. Records are immutable once written.
type Record struct {
	ID          int64
	RequestTime time.Time
	Endpoint    string
	Incoming    string
	Result      string
	Success     bool
}

// NewRecord builds a record with Incoming and Result truncated to their limits.
func NewRecord(requestTime time.Time, endpoint, incoming, result string, success bool) Record {
	return Record{
		RequestTime: requestTime,
		Endpoint:    endpoint,
		Incoming:    Truncate(incoming, MaxIncomingLength),
		Result:      Truncate(result, MaxResultLength),
		Success:     success,
	}
}

// Truncate cuts s to at most max characters without splitting a rune.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max || utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// Page is one slice of an ordered result set.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Last          bool  `json:"last"`
}

// NewPage derives the page metadata. A size of zero yields a single empty page.
func NewPage[T any](content []T, page, size int, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	totalPages := 1
	if size > 0 {
		totalPages = int(PageCount(total, size))
	}
	return Page[T]{
		Content:       content,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    totalPages,
		Last:          page >= totalPages-1,
	}
}

// PageCount is the number of pages of the given size needed for total items.
// It divides before rounding up so large sizes cannot overflow.
func PageCount(total int64, size int) int64 {
	if size <= 0 || total <= 0 {
		return 0
	}
	pages := total / int64(size)
	if total%int64(size) != 0 {
		pages++
	}
	return pages
}

// MapPage converts page content while keeping its metadata.
func MapPage[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, len(p.Content))
	for i, item := range p.Content {
		out[i] = fn(item)
	}
	return Page[U]{
		Content:       out,
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
		Last:          p.Last,
	}
}
