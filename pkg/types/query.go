package types

import (
	"fmt"
	"math"
	"strings"
)

// Direction is the order of a sort key.
type Direction string

// Sort directions.
const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// ParseDirection normalizes a direction token. The empty string means Asc.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToUpper(strings.TrimSpace(s))) {
	case "", Asc:
		return Asc, true
	case Desc:
		return Desc, true
	}
	return "", false
}

// Sort is one key of an ORDER BY list. The first key of a list is the
// primary one.
type Sort struct {
	Field     string    `json:"field" yaml:"field"`
	Direction Direction `json:"direction" yaml:"direction"`
}

// Paging selects a window of Size rows starting at page Index.
type Paging struct {
	Size  int `json:"size" yaml:"size"`
	Index int `json:"index" yaml:"index"`
}

// Validate checks the window against the page index base of the DAO
// (0 or 1).
func (p Paging) Validate(base int) error {
	if p.Size <= 0 {
		return fmt.Errorf("%w: size must be positive, got %d", ErrInvalidPaging, p.Size)
	}
	if p.Index < base {
		return fmt.Errorf("%w: index must be at least %d, got %d", ErrInvalidPaging, base, p.Index)
	}
	if pages := p.Index - base; pages > 0 && p.Size > math.MaxInt/pages {
		return fmt.Errorf("%w: offset of page %d with size %d overflows", ErrInvalidPaging, p.Index, p.Size)
	}
	return nil
}

// Offset returns the number of rows skipped before the window:
// Size × (Index − base).
func (p Paging) Offset(base int) int {
	return p.Size * (p.Index - base)
}

// Query combines the optional parts of a listing.
type Query struct {
	Filter  Filter
	Sorting []Sort
	Paging  *Paging
}
