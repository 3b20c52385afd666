package domain

import "math"

// MaxPageSize borne la taille d'une page demandée par un client.
const MaxPageSize = 100

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseSortDirection retombe sur asc pour tout jeton inconnu, casse comprise.
func ParseSortDirection(token string) SortDirection {
	if token == string(SortDesc) {
		return SortDesc
	}
	return SortAsc
}

// PageRequest : page indexée à partir de 0, tri sur la date de création.
type PageRequest struct {
	Page int
	Size int
	Sort SortDirection // vide = plus récent d'abord
}

// Validate applique les bornes et normalise le tri.
func (r PageRequest) Validate() (PageRequest, error) {
	if r.Page < 0 {
		return r, invalid("page index must be >= 0, got %d", r.Page)
	}
	if r.Size < 1 || r.Size > MaxPageSize {
		return r, invalid("page size must be within [1, %d], got %d", MaxPageSize, r.Size)
	}
	// (Page+1)*Size doit tenir dans un int : Offset et la fin de fenêtre ne débordent jamais.
	if r.Page > math.MaxInt/r.Size-1 {
		return r, invalid("page index %d is out of range", r.Page)
	}
	switch r.Sort {
	case SortAsc, SortDesc:
	case "":
		r.Sort = SortDesc
	default:
		r.Sort = ParseSortDirection(string(r.Sort))
	}
	return r, nil
}

func (r PageRequest) Offset() int {
	return r.Page * r.Size
}

// Descending indique un tri du plus récent au plus ancien.
func (r PageRequest) Descending() bool {
	return r.Sort != SortAsc
}

// Page est le résultat d'une requête paginée.
type Page[T any] struct {
	Items      []T
	Page       int
	TotalItems int64
	TotalPages int
}

// NewPage calcule le nombre de pages à partir du total et de la taille.
func NewPage[T any](items []T, req PageRequest, total int64) *Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if req.Size > 0 && total > 0 {
		size := int64(req.Size)
		pages = int(total / size)
		if total%size != 0 {
			pages++
		}
	}
	return &Page[T]{
		Items:      items,
		Page:       req.Page,
		TotalItems: total,
		TotalPages: pages,
	}
}

// Window découpe une tranche déjà triée ; utile aux adapters en mémoire.
func Window[T any](sorted []T, req PageRequest) []T {
	start := req.Offset()
	if start < 0 || start >= len(sorted) {
		return []T{}
	}
	end := start + req.Size
	if end > len(sorted) || end < start {
		end = len(sorted)
	}
	out := make([]T, end-start)
	copy(out, sorted[start:end])
	return out
}
