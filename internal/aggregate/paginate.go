package aggregate

import "pointsScope/internal/model"

// Page is one slice of a ranked board. Bounds are 1-based positions in the
// full board and are both zero for an empty page.
type Page struct {
	Entries    []model.LeaderboardEntry
	Page       int
	Size       int
	LowerBound int
	UpperBound int
	TotalItems int
	TotalPages int
}

// Paginate slices a ranked board. Pages past the end are empty, not errors.
func Paginate(ranked []model.LeaderboardEntry, page, size int) (Page, error) {
	if page < 1 || size < 1 {
		return Page{}, ErrInvalidPage
	}
	total := len(ranked)
	out := Page{
		Entries:    []model.LeaderboardEntry{},
		Page:       page,
		Size:       size,
		TotalItems: total,
		TotalPages: (total + size - 1) / size,
	}
	if page > out.TotalPages {
		return out, nil
	}

	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	out.Entries = append(out.Entries, ranked[start:end]...)
	out.LowerBound = start + 1
	out.UpperBound = end
	return out, nil
}
