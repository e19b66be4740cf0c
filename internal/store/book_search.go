package store

import (
	"fmt"
	"strings"

	"github.com/bookx-exchange/apiserver/types"
)

// buildBookSearch ANDs together every predicate set on the filter. Books
// without a publication year pass the year range checks.
func buildBookSearch(filter types.BookFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q := strings.TrimSpace(filter.Query); q != "" {
		p := arg(likePattern(q))
		conds = append(conds, fmt.Sprintf("(b.title ILIKE %[1]s OR b.author ILIKE %[1]s OR b.description ILIKE %[1]s)", p))
	}
	if filter.Category != nil {
		conds = append(conds, "b.category = "+arg(*filter.Category))
	}
	if a := strings.TrimSpace(filter.Author); a != "" {
		conds = append(conds, "b.author ILIKE "+arg(likePattern(a)))
	}
	if filter.Status != nil {
		conds = append(conds, "b.status = "+arg(*filter.Status))
	}
	if filter.YearFrom != nil {
		conds = append(conds, "(b.publication_year IS NULL OR b.publication_year >= "+arg(*filter.YearFrom)+")")
	}
	if filter.YearTo != nil {
		conds = append(conds, "(b.publication_year IS NULL OR b.publication_year <= "+arg(*filter.YearTo)+")")
	}
	if filter.ExcludeOwnerID != nil {
		conds = append(conds, "b.owner_id <> "+arg(*filter.ExcludeOwnerID))
	}

	query := bookSelect
	if len(conds) > 0 {
		query += "\n\t\tWHERE " + strings.Join(conds, "\n\t\t  AND ")
	}
	query += "\n\t\tORDER BY b.created_at DESC, b.id DESC"
	return query, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
