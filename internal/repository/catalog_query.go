package repository

import (
	"fmt"
	"strings"
)

// MaxCatalogLimit caps how many rows a bounded catalog read may return.
const MaxCatalogLimit = 100

// CatalogFilter holds the optional criteria of a catalog read. Nil or blank
// criteria contribute no predicate.
type CatalogFilter struct {
	Type   *string
	Genre  *string
	Search *string
	Limit  int

	// titleID scopes the read to one title; only the detail lookup sets it.
	titleID *int64
}

const catalogColumns = `
    t.title_id,
    t.title,
    t.synopsis,
    t.type,
    t.studio_id,
    s.name AS studio_name,
    t.release_year,
    COALESCE(STRING_AGG(DISTINCT g.name, ',' ORDER BY g.name), '') AS genres,
    t.rating_average,
    t.rating_count,
    t.created_at
`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildCatalogQuery renders the joined, grouped catalog read for f. Criterion
// values only ever travel as bound arguments.
func buildCatalogQuery(f CatalogFilter) (string, []interface{}) {
	where := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.titleID != nil {
		where = append(where, "t.title_id = "+arg(*f.titleID))
	}
	if v := trimmed(f.Type); v != "" {
		where = append(where, "t.type = "+arg(v))
	}
	if v := trimmed(f.Genre); v != "" {
		// EXISTS keeps the aggregated genre list complete for matching titles.
		where = append(where, fmt.Sprintf(`EXISTS (
            SELECT 1 FROM title_genres ftg
            JOIN genres fg ON fg.genre_id = ftg.genre_id
            WHERE ftg.title_id = t.title_id AND LOWER(fg.name) = LOWER(%s))`, arg(v)))
	}
	if v := trimmed(f.Search); v != "" {
		p := arg("%" + likeEscaper.Replace(v) + "%")
		where = append(where, fmt.Sprintf("(t.title ILIKE %s OR t.synopsis ILIKE %s)", p, p))
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(catalogColumns)
	queryBuilder.WriteString(` FROM titles t
    LEFT JOIN studios s ON s.studio_id = t.studio_id
    LEFT JOIN title_genres tg ON tg.title_id = t.title_id
    LEFT JOIN genres g ON g.genre_id = tg.genre_id`)

	if len(where) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(where, " AND "))
	}

	queryBuilder.WriteString(" GROUP BY t.title_id, s.name")
	queryBuilder.WriteString(" ORDER BY t.rating_average DESC NULLS LAST, t.title_id ASC")

	if limit := clampLimit(f.Limit); limit > 0 {
		queryBuilder.WriteString(" LIMIT ")
		queryBuilder.WriteString(arg(limit))
	}

	return queryBuilder.String(), args
}

func trimmed(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return strings.TrimSpace(*ptr)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 0
	}
	if limit > MaxCatalogLimit {
		return MaxCatalogLimit
	}
	return limit
}
