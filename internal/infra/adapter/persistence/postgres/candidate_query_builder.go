package postgres

import (
	"fmt"
	"strings"

	"newswatch/internal/repository"
)

// CandidateQueryBuilder builds the WHERE clause for dedup candidate
// retrieval. The clause is shared between the SELECT and the depth COUNT
// so both stay consistent. PostgreSQL-specific: numbered placeholders and
// JSONB containment for tag overlap.
type CandidateQueryBuilder struct{}

func NewCandidateQueryBuilder() *CandidateQueryBuilder {
	return &CandidateQueryBuilder{}
}

// BuildWhereClause returns the clause and arguments for candidates
// published at or after since, excluding excludeID. When any filter is
// set, candidates must share at least one of source, category or tag.
func (qb *CandidateQueryBuilder) BuildWhereClause(since any, excludeID int64, filters repository.CandidateFilters) (clause string, args []interface{}) {
	args = append(args, since, excludeID)
	conditions := []string{"published_at >= $1", "id <> $2"}
	paramIndex := 3

	var attrConditions []string
	if filters.Source != "" {
		attrConditions = append(attrConditions, fmt.Sprintf("source_id = $%d", paramIndex))
		args = append(args, filters.Source)
		paramIndex++
	}
	if filters.Category != "" {
		attrConditions = append(attrConditions, fmt.Sprintf("category = $%d", paramIndex))
		args = append(args, filters.Category)
		paramIndex++
	}
	for _, tag := range filters.Tags {
		if tag == "" {
			continue
		}
		// Single-element containment; tags is a JSONB array of strings.
		attrConditions = append(attrConditions, fmt.Sprintf("tags @> $%d::jsonb", paramIndex))
		args = append(args, string(mustJSON([]string{tag})))
		paramIndex++
	}

	if len(attrConditions) > 0 {
		conditions = append(conditions, "("+strings.Join(attrConditions, " OR ")+")")
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}
