package helpers

import (
	"database/sql"
	"strings"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern builds an ILIKE pattern matching s anywhere, with LIKE
// wildcards in s escaped so they match literally.
func ContainsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(s)) + "%"
}

// GetNullString converts a string pointer to sql.NullString.
// A nil or empty pointer becomes NULL.
func GetNullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// NullStringPtr converts a scanned sql.NullString back to a pointer
func NullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
