package storage

import (
	"fmt"
	"strings"
)

// InsertSQL builds INSERT INTO table (cols) VALUES (params).
func InsertSQL(d Dialect, table string, columns []string) string {
	cols := make([]string, len(columns))
	params := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = d.QuoteIdent(c)
		params[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdent(table), strings.Join(cols, ", "), strings.Join(params, ", "))
}

// UpdateSQL builds UPDATE table SET col = param, ... WHERE key = param.
// The key value binds after all SET values.
func UpdateSQL(d Dialect, table string, set []string, key string) string {
	parts := make([]string, len(set))
	for i, c := range set {
		parts[i] = fmt.Sprintf("%s = %s", d.QuoteIdent(c), d.Placeholder(i+1))
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		d.QuoteIdent(table), strings.Join(parts, ", "), d.QuoteIdent(key), d.Placeholder(len(set)+1))
}

// SelectSQL builds SELECT cols FROM table, optionally restricted to rows
// where notNull is not NULL.
func SelectSQL(d Dialect, table string, columns []string, notNull string) string {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = d.QuoteIdent(c)
	}
	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), d.QuoteIdent(table))
	if notNull != "" {
		q += fmt.Sprintf(" WHERE %s IS NOT NULL", d.QuoteIdent(notNull))
	}
	return q
}

// QuoteFQN quotes each dot-separated part of name with quote.
func QuoteFQN(name string, quote func(string) string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = quote(p)
	}
	return strings.Join(parts, ".")
}
