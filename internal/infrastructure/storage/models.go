package storage

import (
	"database/sql"
	"fmt"

	"cloud.google.com/go/civil"
)

// Calendar dates are stored as ISO-8601 TEXT so that string comparison in
// SQL orders them correctly. Amounts are stored as decimal TEXT through
// decimal.Decimal's Valuer/Scanner.

func dateValue(d civil.Date) string {
	return d.String()
}

func nullDateValue(d *civil.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseDate(s string) (civil.Date, error) {
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid stored date %q: %w", s, err)
	}
	return d, nil
}

func parseNullDate(s sql.NullString) (*civil.Date, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	d, err := parseDate(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func nullStringValue(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullIntValue(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func intPtr(i sql.NullInt64) *int {
	if !i.Valid {
		return nil
	}
	v := int(i.Int64)
	return &v
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
