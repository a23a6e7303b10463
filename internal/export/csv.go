// Package export produces CSV extracts of the member registry and
// imports members from CSV uploads or the legacy database.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/eglise-connect/platform/internal/member"
)

var memberHeader = []string{
	"first_name", "last_name", "city",
	"email", "phone", "arrival_month", "kind",
}

// WriteMembers writes members as CSV
func WriteMembers(w io.Writer, members []member.Member) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(memberHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, m := range members {
		month := ""
		if m.ArrivalMonth != nil {
			month = *m.ArrivalMonth
		}
		row := []string{
			m.FirstName, m.LastName, m.City,
			m.Contact.Email, m.Contact.Phone, month, string(m.Kind),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ParsedRow is one member parsed from a CSV upload
type ParsedRow struct {
	FirstName    string
	LastName     string
	City         string
	Email        string
	Phone        string
	ArrivalMonth string
	Kind         member.Kind
}

// ReadMembers parses a CSV upload. The header row is required and
// column order must match the export format. Rows missing a name are
// skipped and counted.
func ReadMembers(r io.Reader) ([]ParsedRow, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(memberHeader)

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read header: %w", err)
	}
	for i, col := range memberHeader {
		if header[i] != col {
			return nil, 0, fmt.Errorf("unexpected column %q, want %q", header[i], col)
		}
	}

	var rows []ParsedRow
	skipped := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read row: %w", err)
		}

		if record[0] == "" || record[1] == "" {
			skipped++
			continue
		}

		kind := member.Kind(record[6])
		if kind != member.KindMember && kind != member.KindVisitor {
			kind = member.KindMember
		}

		rows = append(rows, ParsedRow{
			FirstName:    record[0],
			LastName:     record[1],
			City:         record[2],
			Email:        record[3],
			Phone:        record[4],
			ArrivalMonth: record[5],
			Kind:         kind,
		})
	}

	return rows, skipped, nil
}
