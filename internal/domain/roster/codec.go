package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

const utf8BOM = "\ufeff"

// Decode parses a CSV roster. The header must carry every required
// column; rows without a token receive one from assigner and rows without
// a check-in flag default to not checked in.
func Decode(r io.Reader, assigner TokenAssigner) (*Store, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &ValidationError{Missing: append([]string(nil), RequiredColumns...)}
	}
	if err != nil {
		return nil, fmt.Errorf("read roster header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	if verr := validateHeader(header); verr != nil {
		return nil, verr
	}

	store := &Store{header: header}
	verr := &ValidationError{}
	taken := make(map[string]struct{})

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, csv.ErrFieldCount) {
			verr.Invalid = append(verr.Invalid, fmt.Sprintf("line %d: expected %d cells, got %d", line, len(header), len(record)))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read roster row: %w", err)
		}

		p, err := decodeRow(header, record)
		if err != nil {
			verr.Invalid = append(verr.Invalid, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		if p.Token != "" {
			if _, dup := taken[p.Token]; dup {
				verr.Invalid = append(verr.Invalid, fmt.Sprintf("line %d: duplicate %s %q", line, ColumnToken, p.Token))
				continue
			}
			taken[p.Token] = struct{}{}
		}
		store.participants = append(store.participants, p)
	}

	if !verr.empty() {
		return nil, verr
	}

	// Backfill after the scan so generated tokens are checked against
	// every token already present in the file.
	for _, p := range store.participants {
		if p.Token == "" {
			assigner.Assign(p, taken)
			store.issued++
		}
	}

	return store, nil
}

// Encode writes the store as CSV in roster order.
func Encode(w io.Writer, s *Store) error {
	writer := csv.NewWriter(w)
	cols := s.Columns()
	if err := writer.Write(cols); err != nil {
		return fmt.Errorf("write roster header: %w", err)
	}

	row := make([]string, len(cols))
	for _, p := range s.participants {
		for i, col := range cols {
			row[i] = p.Value(col)
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write roster row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush roster: %w", err)
	}
	return nil
}

func validateHeader(header []string) *ValidationError {
	verr := &ValidationError{}
	seen := make(map[string]bool, len(header))
	for _, col := range header {
		if seen[col] {
			verr.Duplicate = append(verr.Duplicate, col)
		}
		seen[col] = true
	}
	for _, col := range RequiredColumns {
		if !seen[col] {
			verr.Missing = append(verr.Missing, col)
		}
	}
	if verr.empty() {
		return nil
	}
	return verr
}

func decodeRow(header, record []string) (*Participant, error) {
	p := &Participant{Fields: make(map[string]string, len(header))}
	for i, col := range header {
		cell := record[i]
		switch col {
		case ColumnToken:
			p.Token = strings.TrimSpace(cell)
		case ColumnCheckedIn:
			checked, err := parseBool(strings.TrimSpace(cell))
			if err != nil {
				return nil, fmt.Errorf("%s %q is not a boolean", ColumnCheckedIn, cell)
			}
			p.CheckedIn = checked
		case ColumnArtifactRef:
			p.ArtifactRef = cell
		default:
			p.Fields[col] = cell
		}
	}
	return p, nil
}
