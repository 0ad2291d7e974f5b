package roster

import "strings"

// Store is the in-memory roster: participants in load order plus the
// column layout and the path used for automatic flushes.
//
// Store is not safe for concurrent use; the ledger owns the lock.
type Store struct {
	header       []string
	participants []*Participant
	source       string
	// issued counts tokens assigned while decoding; they exist only in
	// memory until the store is written.
	issued int
}

// NewStore builds a store from a header and rows. Missing tokens are not
// assigned here; use Decode for validated input.
func NewStore(header []string, participants []Participant) *Store {
	s := &Store{header: append([]string(nil), header...)}
	for _, p := range participants {
		p := p.Clone()
		if p.Fields == nil {
			p.Fields = map[string]string{}
		}
		s.participants = append(s.participants, &p)
	}
	return s
}

// Len returns the number of participants.
func (s *Store) Len() int {
	return len(s.participants)
}

// Source returns the bound backing file, or "" when unbound.
func (s *Store) Source() string {
	return s.source
}

// IssuedTokens returns how many rows received a new token during Decode.
func (s *Store) IssuedTokens() int {
	return s.issued
}

// Bind sets the backing file used for flushes.
func (s *Store) Bind(path string) {
	s.source = path
}

// Rows exposes the live participant rows for in-place mutation by the
// store's owner.
func (s *Store) Rows() []*Participant {
	return s.participants
}

// Participants returns copies of all rows in order.
func (s *Store) Participants() []Participant {
	out := make([]Participant, 0, len(s.participants))
	for _, p := range s.participants {
		out = append(out, p.Clone())
	}
	return out
}

// Columns returns the serialized column order: the source header followed
// by any managed columns the source lacked.
func (s *Store) Columns() []string {
	cols := append([]string(nil), s.header...)
	present := make(map[string]bool, len(cols))
	for _, c := range cols {
		present[c] = true
	}
	if !present[ColumnToken] {
		cols = append(cols, ColumnToken)
	}
	if !present[ColumnCheckedIn] {
		cols = append(cols, ColumnCheckedIn)
	}
	if !present[ColumnArtifactRef] && s.hasArtifactRefs() {
		cols = append(cols, ColumnArtifactRef)
	}
	return cols
}

// FindByField returns copies of the participants whose raw value for
// field contains substring, in roster order. Matching is case-sensitive.
func (s *Store) FindByField(field, substring string) []Participant {
	var out []Participant
	for _, p := range s.participants {
		if strings.Contains(p.Value(field), substring) {
			out = append(out, p.Clone())
		}
	}
	return out
}

// Clone returns a deep copy of the store, including its binding.
func (s *Store) Clone() *Store {
	c := &Store{
		header: append([]string(nil), s.header...),
		source: s.source,
		issued: s.issued,
	}
	for _, p := range s.participants {
		cp := p.Clone()
		c.participants = append(c.participants, &cp)
	}
	return c
}

func (s *Store) hasArtifactRefs() bool {
	for _, p := range s.participants {
		if p.ArtifactRef != "" {
			return true
		}
	}
	return false
}
