package roster

import (
	"maps"
	"strconv"
)

// Column headers understood by the roster codec.
const (
	ColumnName        = "Name"
	ColumnIDNumber    = "Passport Number"
	ColumnPhone       = "Phone Number"
	ColumnEmail       = "Email"
	ColumnToken       = "qr_data"
	ColumnCheckedIn   = "Scanned"
	ColumnArtifactRef = "QR Code Filename"
)

// RequiredColumns lists the identity columns every roster must carry.
var RequiredColumns = []string{ColumnName, ColumnIDNumber, ColumnPhone, ColumnEmail}

// Participant is one row of the roster.
type Participant struct {
	// Fields holds every non-managed cell keyed by column header.
	Fields      map[string]string `json:"fields"`
	Token       string            `json:"token"`
	CheckedIn   bool              `json:"checked_in"`
	ArtifactRef string            `json:"artifact_ref,omitempty"`
}

// Name returns the participant's display name.
func (p Participant) Name() string {
	return p.Fields[ColumnName]
}

// IDNumber returns the passport/ID number cell.
func (p Participant) IDNumber() string {
	return p.Fields[ColumnIDNumber]
}

// Value returns the raw cell for column, including managed columns.
func (p Participant) Value(column string) string {
	switch column {
	case ColumnToken:
		return p.Token
	case ColumnCheckedIn:
		return formatBool(p.CheckedIn)
	case ColumnArtifactRef:
		return p.ArtifactRef
	default:
		return p.Fields[column]
	}
}

// Clone returns a deep copy of the participant.
func (p Participant) Clone() Participant {
	p.Fields = maps.Clone(p.Fields)
	return p
}

// TokenAssigner backfills identity tokens during decoding.
type TokenAssigner interface {
	Assign(p *Participant, taken map[string]struct{}) string
}

func formatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

func parseBool(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}
