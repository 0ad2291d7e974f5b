package mcp

import (
	"time"

	"github.com/rpggio/gatekeeper/internal/domain/activity"
	"github.com/rpggio/gatekeeper/internal/domain/artifact"
	"github.com/rpggio/gatekeeper/internal/domain/ledger"
	"github.com/rpggio/gatekeeper/internal/domain/pipeline"
	"github.com/rpggio/gatekeeper/internal/domain/roster"
)

// CountResponse reports how many participants have checked in.
type CountResponse struct {
	Consumed int `json:"consumed" jsonschema:"participants checked in"`
	Total    int `json:"total" jsonschema:"participants in the roster"`
}

// ParticipantResponse is one roster row.
type ParticipantResponse struct {
	Token       string            `json:"token" jsonschema:"check-in token"`
	Name        string            `json:"name" jsonschema:"participant name"`
	IDNumber    string            `json:"id_number" jsonschema:"passport or other ID number"`
	CheckedIn   bool              `json:"checked_in" jsonschema:"whether the participant has checked in"`
	ArtifactRef string            `json:"artifact_ref,omitempty" jsonschema:"frozen artifact filename, if any"`
	Fields      map[string]string `json:"fields" jsonschema:"all input columns by header name"`
}

type LoadRosterParams struct {
	Path string `json:"path" jsonschema:"path of the roster CSV file"`
}

type LoadRosterResult struct {
	Path  string        `json:"path" jsonschema:"loaded file, now the flush target"`
	Count CountResponse `json:"count" jsonschema:"check-in count after loading"`
}

type SubmitScansParams struct {
	Scans []string `json:"scans" jsonschema:"decoded strings from one camera frame"`
}

type ScanResultResponse struct {
	Token       string               `json:"token" jsonschema:"trimmed decoded string"`
	Outcome     string               `json:"outcome" jsonschema:"UNKNOWN, ALREADY_CONSUMED or NEWLY_CONSUMED"`
	Participant *ParticipantResponse `json:"participant,omitempty" jsonschema:"matched participant, absent for UNKNOWN"`
}

type SubmitScansResult struct {
	Results  []ScanResultResponse `json:"results" jsonschema:"one result per submitted string, in order"`
	Count    CountResponse        `json:"count" jsonschema:"check-in count after the batch"`
	Warnings []string             `json:"warnings,omitempty" jsonschema:"persistence failures; check-ins stand"`
}

type ResetCheckinsParams struct{}

type CountResult struct {
	Count CountResponse `json:"count" jsonschema:"current check-in count"`
}

type CheckinCountParams struct{}

type SearchParticipantsParams struct {
	Query string `json:"query" jsonschema:"substring to match (case-sensitive)"`
	Field string `json:"field,omitempty" jsonschema:"column to search (default Passport Number)"`
}

type SearchParticipantsResult struct {
	Participants []ParticipantResponse `json:"participants" jsonschema:"matching participants in roster order"`
}

type ExportRosterParams struct {
	Path string `json:"path" jsonschema:"destination CSV path; later flushes go here"`
}

type ExportRosterResult struct {
	Path  string        `json:"path" jsonschema:"written file"`
	Count CountResponse `json:"count" jsonschema:"check-in count at export"`
}

type PlanArtifactsParams struct {
	Dir string `json:"dir,omitempty" jsonschema:"output directory (default from configuration)"`
}

type ArtifactResponse struct {
	Token string `json:"token" jsonschema:"encoded token"`
	Label string `json:"label" jsonschema:"artifact filename"`
	Path  string `json:"path" jsonschema:"artifact path"`
}

type PlanArtifactsResult struct {
	Artifacts []ArtifactResponse `json:"artifacts" jsonschema:"one artifact per participant"`
}

type RecentActivityParams struct {
	Token  string `json:"token,omitempty" jsonschema:"only entries for this token"`
	Type   string `json:"type,omitempty" jsonschema:"only entries of this type"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum entries (default 50)"`
	Offset int    `json:"offset,omitempty" jsonschema:"entries to skip"`
}

type ActivityEntryResponse struct {
	ID        int64  `json:"id" jsonschema:"entry identifier"`
	Type      string `json:"type" jsonschema:"activity type"`
	Token     string `json:"token,omitempty" jsonschema:"scanned token, if any"`
	Outcome   string `json:"outcome,omitempty" jsonschema:"scan outcome, if any"`
	Summary   string `json:"summary" jsonschema:"human readable summary"`
	CreatedAt string `json:"created_at" jsonschema:"RFC3339 timestamp"`
}

type RecentActivityResult struct {
	Entries []ActivityEntryResponse `json:"entries" jsonschema:"entries, newest first"`
}

func countResponse(c ledger.Count) CountResponse {
	return CountResponse{Consumed: c.Consumed, Total: c.Total}
}

func participantResponse(p roster.Participant) ParticipantResponse {
	fields := make(map[string]string, len(p.Fields))
	for k, v := range p.Fields {
		fields[k] = v
	}
	return ParticipantResponse{
		Token:       p.Token,
		Name:        p.Name(),
		IDNumber:    p.IDNumber(),
		CheckedIn:   p.CheckedIn,
		ArtifactRef: p.ArtifactRef,
		Fields:      fields,
	}
}

func scanResultResponse(r pipeline.Result) ScanResultResponse {
	resp := ScanResultResponse{
		Token:   r.Token,
		Outcome: string(r.Outcome),
	}
	if r.Participant != nil {
		p := participantResponse(*r.Participant)
		resp.Participant = &p
	}
	return resp
}

func artifactResponse(a artifact.Artifact) ArtifactResponse {
	return ArtifactResponse{Token: a.Token, Label: a.Label, Path: a.Path}
}

func activityEntryResponse(e activity.ActivityEntry) ActivityEntryResponse {
	return ActivityEntryResponse{
		ID:        e.ID,
		Type:      string(e.ActivityType),
		Token:     stringValue(e.Token),
		Outcome:   stringValue(e.Outcome),
		Summary:   e.Summary,
		CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
