package mcp

import (
	"context"
	"errors"

	"github.com/rpggio/gatekeeper/internal/domain/activity"
	"github.com/rpggio/gatekeeper/internal/domain/ledger"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// LoadRosterTool defines the MCP tool schema for loading a roster.
func LoadRosterTool() *sdkmcp.Tool {
	return &sdkmcp.Tool{
		Name:        "load_roster",
		Description: "Load a participant roster CSV. Missing tokens are issued and written back. On failure the previous roster stays active.",
	}
}

// LoadRosterHandler executes a roster load.
func LoadRosterHandler(svc CheckinService) sdkmcp.ToolHandlerFor[LoadRosterParams, LoadRosterResult] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, input LoadRosterParams) (*sdkmcp.CallToolResult, LoadRosterResult, error) {
		count, err := svc.Load(ctx, input.Path)
		if err != nil {
			return nil, LoadRosterResult{}, MapError(err)
		}
		return nil, LoadRosterResult{Path: input.Path, Count: countResponse(count)}, nil
	}
}

// SubmitScansTool defines the MCP tool schema for submitting decoded scans.
func SubmitScansTool() *sdkmcp.Tool {
	return &sdkmcp.Tool{
		Name:        "submit_scans",
		Description: "Apply one batch of decoded QR strings. Each string is checked in at most once; repeats report ALREADY_CONSUMED.",
	}
}

// SubmitScansHandler applies a scan batch.
func SubmitScansHandler(svc CheckinService) sdkmcp.ToolHandlerFor[SubmitScansParams, SubmitScansResult] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, input SubmitScansParams) (*sdkmcp.CallToolResult, SubmitScansResult, error) {
		results, count, err := svc.Scan(ctx, input.Scans)
		if err != nil && errors.Is(err, ledger.ErrNotFound) {
			return nil, SubmitScansResult{}, MapError(err)
		}

		resp := SubmitScansResult{
			Results: make([]ScanResultResponse, 0, len(results)),
			Count:   countResponse(count),
		}
		for _, r := range results {
			resp.Results = append(resp.Results, scanResultResponse(r))
		}
		if err != nil {
			resp.Warnings = []string{MapError(err).Error()}
		}
		return nil, resp, nil
	}
}

// ResetCheckinsTool defines the MCP tool schema for clearing check-ins.
func ResetCheckinsTool() *sdkmcp.Tool {
	return &sdkmcp.Tool{
		Name:        "reset_checkins",
		Description: "Mark every participant as not checked in and persist the roster.",
	}
}

// ResetCheckinsHandler clears every check-in.
func ResetCheckinsHandler(svc CheckinService) sdkmcp.ToolHandlerFor[ResetCheckinsParams, CountResult] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ ResetCheckinsParams) (*sdkmcp.CallToolResult, CountResult, error) {
		count, err := svc.Reset(ctx)
		if err != nil {
			return nil, CountResult{}, MapError(err)
		}
		return nil, CountResult{Count: countResponse(count)}, nil
	}
}

// CheckinCountTool defines the MCP tool schema for the check-in count.
func CheckinCountTool() *sdkmcp.Tool {
	return &sdkmcp.Tool{
		Name:        "checkin_count",
		Description: "Report how many participants have checked in out of the roster total.",
	}
}

// CheckinCountHandler reports the current count.
func CheckinCountHandler(svc CheckinService) sdkmcp.ToolHandlerFor[CheckinCountParams, CountResult] {
	return func(_ context.Context, _ *sdkmcp.CallToolRequest, _ CheckinCountParams) (*sdkmcp.CallToolResult, CountResult, error) {
		return nil, CountResult{Count: countResponse(svc.Count())}, nil
	}
}

// SearchParticipantsTool defines the MCP tool schema for participant search.
func SearchParticipantsTool() *sdkmcp.Tool {
	return &sdkmcp.Tool{
		Name:        "search_participants",
		Description: "Find participants whose field contains the query (case-sensitive). Defaults to the Passport Number column.",
	}
}

// SearchParticipantsHandler searches the roster.
func SearchParticipantsHandler(svc CheckinService) sdkmcp.ToolHandlerFor[SearchParticipantsParams, SearchParticipantsResult] {
	return func(_ context.Context, _ *sdkmcp.CallToolRequest, input SearchParticipantsParams) (*sdkmcp.CallToolResult, SearchParticipantsResult, error) {
		matches, err := svc.Search(input.Field, input.Query)
		if err != nil {
			return nil, SearchParticipantsResult{}, MapError(err)
		}
		resp := SearchParticipantsResult{Participants: make([]ParticipantResponse, 0, len(matches))}
		for _, p := range matches {
			resp.Participants = append(resp.Participants, participantResponse(p))
		}
		return nil, resp, nil
	}
}

// ExportRosterTool defines the MCP tool schema for exporting the roster.
func ExportRosterTool() *sdkmcp.Tool {
	return &sdkmcp.Tool{
		Name:        "export_roster",
		Description: "Write the roster with qr_data, Scanned and QR Code Filename columns to a new CSV. Later check-ins are flushed there.",
	}
}

// ExportRosterHandler exports the roster.
func ExportRosterHandler(svc CheckinService) sdkmcp.ToolHandlerFor[ExportRosterParams, ExportRosterResult] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, input ExportRosterParams) (*sdkmcp.CallToolResult, ExportRosterResult, error) {
		count, err := svc.Export(ctx, input.Path)
		if err != nil {
			return nil, ExportRosterResult{}, MapError(err)
		}
		return nil, ExportRosterResult{Path: input.Path, Count: countResponse(count)}, nil
	}
}

// PlanArtifactsTool defines the MCP tool schema for planning QR images.
func PlanArtifactsTool() *sdkmcp.Tool {
	return &sdkmcp.Tool{
		Name:        "plan_artifacts",
		Description: "Freeze each participant's QR image filename and list the images to render. Renders them when an encoder is configured.",
	}
}

// PlanArtifactsHandler plans artifacts.
func PlanArtifactsHandler(svc CheckinService) sdkmcp.ToolHandlerFor[PlanArtifactsParams, PlanArtifactsResult] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, input PlanArtifactsParams) (*sdkmcp.CallToolResult, PlanArtifactsResult, error) {
		plan, err := svc.PlanArtifacts(ctx, input.Dir)
		if err != nil {
			return nil, PlanArtifactsResult{}, MapError(err)
		}
		resp := PlanArtifactsResult{Artifacts: make([]ArtifactResponse, 0, len(plan))}
		for _, a := range plan {
			resp.Artifacts = append(resp.Artifacts, artifactResponse(a))
		}
		return nil, resp, nil
	}
}

// RecentActivityTool defines the MCP tool schema for the activity log.
func RecentActivityTool() *sdkmcp.Tool {
	return &sdkmcp.Tool{
		Name:        "recent_activity",
		Description: "List recent gate activity (scans, loads, resets, exports), newest first.",
	}
}

// RecentActivityHandler lists activity entries.
func RecentActivityHandler(svc CheckinService) sdkmcp.ToolHandlerFor[RecentActivityParams, RecentActivityResult] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, input RecentActivityParams) (*sdkmcp.CallToolResult, RecentActivityResult, error) {
		opts := activity.ListActivityOptions{Limit: input.Limit, Offset: input.Offset}
		if input.Token != "" {
			opts.Token = &input.Token
		}
		if input.Type != "" {
			t := activity.ActivityType(input.Type)
			opts.ActivityType = &t
		}
		entries, err := svc.RecentActivity(ctx, opts)
		if err != nil {
			return nil, RecentActivityResult{}, MapError(err)
		}
		resp := RecentActivityResult{Entries: make([]ActivityEntryResponse, 0, len(entries))}
		for _, e := range entries {
			resp.Entries = append(resp.Entries, activityEntryResponse(e))
		}
		return nil, resp, nil
	}
}
