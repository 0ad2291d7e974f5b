package mcp

import (
	"context"
	"log/slog"

	"github.com/rpggio/gatekeeper/internal/domain/activity"
	"github.com/rpggio/gatekeeper/internal/domain/artifact"
	"github.com/rpggio/gatekeeper/internal/domain/ledger"
	"github.com/rpggio/gatekeeper/internal/domain/pipeline"
	"github.com/rpggio/gatekeeper/internal/domain/roster"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// CheckinService defines the gate operations exposed as tools.
type CheckinService interface {
	Load(ctx context.Context, path string) (ledger.Count, error)
	Scan(ctx context.Context, raw []string) ([]pipeline.Result, ledger.Count, error)
	Reset(ctx context.Context) (ledger.Count, error)
	Count() ledger.Count
	Search(field, query string) ([]roster.Participant, error)
	Export(ctx context.Context, path string) (ledger.Count, error)
	PlanArtifacts(ctx context.Context, dir string) ([]artifact.Artifact, error)
	RecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Config contains server configuration.
type Config struct {
	Service CheckinService
	Version string
	Logger  *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	version := cfg.Version
	if version == "" {
		version = "0.1.0"
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "gatekeeper",
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.Service)

	return server
}

func registerTools(server *sdkmcp.Server, svc CheckinService) {
	sdkmcp.AddTool(server, LoadRosterTool(), LoadRosterHandler(svc))
	sdkmcp.AddTool(server, SubmitScansTool(), SubmitScansHandler(svc))
	sdkmcp.AddTool(server, ResetCheckinsTool(), ResetCheckinsHandler(svc))
	sdkmcp.AddTool(server, CheckinCountTool(), CheckinCountHandler(svc))
	sdkmcp.AddTool(server, SearchParticipantsTool(), SearchParticipantsHandler(svc))
	sdkmcp.AddTool(server, ExportRosterTool(), ExportRosterHandler(svc))
	sdkmcp.AddTool(server, PlanArtifactsTool(), PlanArtifactsHandler(svc))
	sdkmcp.AddTool(server, RecentActivityTool(), RecentActivityHandler(svc))
}
