package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/rpggio/gatekeeper/internal/domain/activity"
	"github.com/rpggio/gatekeeper/internal/domain/checkin"
	"github.com/rpggio/gatekeeper/internal/domain/ledger"
	"github.com/rpggio/gatekeeper/internal/domain/roster"
	"github.com/rpggio/gatekeeper/internal/domain/token"
	"github.com/rpggio/gatekeeper/internal/persist"
	"github.com/rpggio/gatekeeper/internal/sqlite"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

const testRoster = `Name,Passport Number,Phone Number,Email
Ada Lovelace,P123,555-0100,ada@example.com
Alan Turing,P456,555-0101,alan@example.com
Grace Hopper,X1234,555-0102,grace@example.com
`

type harness struct {
	session *sdkmcp.ClientSession
	dir     string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newLoggedHarness(t, nil)
}

func newLoggedHarness(t *testing.T, logger *slog.Logger) *harness {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })

	sync := persist.NewSync()
	svc := checkin.NewService(
		ledger.New(sync),
		sync,
		token.NewIssuer(),
		activity.NewService(sqlite.NewActivityRepository(db), nil),
		nil,
		checkin.WithArtifactDir(filepath.Join(dir, "qrcodes")),
	)

	server := NewServer(Config{Service: svc, Logger: logger})
	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { serverSession.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })

	return &harness{session: session, dir: dir}
}

func (h *harness) writeRoster(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (h *harness) call(t *testing.T, name string, args map[string]any, out any) *sdkmcp.CallToolResult {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	res, err := h.session.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	if out != nil && !res.IsError {
		data, err := json.Marshal(res.StructuredContent)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, out))
	}
	return res
}

func errorText(t *testing.T, res *sdkmcp.CallToolResult) string {
	t.Helper()
	require.True(t, res.IsError, "expected tool error")
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func (h *harness) tokenFor(t *testing.T, id string) string {
	t.Helper()
	var found SearchParticipantsResult
	res := h.call(t, "search_participants", map[string]any{"query": id}, &found)
	require.False(t, res.IsError)
	require.Len(t, found.Participants, 1)
	return found.Participants[0].Token
}

func TestTools_List(t *testing.T) {
	h := newHarness(t)

	res, err := h.session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	require.Equal(t, []string{
		"checkin_count",
		"export_roster",
		"load_roster",
		"plan_artifacts",
		"recent_activity",
		"reset_checkins",
		"search_participants",
		"submit_scans",
	}, names)
}

func TestTools_GateWorkflow(t *testing.T) {
	h := newHarness(t)
	path := h.writeRoster(t, "roster.csv", testRoster)

	var loaded LoadRosterResult
	res := h.call(t, "load_roster", map[string]any{"path": path}, &loaded)
	require.False(t, res.IsError)
	require.Equal(t, CountResponse{Consumed: 0, Total: 3}, loaded.Count)

	ada := h.tokenFor(t, "P123")

	var scanned SubmitScansResult
	res = h.call(t, "submit_scans", map[string]any{"scans": []string{" " + ada + " ", "nope", ada}}, &scanned)
	require.False(t, res.IsError)
	require.Len(t, scanned.Results, 3)
	require.Equal(t, string(ledger.OutcomeNewlyConsumed), scanned.Results[0].Outcome)
	require.Equal(t, ada, scanned.Results[0].Token)
	require.NotNil(t, scanned.Results[0].Participant)
	require.Equal(t, "Ada Lovelace", scanned.Results[0].Participant.Name)
	require.Equal(t, string(ledger.OutcomeUnknown), scanned.Results[1].Outcome)
	require.Nil(t, scanned.Results[1].Participant)
	require.Equal(t, string(ledger.OutcomeAlreadyConsumed), scanned.Results[2].Outcome)
	require.Equal(t, CountResponse{Consumed: 1, Total: 3}, scanned.Count)
	require.Empty(t, scanned.Warnings)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), fmt.Sprintf("Ada Lovelace,P123,555-0100,ada@example.com,%s,True", ada))

	var count CountResult
	h.call(t, "checkin_count", nil, &count)
	require.Equal(t, CountResponse{Consumed: 1, Total: 3}, count.Count)

	var plan PlanArtifactsResult
	res = h.call(t, "plan_artifacts", nil, &plan)
	require.False(t, res.IsError)
	require.Len(t, plan.Artifacts, 3)
	require.Equal(t, "Ada_Lovelace_P123.png", plan.Artifacts[0].Label)
	require.Equal(t, filepath.Join(h.dir, "qrcodes", "Ada_Lovelace_P123.png"), plan.Artifacts[0].Path)

	exportPath := filepath.Join(h.dir, "export.csv")
	var exported ExportRosterResult
	res = h.call(t, "export_roster", map[string]any{"path": exportPath}, &exported)
	require.False(t, res.IsError)
	require.Equal(t, exportPath, exported.Path)
	data, err = os.ReadFile(exportPath)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "Name,Passport Number,Phone Number,Email,qr_data,Scanned,QR Code Filename"))

	var reset CountResult
	res = h.call(t, "reset_checkins", nil, &reset)
	require.False(t, res.IsError)
	require.Equal(t, CountResponse{Consumed: 0, Total: 3}, reset.Count)

	var recent RecentActivityResult
	res = h.call(t, "recent_activity", map[string]any{"token": ada}, &recent)
	require.False(t, res.IsError)
	require.Len(t, recent.Entries, 2)
	for _, e := range recent.Entries {
		require.Equal(t, string(activity.TypeScanObserved), e.Type)
		require.Equal(t, ada, e.Token)
	}

	res = h.call(t, "recent_activity", map[string]any{"type": string(activity.TypeRegistryReset)}, &recent)
	require.False(t, res.IsError)
	require.Len(t, recent.Entries, 1)
}

func TestTools_NoRoster(t *testing.T) {
	h := newHarness(t)

	res := h.call(t, "submit_scans", map[string]any{"scans": []string{"abc"}}, nil)
	require.Contains(t, errorText(t, res), "NO_ROSTER")

	res = h.call(t, "reset_checkins", nil, nil)
	require.Contains(t, errorText(t, res), "NO_ROSTER")

	var count CountResult
	h.call(t, "checkin_count", nil, &count)
	require.Equal(t, CountResponse{}, count.Count)
}

func TestTools_LoadFailures(t *testing.T) {
	h := newHarness(t)

	bad := h.writeRoster(t, "bad.csv", "Name,Email\nAda,ada@example.com\n")
	res := h.call(t, "load_roster", map[string]any{"path": bad}, nil)
	require.Contains(t, errorText(t, res), "VALIDATION_FAILED")

	res = h.call(t, "load_roster", map[string]any{"path": filepath.Join(h.dir, "missing.csv")}, nil)
	require.Contains(t, errorText(t, res), "IO_ERROR")

	res = h.call(t, "load_roster", map[string]any{"path": ""}, nil)
	require.Contains(t, errorText(t, res), "INVALID_INPUT")

	garbled := h.writeRoster(t, "garbled.csv", "Name,\"Passport Number,Phone Number,Email\n")
	res = h.call(t, "load_roster", map[string]any{"path": garbled}, nil)
	require.Contains(t, errorText(t, res), "IO_ERROR")
}

func TestTools_SearchRequiresQuery(t *testing.T) {
	h := newHarness(t)
	path := h.writeRoster(t, "roster.csv", testRoster)
	h.call(t, "load_roster", map[string]any{"path": path}, nil)

	res := h.call(t, "search_participants", map[string]any{"query": "  "}, nil)
	require.Contains(t, errorText(t, res), "INVALID_INPUT")

	var found SearchParticipantsResult
	h.call(t, "search_participants", map[string]any{"query": "123"}, &found)
	require.Len(t, found.Participants, 2)
	require.Equal(t, "P123", found.Participants[0].IDNumber)
	require.Equal(t, "X1234", found.Participants[1].IDNumber)

	h.call(t, "search_participants", map[string]any{"field": roster.ColumnName, "query": "Grace"}, &found)
	require.Len(t, found.Participants, 1)
}

func TestDocResources(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	list, err := h.session.ListResources(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list.Resources, len(docResources))

	res, err := h.session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "gatekeeper://docs/index"})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	require.Contains(t, res.Contents[0].Text, "NO_ROSTER")
}

func TestMapError(t *testing.T) {
	require.Nil(t, MapError(nil))

	var apiErr *APIError
	err := MapError(fmt.Errorf("loading roster: %w", &roster.ValidationError{Missing: []string{"Email"}}))
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "VALIDATION_FAILED", apiErr.Code)

	err = MapError(fmt.Errorf("scan: %w", ledger.ErrNotFound))
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "NO_ROSTER", apiErr.Code)

	err = MapError(&persist.IOError{Op: "flush", Path: "/x.csv", Err: os.ErrPermission})
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "IO_ERROR", apiErr.Code)

	err = MapError(checkin.ErrInvalidInput)
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "INVALID_INPUT", apiErr.Code)

	other := errors.New("boom")
	require.Equal(t, other, MapError(other))
}
