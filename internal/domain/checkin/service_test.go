package checkin_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rpggio/gatekeeper/internal/domain/activity"
	"github.com/rpggio/gatekeeper/internal/domain/artifact"
	"github.com/rpggio/gatekeeper/internal/domain/checkin"
	"github.com/rpggio/gatekeeper/internal/domain/ledger"
	"github.com/rpggio/gatekeeper/internal/domain/roster"
	"github.com/rpggio/gatekeeper/internal/domain/token"
	"github.com/rpggio/gatekeeper/internal/persist"
	"github.com/rpggio/gatekeeper/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const rosterCSV = `Name,Passport Number,Phone Number,Email,Table
Ada Lovelace,P123,555-0100,ada@example.com,1
Alan Turing,P456,555-0101,alan@example.com,2
Grace Hopper,X1234,555-0102,grace@example.com,3
`

type recordingRenderer struct {
	paths  []string
	tokens []string
}

func (r *recordingRenderer) Render(_ context.Context, tok, path string) error {
	r.paths = append(r.paths, path)
	r.tokens = append(r.tokens, tok)
	return nil
}

func setup(t *testing.T, opts ...checkin.Option) (*checkin.Service, *mocks.ActivityRepository, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "roster.csv")
	require.NoError(t, os.WriteFile(path, []byte(rosterCSV), 0o644))

	activities := &mocks.ActivityRepository{}
	activities.On("Log", mock.Anything, mock.Anything).Return(nil)

	sync := persist.NewSync()
	svc := checkin.NewService(ledger.New(sync), sync, token.NewIssuer(), activity.NewService(activities, nil), nil, opts...)
	return svc, activities, path
}

func tokensOf(t *testing.T, svc *checkin.Service) []string {
	t.Helper()
	var out []string
	for _, id := range []string{"P123", "P456", "X1234"} {
		matches, err := svc.Search(roster.ColumnIDNumber, id)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		out = append(out, matches[0].Token)
	}
	return out
}

func TestService_LoadScanPersists(t *testing.T) {
	ctx := context.Background()
	svc, activities, path := setup(t)

	count, err := svc.Load(ctx, path)
	require.NoError(t, err)
	require.Equal(t, ledger.Count{Consumed: 0, Total: 3}, count)

	tokens := tokensOf(t, svc)
	results, count, err := svc.Scan(ctx, []string{tokens[1], tokens[1], "bogus"})
	require.NoError(t, err)
	require.Equal(t, ledger.OutcomeNewlyConsumed, results[0].Outcome)
	require.Equal(t, ledger.OutcomeAlreadyConsumed, results[1].Outcome)
	require.Equal(t, ledger.OutcomeUnknown, results[2].Outcome)
	require.Equal(t, ledger.Count{Consumed: 1, Total: 3}, count)

	// A fresh engine over the same file resumes the session.
	resumed, _, _ := setup(t)
	count, err = resumed.Load(ctx, path)
	require.NoError(t, err)
	require.Equal(t, ledger.Count{Consumed: 1, Total: 3}, count)
	require.Equal(t, tokens, tokensOf(t, resumed))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "Name,Passport Number,Phone Number,Email,Table,qr_data,Scanned\n"))

	// one load plus three scans
	activities.AssertNumberOfCalls(t, "Log", 4)
}

func TestService_LoadWritesBackIssuedTokens(t *testing.T) {
	ctx := context.Background()
	svc, _, path := setup(t)
	_, err := svc.Load(ctx, path)
	require.NoError(t, err)
	tokens := tokensOf(t, svc)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, tok := range tokens {
		require.Contains(t, string(data), tok)
	}

	// A second engine over the same file sees the same tokens.
	again, _, _ := setup(t)
	_, err = again.Load(ctx, path)
	require.NoError(t, err)
	require.Equal(t, tokens, tokensOf(t, again))
}

func TestService_RenderedTokensSurviveRestart(t *testing.T) {
	ctx := context.Background()
	renderer := &recordingRenderer{}
	svc, _, _ := setup(t, checkin.WithRenderer(renderer))

	// Artifact refs already frozen, tokens still missing.
	path := filepath.Join(t.TempDir(), "frozen.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"Name,Passport Number,Phone Number,Email,QR Code Filename\n"+
			"Ada Lovelace,P123,555-0100,ada@example.com,ada.png\n"+
			"Alan Turing,P456,555-0101,alan@example.com,alan.png\n"), 0o644))

	_, err := svc.Load(ctx, path)
	require.NoError(t, err)
	_, err = svc.PlanArtifacts(ctx, filepath.Join(t.TempDir(), "qrcodes"))
	require.NoError(t, err)
	require.Len(t, renderer.tokens, 2)

	restarted, _, _ := setup(t)
	_, err = restarted.Load(ctx, path)
	require.NoError(t, err)
	results, _, err := restarted.Scan(ctx, renderer.tokens)
	require.NoError(t, err)
	for _, r := range results {
		require.Equal(t, ledger.OutcomeNewlyConsumed, r.Outcome, "token %s", r.Token)
	}
}

func TestService_LoadFailureKeepsPreviousRoster(t *testing.T) {
	ctx := context.Background()
	svc, _, path := setup(t)
	_, err := svc.Load(ctx, path)
	require.NoError(t, err)

	bad := filepath.Join(filepath.Dir(path), "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("Name,Email\nAda,a@x\n"), 0o644))

	_, err = svc.Load(ctx, bad)
	var verr *roster.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, []string{roster.ColumnIDNumber, roster.ColumnPhone}, verr.Missing)
	require.Equal(t, 3, svc.Count().Total)

	_, err = svc.Load(ctx, filepath.Join(filepath.Dir(path), "missing.csv"))
	var ioErr *persist.IOError
	require.True(t, errors.As(err, &ioErr))
	require.Equal(t, 3, svc.Count().Total)
}

func TestService_ResetPersists(t *testing.T) {
	ctx := context.Background()
	svc, _, path := setup(t)
	_, err := svc.Load(ctx, path)
	require.NoError(t, err)
	tokens := tokensOf(t, svc)

	_, _, err = svc.Scan(ctx, tokens)
	require.NoError(t, err)
	require.Equal(t, 3, svc.Count().Consumed)

	count, err := svc.Reset(ctx)
	require.NoError(t, err)
	require.Equal(t, ledger.Count{Consumed: 0, Total: 3}, count)

	resumed, _, _ := setup(t)
	count, err = resumed.Load(ctx, path)
	require.NoError(t, err)
	require.Zero(t, count.Consumed)
}

func TestService_Search(t *testing.T) {
	ctx := context.Background()
	svc, _, path := setup(t)

	_, err := svc.Search("", "123")
	require.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = svc.Load(ctx, path)
	require.NoError(t, err)

	_, err = svc.Search("", "  ")
	require.ErrorIs(t, err, checkin.ErrInvalidInput)

	matches, err := svc.Search("", "123")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	require.Equal(t, "Ada Lovelace", matches[0].Name())
	require.Equal(t, "Grace Hopper", matches[1].Name())

	matches, err = svc.Search("Table", "2")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "Alan Turing", matches[0].Name())
}

func TestService_ExportRebindsAndFreezesLabels(t *testing.T) {
	ctx := context.Background()
	svc, _, path := setup(t)
	_, err := svc.Load(ctx, path)
	require.NoError(t, err)
	tokens := tokensOf(t, svc)

	exportPath := filepath.Join(filepath.Dir(path), "export.csv")
	_, err = svc.Export(ctx, exportPath)
	require.NoError(t, err)

	_, _, err = svc.Scan(ctx, []string{tokens[0]})
	require.NoError(t, err)

	resumed, _, _ := setup(t)
	count, err := resumed.Load(ctx, exportPath)
	require.NoError(t, err)
	require.Equal(t, ledger.Count{Consumed: 1, Total: 3}, count)

	matches, err := resumed.Search("", "P123")
	require.NoError(t, err)
	require.Equal(t, "Ada_Lovelace_P123.png", matches[0].ArtifactRef)

	original, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(original), roster.ColumnArtifactRef)

	_, err = svc.Export(ctx, "")
	require.ErrorIs(t, err, checkin.ErrInvalidInput)
}

func TestService_PlanArtifactsRendersIntoDir(t *testing.T) {
	ctx := context.Background()
	renderer := &recordingRenderer{}
	svc, activities, path := setup(t, checkin.WithRenderer(renderer))
	_, err := svc.Load(ctx, path)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "qrcodes")
	plan, err := svc.PlanArtifacts(ctx, dir)
	require.NoError(t, err)
	require.Len(t, plan, 3)
	require.Equal(t, filepath.Join(dir, "Grace_Hopper_X1234.png"), plan[2].Path)
	require.Equal(t, []string{plan[0].Path, plan[1].Path, plan[2].Path}, renderer.paths)
	require.DirExists(t, dir)

	activities.AssertCalled(t, "Log", mock.Anything, mock.MatchedBy(func(e *activity.ActivityEntry) bool {
		return e.ActivityType == activity.TypeArtifactsPlanned
	}))

	// labels are frozen into the roster file
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "Grace_Hopper_X1234.png")
}

func TestService_PlanArtifactsWithoutRoster(t *testing.T) {
	svc, _, _ := setup(t)
	_, err := svc.PlanArtifacts(context.Background(), "")
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestService_ActivityFailureDoesNotFailScan(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "roster.csv")
	require.NoError(t, os.WriteFile(path, []byte(rosterCSV), 0o644))

	activities := &mocks.ActivityRepository{}
	activities.On("Log", mock.Anything, mock.Anything).Return(errors.New("db locked"))
	sync := persist.NewSync()
	svc := checkin.NewService(ledger.New(sync), sync, token.NewIssuer(), activity.NewService(activities, nil), nil)

	_, err := svc.Load(ctx, path)
	require.NoError(t, err)
	results, _, err := svc.Scan(ctx, []string{"unknown"})
	require.NoError(t, err)
	require.Equal(t, ledger.OutcomeUnknown, results[0].Outcome)
}

var _ artifact.Renderer = (*recordingRenderer)(nil)

func TestService_RecentActivity(t *testing.T) {
	svc, activities, _ := setup(t)
	tok := "tok-1"
	activities.On("List", mock.Anything, activity.ListActivityOptions{Token: &tok, Limit: 50}).
		Return([]activity.ActivityEntry{{ID: 7, ActivityType: activity.TypeScanObserved, Token: &tok}}, nil)

	entries, err := svc.RecentActivity(context.Background(), activity.ListActivityOptions{Token: &tok})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, int64(7), entries[0].ID)

	_, err = svc.RecentActivity(context.Background(), activity.ListActivityOptions{Offset: -1})
	require.ErrorIs(t, err, checkin.ErrInvalidInput)
}
