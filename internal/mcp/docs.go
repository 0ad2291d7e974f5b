package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `gatekeeper runs event check-in at a single gate.

Core concepts:
- Roster: a CSV of participants (Name, Passport Number, Phone Number, Email, plus any extra columns).
- Token: the string encoded in a participant's QR code (qr_data column). Missing tokens are issued on load.
- Check-in: the first scan of a token marks the participant Scanned=True and rewrites the roster file.

Default workflow:
1) load_roster(path) once per session. A failed load keeps the previous roster.
2) plan_artifacts() to fix each participant's QR image filename (and render images when configured).
3) submit_scans(scans) for each decoded frame. Outcomes: NEWLY_CONSUMED, ALREADY_CONSUMED, UNKNOWN.
4) checkin_count / search_participants / recent_activity to answer questions at the desk.
5) export_roster(path) to hand off a copy; later check-ins are written to that file.
6) reset_checkins only when starting the event over.

Docs:
- gatekeeper://docs/index
- gatekeeper://docs/roster-format
- gatekeeper://docs/workflows/gate
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "gatekeeper://docs/index",
		Name:        "docs_index",
		Title:       "gatekeeper docs index",
		Description: "Entry point: tools, outcomes and error codes.",
		Content: `# gatekeeper: Docs Index

## Tools

- ` + "`load_roster`" + `: load a roster CSV and bind it as the flush target.
- ` + "`submit_scans`" + `: apply one batch of decoded strings.
- ` + "`checkin_count`" + `: consumed/total.
- ` + "`search_participants`" + `: substring search, Passport Number by default.
- ` + "`export_roster`" + `: write the roster elsewhere and rebind to it.
- ` + "`plan_artifacts`" + `: freeze QR image filenames and list them.
- ` + "`reset_checkins`" + `: clear every check-in.
- ` + "`recent_activity`" + `: audit log, newest first.

## Error codes

- ` + "`VALIDATION_FAILED`" + `: the roster file is malformed; nothing was loaded.
- ` + "`NO_ROSTER`" + `: load a roster first.
- ` + "`IO_ERROR`" + `: the file could not be read or written.
- ` + "`INVALID_INPUT`" + `: a required argument is missing.

A persistence failure during ` + "`submit_scans`" + ` is reported in ` + "`warnings`" + `; the check-in stands in memory and is written on the next successful flush.
`,
	},
	{
		URI:         "gatekeeper://docs/roster-format",
		Name:        "docs_roster_format",
		Title:       "Roster CSV format",
		Description: "Required and managed columns of the roster file.",
		Content: `# Roster CSV format

Required header columns: ` + "`Name`, `Passport Number`, `Phone Number`, `Email`" + `. Extra columns are kept as-is.

Managed columns, added on the first write when absent:

- ` + "`qr_data`" + `: the participant's token. Blank cells get a new random token.
- ` + "`Scanned`" + `: ` + "`True`" + ` once checked in, otherwise ` + "`False`" + `.
- ` + "`QR Code Filename`" + `: the frozen image filename, written once artifacts are planned or the roster is exported.

Rows are written back in their original order. Duplicate tokens and unparseable ` + "`Scanned`" + ` cells reject the whole file.
`,
	},
	{
		URI:         "gatekeeper://docs/workflows/gate",
		Name:        "docs_workflow_gate",
		Title:       "Workflow: running the gate",
		Description: "Playbook for a check-in session from load to export.",
		Content: `# Workflow: running the gate

1) ` + "`load_roster`" + ` with the organizer's CSV.
2) ` + "`plan_artifacts`" + ` before printing badges so filenames do not drift if names are corrected later.
3) Feed decoder output to ` + "`submit_scans`" + `. One call per camera frame; several strings per frame are fine.
   - ` + "`NEWLY_CONSUMED`" + `: admit, greet by name.
   - ` + "`ALREADY_CONSUMED`" + `: already admitted; check ID.
   - ` + "`UNKNOWN`" + `: not on the roster.
4) Use ` + "`search_participants`" + ` with a partial passport number when a badge is lost.
5) At close, ` + "`export_roster`" + ` to a new file for the organizer.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
