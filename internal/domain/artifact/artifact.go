// Package artifact names and drives generation of the per-participant
// token images. Rendering itself is delegated to a Renderer.
package artifact

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rpggio/gatekeeper/internal/domain/roster"
)

const extension = ".png"

var labelReplacer = strings.NewReplacer(" ", "_", "/", "_", `\`, "_")

// Artifact pairs a token with the file its image is written to.
type Artifact struct {
	Token string `json:"token"`
	Label string `json:"label"`
	Path  string `json:"path"`
}

// Renderer encodes a token into an image file at path.
type Renderer interface {
	Render(ctx context.Context, token, path string) error
}

// Label derives the human-readable file name for p, e.g.
// "Ada_Lovelace_P123.png". It is informational and never used for lookup.
func Label(p roster.Participant) string {
	return labelReplacer.Replace(p.Name()) + "_" + labelReplacer.Replace(p.IDNumber()) + extension
}

// Plan lists one artifact per participant in roster order. A frozen
// artifact reference wins over a freshly derived label.
func Plan(store *roster.Store, dir string) []Artifact {
	out := make([]Artifact, 0, store.Len())
	for _, p := range store.Participants() {
		label := p.ArtifactRef
		if label == "" {
			label = Label(p)
		}
		out = append(out, Artifact{
			Token: p.Token,
			Label: label,
			Path:  filepath.Join(dir, label),
		})
	}
	return out
}

// Generate renders every planned artifact, stopping at the first failure.
func Generate(ctx context.Context, renderer Renderer, plan []Artifact) error {
	for _, a := range plan {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := renderer.Render(ctx, a.Token, a.Path); err != nil {
			return fmt.Errorf("render %s: %w", a.Path, err)
		}
	}
	return nil
}
