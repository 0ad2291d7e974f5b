package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRenderer renders artifacts by running an external encoder such
// as qrencode. The placeholders {token} and {path} in Args are expanded
// per artifact.
type CommandRenderer struct {
	Name string
	Args []string
}

// NewCommandRenderer builds a renderer from a command line, e.g.
// ["qrencode", "-o", "{path}", "{token}"].
func NewCommandRenderer(argv []string) (*CommandRenderer, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, errors.New("render command is empty")
	}
	return &CommandRenderer{Name: argv[0], Args: argv[1:]}, nil
}

// Render runs the command for one artifact.
func (r *CommandRenderer) Render(ctx context.Context, token, path string) error {
	expand := strings.NewReplacer("{token}", token, "{path}", path)
	args := make([]string, len(r.Args))
	for i, arg := range r.Args {
		args[i] = expand.Replace(arg)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.Name, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", r.Name, err, msg)
		}
		return fmt.Errorf("%s: %w", r.Name, err)
	}
	return nil
}
