// Package token issues the opaque identity tokens encoded into each
// participant's scannable artifact.
package token

import (
	"github.com/google/uuid"
	"github.com/rpggio/gatekeeper/internal/domain/roster"
)

// Issuer assigns random 128-bit tokens. Tokens are never derived from
// identity fields.
type Issuer struct {
	generate func() string
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithGenerator replaces the token source.
func WithGenerator(fn func() string) Option {
	return func(i *Issuer) {
		i.generate = fn
	}
}

// NewIssuer returns an Issuer backed by random UUIDs.
func NewIssuer(opts ...Option) *Issuer {
	i := &Issuer{generate: uuid.NewString}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Assign returns p's token, generating one if p has none. A generated
// token is regenerated until it is absent from taken, then recorded there.
func (i *Issuer) Assign(p *roster.Participant, taken map[string]struct{}) string {
	if p.Token != "" {
		return p.Token
	}
	for {
		candidate := i.generate()
		if candidate == "" {
			continue
		}
		if _, exists := taken[candidate]; exists {
			continue
		}
		if taken != nil {
			taken[candidate] = struct{}{}
		}
		p.Token = candidate
		return candidate
	}
}
