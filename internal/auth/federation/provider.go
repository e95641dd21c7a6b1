// Package federation holds the clients for external identity providers.
// A provider turns the code from its consent redirect into an attested
// profile; it never sees local accounts or tokens.
package federation

//go:generate mockgen -destination=mock_provider.go -package=federation . Provider

import (
	"context"
	"errors"
	"sort"

	"github.com/aussiebroadwan/passage/internal/auth/domain"
)

var ErrUnknownProvider = errors.New("federation: unknown provider")

// Provider is one OAuth2 authorization-code identity provider.
type Provider interface {
	// Name is the provider tag stored in the user's origin, e.g. "google".
	Name() string

	// AuthCodeURL is the consent page the browser is sent to.
	AuthCodeURL(state string) string

	// Exchange redeems the provider's code and fetches the profile.
	Exchange(ctx context.Context, code string) (domain.FederatedProfile, error)
}

// Registry looks providers up by name.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

func (r *Registry) Get(name string) (Provider, error) {
	if r == nil {
		return nil, ErrUnknownProvider
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

// Names returns the configured provider names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
