package summarize

import (
	"fmt"
	"strings"

	"tendersum/internal/config"
)

type NamedProvider struct {
	Ref      ProviderRef
	Provider OverviewProvider
}

// Manager holds the configured overview providers. An empty provider list is
// legal and means no AI overview is attempted.
type Manager struct {
	providers []NamedProvider
}

func NewManager(cfg config.Config) (*Manager, error) {
	refs := ParseProviderList(cfg.SummaryProviders)
	m := &Manager{}
	for _, ref := range refs {
		p, err := buildProvider(ref, cfg)
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}
		m.providers = append(m.providers, NamedProvider{Ref: ref, Provider: p})
	}
	return m, nil
}

func (m *Manager) Count() int {
	return len(m.providers)
}

// First returns the preferred provider, or nil when none is configured.
func (m *Manager) First() OverviewProvider {
	if len(m.providers) == 0 {
		return nil
	}
	return m.providers[0].Provider
}

func buildProvider(ref ProviderRef, cfg config.Config) (OverviewProvider, error) {
	switch strings.ToLower(ref.Name) {
	case "mock":
		return NewMockProvider(), nil
	case "remote":
		return NewRemoteProvider(cfg.SummaryEndpoint, ref.KeyAlias), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported summary provider: %s", ref.Name)
	}
}
