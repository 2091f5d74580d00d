// internal/council/member-registry/registry.go
package memberregistry

import (
	"errors"
	"fmt"

	"ai-council/internal/common/config"
)

var (
	ErrNoMembers            = errors.New("council has no members")
	ErrDuplicateMember      = errors.New("duplicate council member id")
	ErrUnknownSynthesizer   = errors.New("synthesizer is not a registered council member")
	ErrInvalidMemberSetting = errors.New("invalid council member")
)

// Member is one council member. Values are copied out of the registry, so
// callers cannot mutate registry state.
type Member struct {
	ID          string
	DisplayName string
	Endpoint    string
	Persona     string
	Temperature float64
	MaxTokens   int
	Model       string
}

// Registry is the immutable, ordered set of council members. It is safe for
// concurrent reads without synchronization.
type Registry struct {
	members     []Member
	index       map[string]int
	synthesizer string
}

// New validates members and the synthesizer selection. Any error is fatal at
// startup.
func New(members []Member, synthesizerID string) (*Registry, error) {
	if len(members) == 0 {
		return nil, ErrNoMembers
	}

	r := &Registry{
		members: make([]Member, len(members)),
		index:   make(map[string]int, len(members)),
	}
	for i, m := range members {
		if m.ID == "" {
			return nil, fmt.Errorf("%w: members[%d] has empty id", ErrInvalidMemberSetting, i)
		}
		if m.Endpoint == "" {
			return nil, fmt.Errorf("%w: %s has empty endpoint", ErrInvalidMemberSetting, m.ID)
		}
		if m.MaxTokens <= 0 {
			return nil, fmt.Errorf("%w: %s max tokens must be positive", ErrInvalidMemberSetting, m.ID)
		}
		if _, dup := r.index[m.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMember, m.ID)
		}
		if m.DisplayName == "" {
			m.DisplayName = m.ID
		}
		r.members[i] = m
		r.index[m.ID] = i
	}

	if _, ok := r.index[synthesizerID]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSynthesizer, synthesizerID)
	}
	r.synthesizer = synthesizerID

	return r, nil
}

// FromConfig builds the registry from the loaded council configuration.
func FromConfig(cfg config.CouncilConfig) (*Registry, error) {
	members := make([]Member, 0, len(cfg.Members))
	for _, m := range cfg.Members {
		members = append(members, Member{
			ID:          m.ID,
			DisplayName: m.Name,
			Endpoint:    m.Endpoint,
			Persona:     m.System,
			Temperature: m.Temperature,
			MaxTokens:   m.MaxTokens,
			Model:       m.Model,
		})
	}
	return New(members, cfg.Synthesizer)
}

// Members returns every member in configuration order.
func (r *Registry) Members() []Member {
	out := make([]Member, len(r.members))
	copy(out, r.members)
	return out
}

func (r *Registry) Lookup(id string) (Member, bool) {
	i, ok := r.index[id]
	if !ok {
		return Member{}, false
	}
	return r.members[i], true
}

// Synthesizer returns the member designated for the consensus step.
func (r *Registry) Synthesizer() Member {
	return r.members[r.index[r.synthesizer]]
}

func (r *Registry) IDs() []string {
	ids := make([]string, len(r.members))
	for i, m := range r.members {
		ids[i] = m.ID
	}
	return ids
}

func (r *Registry) Len() int {
	return len(r.members)
}
