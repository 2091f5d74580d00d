// internal/council/health-probe/service.go
package healthprobe

import (
	"context"
	"net/http"
	"strings"

	commonhttp "ai-council/internal/common/http"
	"ai-council/internal/common/metrics"
	memberregistry "ai-council/internal/council/member-registry"
	"ai-council/internal/models"

	"github.com/sourcegraph/conc/iter"
)

type Logger interface {
	Debug(msg string, fields map[string]interface{})
}

// Prober checks every member's /health endpoint. Snapshots are computed on
// each call and never cached.
type Prober struct {
	config  *Config
	members []memberregistry.Member
	client  *commonhttp.Client
	logger  Logger
}

func NewProber(config *Config, members []memberregistry.Member, client *commonhttp.Client, log Logger) *Prober {
	return &Prober{
		config:  config,
		members: members,
		client:  client,
		logger:  log,
	}
}

// Check probes all members concurrently. A member that does not answer 2xx
// within the timeout is offline.
func (p *Prober) Check(ctx context.Context) models.HealthSnapshot {
	statuses := iter.Mapper[memberregistry.Member, models.MemberStatus]{
		MaxGoroutines: len(p.members),
	}.Map(p.members, func(m *memberregistry.Member) models.MemberStatus {
		return p.probe(ctx, *m)
	})

	snapshot := make(models.HealthSnapshot, len(p.members))
	for i, m := range p.members {
		snapshot[m.ID] = statuses[i]
		online := 0.0
		if statuses[i] == models.StatusOnline {
			online = 1
		}
		metrics.MembersOnline.WithLabelValues(m.ID).Set(online)
	}
	return snapshot
}

func (p *Prober) probe(ctx context.Context, member memberregistry.Member) models.MemberStatus {
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	url := strings.TrimRight(member.Endpoint, "/") + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.StatusOffline
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("member health probe failed", map[string]interface{}{
			"member": member.ID,
			"error":  err.Error(),
		})
		return models.StatusOffline
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.StatusOffline
	}
	return models.StatusOnline
}
