package gateway

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/plateful/tenantcore/internal/domain"
)

// Backend is one instance of a logical service.
type Backend struct {
	URL *url.URL

	// Probe bookkeeping, owned by the prober goroutine.
	healthy          bool
	consecutiveFails int
	consecutiveRises int
}

// ServiceRegistry is the gateway's table of backend instances per
// logical service. It is written only by the health-probe loop; request
// handlers take the read lock to pick an instance. The set of services
// and instances is fixed at construction; only health flips at runtime.
type ServiceRegistry struct {
	mu       sync.RWMutex
	services map[string][]*Backend
	rr       map[string]int
}

// NewServiceRegistry parses a service → "url|url" topology map. All
// instances start healthy; the first probe sweep corrects that.
func NewServiceRegistry(topology map[string]string) (*ServiceRegistry, error) {
	services := make(map[string][]*Backend, len(topology))
	for name, raw := range topology {
		if name == "" {
			return nil, fmt.Errorf("empty service name in topology")
		}
		var backends []*Backend
		for _, item := range strings.Split(raw, "|") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			u, err := url.Parse(item)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return nil, fmt.Errorf("invalid backend url %q for service %q", item, name)
			}
			backends = append(backends, &Backend{URL: u, healthy: true})
		}
		if len(backends) == 0 {
			return nil, fmt.Errorf("service %q has no backends", name)
		}
		services[name] = backends
	}

	return &ServiceRegistry{
		services: services,
		rr:       make(map[string]int, len(services)),
	}, nil
}

// Services returns the known logical service names, sorted.
func (r *ServiceRegistry) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.services))
	for name := range r.services {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Known reports whether the logical service exists in the topology.
func (r *ServiceRegistry) Known(service string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.services[service]
	return ok
}

// Pick returns a healthy instance of the service, round-robin. It
// returns ErrServiceUnavailable when every instance is ejected, so the
// caller can fail fast instead of retrying silently.
func (r *ServiceRegistry) Pick(service string) (*url.URL, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	backends, ok := r.services[service]
	if !ok {
		return nil, fmt.Errorf("%w: unknown service %q", domain.ErrServiceUnavailable, service)
	}

	n := len(backends)
	start := r.rr[service]
	for i := 0; i < n; i++ {
		b := backends[(start+i)%n]
		if b.healthy {
			r.rr[service] = (start + i + 1) % n
			return b.URL, nil
		}
	}
	return nil, fmt.Errorf("%w: service %q", domain.ErrServiceUnavailable, service)
}

// snapshot returns every backend for probing. Only the prober calls it.
func (r *ServiceRegistry) snapshot() map[string][]*Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]*Backend, len(r.services))
	for name, backends := range r.services {
		out[name] = append([]*Backend(nil), backends...)
	}
	return out
}

// setHealth applies one probe outcome with hysteresis: an instance is
// ejected after failThreshold consecutive failures and restored only
// after riseThreshold consecutive successes, so a flapping backend does
// not bounce in and out of the selectable set.
func (r *ServiceRegistry) setHealth(b *Backend, up bool, failThreshold, riseThreshold int) (healthy, changed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if up {
		b.consecutiveFails = 0
		if b.healthy {
			return true, false
		}
		b.consecutiveRises++
		if b.consecutiveRises >= riseThreshold {
			b.healthy = true
			b.consecutiveRises = 0
			return true, true
		}
		return false, false
	}

	b.consecutiveRises = 0
	if !b.healthy {
		return false, false
	}
	b.consecutiveFails++
	if b.consecutiveFails >= failThreshold {
		b.healthy = false
		b.consecutiveFails = 0
		return false, true
	}
	return true, false
}
