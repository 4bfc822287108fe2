package gateway

import (
	"errors"
	"testing"

	"github.com/plateful/tenantcore/internal/domain"
)

func TestNewServiceRegistry(t *testing.T) {
	t.Run("Parses Piped Instances", func(t *testing.T) {
		reg, err := NewServiceRegistry(map[string]string{
			"orders": "http://orders-1:8080|http://orders-2:8080",
			"menu":   "http://menu-1:8080",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := reg.Services(); len(got) != 2 || got[0] != "menu" || got[1] != "orders" {
			t.Errorf("unexpected services %v", got)
		}
		if !reg.Known("orders") || reg.Known("payments") {
			t.Error("Known lookup wrong")
		}
	})

	t.Run("Rejects Bad Topologies", func(t *testing.T) {
		cases := []map[string]string{
			{"orders": ""},
			{"orders": "not a url"},
			{"orders": "orders-1:8080"}, // no scheme
			{"": "http://x:1"},
		}
		for _, topo := range cases {
			if _, err := NewServiceRegistry(topo); err == nil {
				t.Errorf("expected %v to be rejected", topo)
			}
		}
	})
}

func TestPickRoundRobin(t *testing.T) {
	reg, err := NewServiceRegistry(map[string]string{
		"orders": "http://a:1|http://b:1|http://c:1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := make(map[string]int)
	for i := 0; i < 6; i++ {
		u, err := reg.Pick("orders")
		if err != nil {
			t.Fatalf("pick %d failed: %v", i, err)
		}
		seen[u.Host]++
	}
	for _, host := range []string{"a:1", "b:1", "c:1"} {
		if seen[host] != 2 {
			t.Errorf("expected host %s picked twice, got %d (all: %v)", host, seen[host], seen)
		}
	}

	t.Run("Unknown Service", func(t *testing.T) {
		if _, err := reg.Pick("payments"); !errors.Is(err, domain.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestPickSkipsUnhealthy(t *testing.T) {
	reg, err := NewServiceRegistry(map[string]string{
		"orders": "http://a:1|http://b:1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	backends := reg.snapshot()["orders"]
	var down *Backend
	for _, b := range backends {
		if b.URL.Host == "a:1" {
			down = b
		}
	}

	// Eject a:1 with three straight failures.
	for i := 0; i < 3; i++ {
		reg.setHealth(down, false, 3, 2)
	}

	for i := 0; i < 4; i++ {
		u, err := reg.Pick("orders")
		if err != nil {
			t.Fatalf("pick failed: %v", err)
		}
		if u.Host != "b:1" {
			t.Errorf("expected only b:1 selectable, got %s", u.Host)
		}
	}

	t.Run("All Down", func(t *testing.T) {
		var other *Backend
		for _, b := range backends {
			if b.URL.Host == "b:1" {
				other = b
			}
		}
		for i := 0; i < 3; i++ {
			reg.setHealth(other, false, 3, 2)
		}
		_, err := reg.Pick("orders")
		if !errors.Is(err, domain.ErrServiceUnavailable) {
			t.Fatalf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestSetHealthHysteresis(t *testing.T) {
	reg, err := NewServiceRegistry(map[string]string{"orders": "http://a:1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := reg.snapshot()["orders"][0]

	const failThreshold, riseThreshold = 3, 2

	t.Run("Ejection Needs Consecutive Failures", func(t *testing.T) {
		if healthy, changed := reg.setHealth(b, false, failThreshold, riseThreshold); !healthy || changed {
			t.Error("one failure must not eject")
		}
		if healthy, changed := reg.setHealth(b, false, failThreshold, riseThreshold); !healthy || changed {
			t.Error("two failures must not eject")
		}
		// A success resets the failure streak.
		if healthy, _ := reg.setHealth(b, true, failThreshold, riseThreshold); !healthy {
			t.Error("success on a healthy backend must keep it healthy")
		}
		reg.setHealth(b, false, failThreshold, riseThreshold)
		reg.setHealth(b, false, failThreshold, riseThreshold)
		healthy, changed := reg.setHealth(b, false, failThreshold, riseThreshold)
		if healthy || !changed {
			t.Error("third consecutive failure must eject")
		}
	})

	t.Run("Restore Needs Consecutive Successes", func(t *testing.T) {
		if healthy, changed := reg.setHealth(b, true, failThreshold, riseThreshold); healthy || changed {
			t.Error("one success must not restore")
		}
		// A failure resets the rise streak.
		reg.setHealth(b, false, failThreshold, riseThreshold)
		reg.setHealth(b, true, failThreshold, riseThreshold)
		healthy, changed := reg.setHealth(b, true, failThreshold, riseThreshold)
		if !healthy || !changed {
			t.Error("second consecutive success must restore")
		}
	})
}
