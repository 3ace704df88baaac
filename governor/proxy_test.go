package governor

import (
	"context"
	"testing"
	"time"

	"github.com/use-agent/harvest/models"
)

func testProxies(n int) []models.ProxyConfig {
	out := make([]models.ProxyConfig, n)
	for i := range out {
		out[i] = models.ProxyConfig{Host: string(rune('a'+i)) + ".proxy.test", Port: 8080, Type: "http"}
	}
	return out
}

func TestProxyManager_NextRoundRobin(t *testing.T) {
	pm := NewProxyManager(testProxies(3))

	var order []string
	for i := 0; i < 7; i++ {
		p, ok := pm.Next()
		if !ok {
			t.Fatalf("Next %d returned no proxy", i)
		}
		order = append(order, p.Host)
	}

	want := []string{
		"a.proxy.test", "b.proxy.test", "c.proxy.test",
		"a.proxy.test", "b.proxy.test", "c.proxy.test",
		"a.proxy.test",
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("rotation order %v, want %v", order, want)
		}
	}
}

func TestProxyManager_EvenDistribution(t *testing.T) {
	pm := NewProxyManager(testProxies(3))

	// Over k selections each proxy is used either floor(k/n) or ceil(k/n)
	// times.
	counts := map[string]int{}
	const k = 10
	for i := 0; i < k; i++ {
		p, _ := pm.Next()
		counts[p.Host]++
	}

	for host, c := range counts {
		if c < k/3 || c > k/3+1 {
			t.Errorf("proxy %s selected %d times, want 3 or 4", host, c)
		}
	}
}

func TestProxyManager_Empty(t *testing.T) {
	pm := NewProxyManager(nil)

	if pm.Size() != 0 {
		t.Errorf("Size = %d, want 0", pm.Size())
	}
	if _, ok := pm.Next(); ok {
		t.Error("Next on empty rotation reported a proxy")
	}
	if _, ok := pm.Random(); ok {
		t.Error("Random on empty rotation reported a proxy")
	}
}

func TestProxyManager_RandomFromSet(t *testing.T) {
	proxies := testProxies(3)
	pm := NewProxyManager(proxies)

	valid := map[string]struct{}{}
	for _, p := range proxies {
		valid[p.Host] = struct{}{}
	}

	for i := 0; i < 20; i++ {
		p, ok := pm.Random()
		if !ok {
			t.Fatal("Random returned no proxy")
		}
		if _, found := valid[p.Host]; !found {
			t.Fatalf("Random returned unknown proxy %q", p.Host)
		}
	}
}

func TestProxyManager_ProbeFailureKeepsRotation(t *testing.T) {
	// One unreachable proxy; the probe fails but the rotation is unchanged.
	proxies := []models.ProxyConfig{{Host: "127.0.0.1", Port: 1, Type: "http"}}
	pm := NewProxyManager(proxies)
	pm.client.Timeout = 200 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if healthy := pm.Probe(ctx, proxies[0]); healthy {
		t.Skip("unexpectedly reachable probe target")
	}

	if pm.Size() != 1 {
		t.Fatalf("Size after failed probe = %d, want 1", pm.Size())
	}
	if _, ok := pm.Next(); !ok {
		t.Fatal("failed proxy dropped from rotation")
	}
}

func TestGovernor_New(t *testing.T) {
	g := New(5, time.Minute, testProxies(2))
	if g.Limiter == nil || g.Proxies == nil {
		t.Fatal("governor components not wired")
	}
	if g.Proxies.Size() != 2 {
		t.Errorf("Proxies.Size = %d, want 2", g.Proxies.Size())
	}
}
