package metrics

import (
	"time"

	"github.com/cuemby/balthazar/pkg/swarmnet"
)

// Collector polls a Host's peer registry on an interval and publishes its
// counts as gauges. Registry is safe for concurrent reads (guarded by its
// own RWMutex), so this runs independently of the orchestrator's event
// loop goroutine.
type Collector struct {
	registry *swarmnet.Registry
	stopCh   chan struct{}
}

// NewCollector creates a new metrics collector for host's registry.
func NewCollector(host *swarmnet.Host) *Collector {
	return &Collector{
		registry: host.Registry(),
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	counts := c.registry.RoleCounts()
	for role, n := range counts {
		PeersTotal.WithLabelValues(role).Set(float64(n))
	}
	PairedWorkersTotal.Set(float64(counts["worker"]))
}
