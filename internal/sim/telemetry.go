package sim

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"

	"github.com/kaber420/mikroisp-manager-sub000/internal/session"
)

// Telemetry produces live samples for the simulated device. CPU, memory and
// throughput come from the host via gopsutil so the charts move like a real
// device's would; radio figures are synthesized around plausible values.
type Telemetry struct {
	mu     sync.Mutex
	rng    *rand.Rand
	lastAt time.Time
	lastTx uint64
	lastRx uint64
	tick   int
}

func NewTelemetry() *Telemetry {
	return &Telemetry{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Sample takes one snapshot. Host probes that fail degrade to synthesized
// values; the simulator keeps serving either way.
func (t *Telemetry) Sample() session.TelemetrySample {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	t.tick++

	s := session.TelemetrySample{
		At:        now,
		SignalDBm: -62 + 4*math.Sin(float64(t.tick)/5) + t.rng.Float64()*3,
		CCQ:       88 + 8*math.Sin(float64(t.tick)/7) + t.rng.Float64()*4,
	}
	if s.CCQ > 100 {
		s.CCQ = 100
	}

	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		s.CPULoad = pcts[0]
	} else {
		s.CPULoad = 10 + t.rng.Float64()*20
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.MemoryUse = vm.UsedPercent
	} else {
		s.MemoryUse = 40 + t.rng.Float64()*10
	}

	if counters, err := gnet.IOCounters(false); err == nil && len(counters) > 0 {
		tx, rx := counters[0].BytesSent, counters[0].BytesRecv
		if !t.lastAt.IsZero() {
			elapsed := now.Sub(t.lastAt).Seconds()
			if elapsed > 0 && tx >= t.lastTx && rx >= t.lastRx {
				s.TxRate = float64(tx-t.lastTx) * 8 / elapsed
				s.RxRate = float64(rx-t.lastRx) * 8 / elapsed
			}
		}
		t.lastTx, t.lastRx = tx, rx
		t.lastAt = now
	} else {
		s.TxRate = 2e6 + t.rng.Float64()*5e5
		s.RxRate = 8e6 + t.rng.Float64()*2e6
	}

	return s
}

// Totals returns the cumulative host byte counters for the statistics view.
func (t *Telemetry) Totals() (tx, rx int64) {
	if counters, err := gnet.IOCounters(false); err == nil && len(counters) > 0 {
		return int64(counters[0].BytesSent), int64(counters[0].BytesRecv)
	}
	return 0, 0
}
