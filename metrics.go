package authd

import "sync/atomic"

// MetricID identifies one engine counter.
type MetricID uint8

const (
	MetricRegistered MetricID = iota
	MetricVerificationSent
	MetricVerified
	MetricLoginChallengeSent
	MetricLoginConfirmed
	MetricAuthFailure
	MetricReplayRejected
	MetricCooldownHit
	metricCount
)

// Metrics is a fixed set of lock-free counters incremented on engine events.
type Metrics struct {
	counters [metricCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Registered         uint64
	VerificationSent   uint64
	Verified           uint64
	LoginChallengeSent uint64
	LoginConfirmed     uint64
	AuthFailure        uint64
	ReplayRejected     uint64
	CooldownHit        uint64
}

func newMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) inc(id MetricID) {
	if m == nil || id >= metricCount {
		return
	}
	m.counters[id].Add(1)
}

// Get returns the current value of a single counter.
func (m *Metrics) Get(id MetricID) uint64 {
	if m == nil || id >= metricCount {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot copies every counter at once. Counters may advance between loads;
// the snapshot is advisory, not transactional.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Registered:         m.Get(MetricRegistered),
		VerificationSent:   m.Get(MetricVerificationSent),
		Verified:           m.Get(MetricVerified),
		LoginChallengeSent: m.Get(MetricLoginChallengeSent),
		LoginConfirmed:     m.Get(MetricLoginConfirmed),
		AuthFailure:        m.Get(MetricAuthFailure),
		ReplayRejected:     m.Get(MetricReplayRejected),
		CooldownHit:        m.Get(MetricCooldownHit),
	}
}
