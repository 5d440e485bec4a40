package cache

// ScopedKeyer wraps a Keyer with a prefix so several tools or deployments
// can share one Redis instance without colliding.
//
//	k := NewScopedKeyer(NewDefaultKeyer(), "bench:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ScheduleKey generates a prefixed schedule key.
func (k *ScopedKeyer) ScheduleKey(problemHash string, opts ScheduleKeyOpts) string {
	return k.prefix + k.inner.ScheduleKey(problemHash, opts)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(scheduleHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(scheduleHash, opts)
}
