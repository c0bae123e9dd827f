package cache

// ScopedKeyer wraps a Keyer with a prefix so independent deployments can
// share one backend without key collisions. The usual scope is the
// environment name from configuration, e.g. "prod:" vs "staging:", since
// the same manager name may resolve to different brokers per environment.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer that prepends prefix to every key.
// A nil inner keyer falls back to the default.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// TraceKey generates a prefixed trace key.
func (k *ScopedKeyer) TraceKey(manager, object string, opts TraceKeyOpts) string {
	return k.prefix + k.inner.TraceKey(manager, object, opts)
}
