package kv

import (
	"context"
	"errors"

	"github.com/leg100/kvproxy/internal"
	"github.com/prometheus/client_golang/prometheus"
)

var _ Store = (*InstrumentedStore)(nil)

// InstrumentedStore counts the outcome of each operation on the wrapped
// store.
type InstrumentedStore struct {
	Store

	ops *prometheus.CounterVec
}

// NewInstrumentedStore wraps store, registering its metrics with reg.
func NewInstrumentedStore(store Store, reg prometheus.Registerer) (*InstrumentedStore, error) {
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kvproxy",
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Number of key-value store operations by operation and result.",
	}, []string{"operation", "result"})
	if err := reg.Register(ops); err != nil {
		return nil, err
	}
	return &InstrumentedStore{Store: store, ops: ops}, nil
}

func (s *InstrumentedStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.Store.Get(ctx, key)
	switch {
	case errors.Is(err, internal.ErrKeyNotFound):
		s.ops.WithLabelValues("get", "miss").Inc()
	case err != nil:
		s.ops.WithLabelValues("get", "error").Inc()
	default:
		s.ops.WithLabelValues("get", "hit").Inc()
	}
	return val, err
}

func (s *InstrumentedStore) Set(ctx context.Context, key, value string) error {
	err := s.Store.Set(ctx, key, value)
	if err != nil {
		s.ops.WithLabelValues("set", "error").Inc()
	} else {
		s.ops.WithLabelValues("set", "ok").Inc()
	}
	return err
}
