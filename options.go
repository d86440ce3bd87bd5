package octgo

import (
	"github.com/hupe1980/octgo/chunk"
	"github.com/hupe1980/octgo/codec"
	"github.com/hupe1980/octgo/resource"
)

type options struct {
	cacheSize     uint64
	chunkCapacity int
	compressor    codec.Compressor
	logger        *Logger
	metrics       MetricsCollector
	controller    *resource.Controller
}

func defaultOptions() options {
	return options{
		cacheSize:     64,
		chunkCapacity: chunk.DefaultCapacity,
		compressor:    codec.DefaultCompressor,
		logger:        NoopLogger(),
		metrics:       NoopMetricsCollector{},
	}
}

// Option configures ChunkCache construction.
type Option func(*options)

// WithCacheSize sets the eviction pool budget: how many zero-referenced
// chunks may linger in memory before purges spill them. This is a soft
// bound on memory; actively referenced chunks are never evicted and can
// push true usage above it. 0 spills every chunk as soon as it goes idle.
func WithCacheSize(size uint64) Option {
	return func(o *options) {
		o.cacheSize = size
	}
}

// WithChunkCapacity sets the per-chunk voxel capacity. Smaller chunks make
// deeper trees; the capacity is also the unit of IO, so very small values
// fragment the output into many tiny blobs.
func WithChunkCapacity(capacity int) Option {
	return func(o *options) {
		if capacity < 1 {
			capacity = chunk.DefaultCapacity
		}
		o.chunkCapacity = capacity
	}
}

// WithCompression sets the block compressor for chunk blobs.
// If nil is passed, codec.DefaultCompressor is used. Blobs are
// self-describing, so the setting may change between runs of a continued
// build.
func WithCompression(c codec.Compressor) Option {
	return func(o *options) {
		if c == nil {
			c = codec.DefaultCompressor
		}
		o.compressor = c
	}
}

// WithLogger configures structured logging. Pass nil to disable.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetrics configures a metrics collector for monitoring cache traffic.
// Pass nil to disable metrics collection.
func WithMetrics(m MetricsCollector) Option {
	return func(o *options) {
		if m == nil {
			m = NoopMetricsCollector{}
		}
		o.metrics = m
	}
}

// WithResourceController attaches a resource controller; endpoint traffic
// is then charged against its IO budget.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}
