package notifier

// Option applies a configuration option to the Broker.
type Option func(*Broker)

// WithSubscriberBuffer sets the per-subscriber channel depth.
func WithSubscriberBuffer(size int) Option {
	return func(b *Broker) {
		if size > 0 {
			b.bufferSize = size
		}
	}
}

// WithShardCount sets how many dispatcher goroutines fan out events.
func WithShardCount(count int) Option {
	return func(b *Broker) {
		if count > 0 {
			b.shardCount = count
		}
	}
}

// WithQueueSize bounds each dispatch shard's queue.
func WithQueueSize(size int) Option {
	return func(b *Broker) {
		if size > 0 {
			b.queueSize = size
		}
	}
}
