package notifier

// Option applies a configuration option to the Notifier.
type Option func(*Notifier)

// WithBufferSize sets the per-subscriber buffer capacity.
func WithBufferSize(size int) Option {
	return func(n *Notifier) {
		if size > 0 {
			n.bufferSize = size
		}
	}
}
