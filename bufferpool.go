package airlift

// frameScratchSize is the capacity of pooled frame buffers. An encoded event
// record plus its length prefix is well under this; a frame that somehow
// outgrows it is allocated normally and never pooled.
const frameScratchSize = 256

// framePool recycles the scratch buffers used to assemble event-log frames.
// It is channel-based and safe for concurrent use by every actor goroutine of
// an in-process run without additional locking.
type framePool struct {
	pool chan []byte
}

// newFramePool creates a pool pre-populated with count frame buffers.
func newFramePool(count int) *framePool {
	pool := make(chan []byte, count)
	for i := 0; i < count; i++ {
		pool <- make([]byte, frameScratchSize)
	}
	return &framePool{pool: pool}
}

// get returns a frame buffer from the pool, allocating a fresh one if the
// pool is empty.
func (fp *framePool) get() []byte {
	select {
	case buf := <-fp.pool:
		return buf
	default:
		return make([]byte, frameScratchSize)
	}
}

// put returns a frame buffer to the pool. Buffers whose capacity no longer
// matches (a frame outgrew the scratch size) are left to the garbage
// collector, as is any buffer arriving while the pool is full.
func (fp *framePool) put(buf []byte) {
	if cap(buf) != frameScratchSize {
		return
	}
	select {
	case fp.pool <- buf[:frameScratchSize]:
	default:
	}
}
