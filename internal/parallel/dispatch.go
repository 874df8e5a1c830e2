package parallel

// minBandRows keeps bands large enough that scheduling overhead stays
// well below the per-row filter cost.
const minBandRows = 8

// Dispatcher runs row-parallel kernels and acts as the barrier between them.
//
// A Dispatcher with a single worker runs kernels inline on the caller's
// goroutine and starts no goroutines at all.
type Dispatcher struct {
	pool    *WorkerPool
	workers int
}

// NewDispatcher creates a dispatcher. workers <= 0 selects GOMAXPROCS.
func NewDispatcher(workers int) *Dispatcher {
	d := &Dispatcher{workers: workers}
	if workers == 1 {
		return d
	}
	d.pool = NewWorkerPool(workers)
	d.workers = d.pool.Workers()
	return d
}

// Workers returns the degree of parallelism.
func (d *Dispatcher) Workers() int {
	return d.workers
}

// Rows calls kernel over [0, height) split into disjoint bands [y0, y1)
// and returns once every band has been written.
func (d *Dispatcher) Rows(height int, kernel func(y0, y1 int)) {
	if height <= 0 {
		return
	}
	if d.pool == nil || height <= minBandRows {
		kernel(0, height)
		return
	}

	bands := Bands(height, d.workers*2)
	work := make([]func(), len(bands))
	for i, b := range bands {
		work[i] = func() { kernel(b[0], b[1]) }
	}
	d.pool.ExecuteAll(work)
}

// Close releases the worker goroutines.
func (d *Dispatcher) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
}

// Bands splits [0, height) into at most n contiguous ranges of at least
// minBandRows rows each (the last band may be shorter).
func Bands(height, n int) [][2]int {
	if height <= 0 {
		return nil
	}
	if n < 1 {
		n = 1
	}
	size := max((height+n-1)/n, minBandRows)

	bands := make([][2]int, 0, (height+size-1)/size)
	for y := 0; y < height; y += size {
		bands = append(bands, [2]int{y, min(y+size, height)})
	}
	return bands
}
