package dynamo

import (
	"runtime"
	"sync"
)

// DefaultWorkers returns the worker count used when none is configured.
func DefaultWorkers() int {
	return runtime.GOMAXPROCS(0)
}

// Chunks returns the number of chunks ParallelFor splits [0, n) into.
// Callers size per-worker buffers with it.
func Chunks(workers, n, minChunk int) int {
	if workers < 1 {
		workers = DefaultWorkers()
	}
	if minChunk < 1 {
		minChunk = 1
	}
	if n <= minChunk || workers <= 1 {
		return 1
	}
	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// ParallelFor executes fn in parallel over a range [0, n). Each invocation
// gets a distinct worker index in [0, Chunks(workers, n, minChunk)), and the
// chunk boundaries depend only on the arguments, so per-worker results can
// be reduced in a fixed order.
func ParallelFor(workers, n, minChunk int, fn func(worker, start, end int)) {
	chunks := Chunks(workers, n, minChunk)
	if chunks == 1 {
		fn(0, 0, n)
		return
	}

	chunkSize := (n + chunks - 1) / chunks

	var wg sync.WaitGroup
	wg.Add(chunks)

	for w := 0; w < chunks; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}

		go func(w, s, e int) {
			defer wg.Done()
			if s < e {
				fn(w, s, e)
			}
		}(w, start, end)
	}

	wg.Wait()
}
