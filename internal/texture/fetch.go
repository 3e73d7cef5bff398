package texture

import (
	"image"
	"log/slog"
	"sync"
)

// Fetcher runs texture fetch-and-decode on a small worker pool.
// Fetch is fire-and-forget: scene construction never blocks on it, and
// each job's completion callback patches the already-published material.
type Fetcher struct {
	resolver Resolver
	cache    *Cache
	log      *slog.Logger

	jobs chan fetchJob
	wg   sync.WaitGroup // workers
	out  sync.WaitGroup // outstanding jobs

	closeOnce sync.Once
}

type fetchJob struct {
	asset string
	from  string
	apply func(img *image.NRGBA)
}

// NewFetcher starts a fetcher with the given number of decode workers.
// A nil logger discards.
func NewFetcher(resolver Resolver, workers int, log *slog.Logger) *Fetcher {
	if workers <= 0 {
		workers = 2
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	f := &Fetcher{
		resolver: resolver,
		cache:    NewCache(),
		log:      log,
		jobs:     make(chan fetchJob, 64),
	}
	for w := 0; w < workers; w++ {
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			for job := range f.jobs {
				f.run(job)
			}
		}()
	}
	return f
}

func (f *Fetcher) run(job fetchJob) {
	defer f.out.Done()
	var img *image.NRGBA
	if f.resolver != nil {
		if loc, ok := f.resolver.Resolve(job.asset, job.from); ok {
			img = f.cache.Get(loc)
		}
	}
	if img == nil {
		f.log.Debug("texture unresolved", "asset", job.asset, "from", job.from)
	}
	// nil means failure; the callback decides whether to keep the
	// constant-value look or substitute a guessed flat color.
	job.apply(img)
}

// Fetch queues an asynchronous fetch. apply runs on a worker goroutine
// once the image is decoded (or known missing) and must restrict itself
// to whole-field replacement on the material it patches; there is no
// ordering guarantee between slots of one material.
func (f *Fetcher) Fetch(asset, from string, apply func(img *image.NRGBA)) {
	f.out.Add(1)
	f.jobs <- fetchJob{asset: asset, from: from, apply: apply}
}

// Wait blocks until every queued fetch has completed. Tools and tests
// use it; the interactive path never does.
func (f *Fetcher) Wait() { f.out.Wait() }

// Close drains the pool. Fetch must not be called afterwards.
func (f *Fetcher) Close() {
	f.closeOnce.Do(func() {
		close(f.jobs)
		f.wg.Wait()
	})
}
