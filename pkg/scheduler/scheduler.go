// Package scheduler runs a priority queue of FFT work items across a
// fixed worker pool, posting results back through a channel.
package scheduler

import (
	"container/heap"
	"sync"

	"github.com/spettro-go/spettro/pkg/dspwin"
	"github.com/spettro-go/spettro/pkg/resultcache"
)

// SampleReader is the subset of pkg/sampleio.Source the scheduler needs.
type SampleReader interface {
	Read(startFrame int64, frameCount int) []float64
	SampleRate() int
	Channels() int
}

// Result is a computed column posted back to the caller. Generation
// lets the receiver discard results from before the last DropAllWork.
type Result struct {
	Key        resultcache.Key
	Column     *resultcache.Column
	Generation uint64
}

type workItem struct {
	key         resultcache.Key
	pieceCol    int // this key's absolute piece column, for reprioritizing
	priorityCol int // abs distance from the current center column
	generation  uint64
	index       int // heap bookkeeping
}

type priorityQueue []*workItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	a, b := pq[i], pq[j]
	if a.priorityCol != b.priorityCol {
		return a.priorityCol < b.priorityCol
	}
	if a.key.Speclen != b.key.Speclen {
		return a.key.Speclen < b.key.Speclen
	}
	return a.key.ColumnTime < b.key.ColumnTime
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x interface{}) {
	item := x.(*workItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// Scheduler dispatches FFT work across a fixed pool of worker
// goroutines, keyed and prioritized per spec.md §4.4.
type Scheduler struct {
	mu         sync.Mutex
	cond       *sync.Cond
	queue      priorityQueue
	inFlight   map[resultcache.Key]*workItem
	centerCol  int
	generation uint64
	closed     bool

	maxThreads int
	wg         sync.WaitGroup

	reader  SampleReader
	windows *dspwin.WindowCache
	results chan Result
}

// New creates a Scheduler reading samples via reader and caching window
// coefficients via windows. maxThreads == 0 runs every request
// synchronously in the calling goroutine.
func New(reader SampleReader, windows *dspwin.WindowCache, maxThreads int) *Scheduler {
	s := &Scheduler{
		inFlight:   make(map[resultcache.Key]*workItem),
		maxThreads: maxThreads,
		reader:     reader,
		windows:    windows,
		results:    make(chan Result, 256),
	}
	s.cond = sync.NewCond(&s.mu)

	for i := 0; i < maxThreads; i++ {
		s.wg.Add(1)
		go s.workerLoop()
	}
	return s
}

// Results returns the channel workers post completed columns to.
func (s *Scheduler) Results() <-chan Result { return s.results }

// Request enqueues key for computation at the given piece column
// (used to derive priority). A key already cached by the caller should
// not be requested; a key already in flight just has its priority
// bumped; otherwise it is enqueued fresh.
func (s *Scheduler) Request(key resultcache.Key, pieceCol int) {
	s.mu.Lock()

	priority := abs(pieceCol - s.centerCol)

	if item, ok := s.inFlight[key]; ok {
		item.pieceCol = pieceCol
		item.priorityCol = priority
		if item.index >= 0 {
			heap.Fix(&s.queue, item.index)
		}
		s.cond.Signal()
		s.mu.Unlock()
		return
	}

	item := &workItem{key: key, pieceCol: pieceCol, priorityCol: priority, generation: s.generation}
	s.inFlight[key] = item
	heap.Push(&s.queue, item)
	s.cond.Signal()

	synchronous := s.maxThreads == 0
	s.mu.Unlock()

	if synchronous {
		s.runSynchronously(item)
	}
}

// Reprioritize recomputes every pending item's priority against a new
// center column; it does not touch in-flight computation already
// running on a worker.
func (s *Scheduler) Reprioritize(centerCol int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.centerCol = centerCol
	for _, item := range s.queue {
		item.priorityCol = abs(item.pieceCol - centerCol)
	}
	heap.Init(&s.queue)
	s.cond.Broadcast()
}

// DropAllWork clears the pending queue and bumps the generation
// counter so any in-flight result still arriving from before this call
// is discarded by the caller's own generation check.
func (s *Scheduler) DropAllWork() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue = s.queue[:0]
	s.inFlight = make(map[resultcache.Key]*workItem)
	s.generation++
}

// JobsInFlight returns the number of keys currently enqueued or being
// computed by a worker.
func (s *Scheduler) JobsInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight)
}

// CurrentGeneration returns the generation counter as of this call, for
// callers that need to distinguish a stale in-flight Result (computed
// before the most recent DropAllWork) from a current one.
func (s *Scheduler) CurrentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Close stops all worker goroutines and closes the results channel.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()
	s.wg.Wait()
	close(s.results)
}

func (s *Scheduler) workerLoop() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed && len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		item := heap.Pop(&s.queue).(*workItem)
		generation := s.generation
		s.mu.Unlock()

		s.compute(item, generation)

		s.mu.Lock()
		delete(s.inFlight, item.key)
		s.mu.Unlock()
	}
}

// runSynchronously computes item in the caller's own goroutine, for the
// max_threads == 0 configuration. The item was just pushed onto the
// queue by Request, so it is removed here instead of by a worker.
func (s *Scheduler) runSynchronously(item *workItem) {
	s.compute(item, item.generation)

	s.mu.Lock()
	for i, v := range s.queue {
		if v == item {
			heap.Remove(&s.queue, i)
			break
		}
	}
	delete(s.inFlight, item.key)
	s.mu.Unlock()
}

func (s *Scheduler) compute(item *workItem, generation uint64) {
	key := item.key
	sampleRate := s.reader.SampleRate()
	channels := s.reader.Channels()
	speclen := key.Speclen

	centerFrame := int64(key.ColumnTime * float64(sampleRate))
	startFrame := centerFrame - int64(speclen)
	frameCount := 2 * speclen

	raw := s.reader.Read(startFrame, frameCount)
	samples := toMono(raw, channels)

	window := s.windows.Get(speclen, key.Window)
	magnitudes := dspwin.Transform(samples, window)

	select {
	case s.results <- Result{
		Key:        key,
		Column:     &resultcache.Column{Magnitudes: magnitudes, SampleRate: sampleRate},
		Generation: generation,
	}:
	default:
		// results channel full: drop rather than block a worker forever.
	}
}

func toMono(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += interleaved[i*channels+c]
		}
		out[i] = sum / float64(channels)
	}
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
