package zs

import (
	"bytes"
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/cockroachdb/zs/block"
	"github.com/cockroachdb/zs/zserr"
)

// Query describes a search over the record space. The zero Query
// matches every record (a full scan). Start and Stop describe a
// half-open range [Start, Stop); Prefix is shorthand for "every
// record beginning with this byte string" and composes with an
// explicit Start/Stop by union, per spec.md §4.6.
type Query struct {
	Start  []byte
	Stop   []byte
	Prefix []byte
}

func (q Query) validate() error {
	if q.Start != nil && q.Stop != nil && bytes.Compare(q.Start, q.Stop) > 0 {
		return zserr.BadUsagef("search: start > stop")
	}
	return nil
}

// prefixUpperBound returns the smallest byte string strictly greater
// than every string with prefix p, or nil if no finite bound exists
// (p is empty or all 0xFF bytes) — the successor-key technique
// leveldb/pebble-family stores use for bounded prefix iteration.
func prefixUpperBound(p []byte) []byte {
	bound := append([]byte(nil), p...)
	for i := len(bound) - 1; i >= 0; i-- {
		if bound[i] != 0xff {
			bound[i]++
			return bound[:i+1]
		}
	}
	return nil
}

// minBound returns the lexicographically smaller of a, b, treating a
// nil argument as -infinity (so a present bound only narrows the
// result when the other side is also present).
func minBound(a, b []byte) []byte {
	if a == nil || b == nil {
		return nil
	}
	if bytes.Compare(a, b) <= 0 {
		return a
	}
	return b
}

// maxBound returns the lexicographically larger of a, b, treating a
// nil argument as +infinity.
func maxBound(a, b []byte) ([]byte, bool) {
	if a == nil || b == nil {
		return nil, false // unbounded
	}
	if bytes.Compare(a, b) >= 0 {
		return a, true
	}
	return b, true
}

// pruneBounds computes the tree-pruning [start, stop) window for q: a
// superset of every record q.matches could accept. It need not be
// tight when Prefix and Start/Stop are combined; matches() is always
// re-checked per record.
func (q Query) pruneBounds() (start, stop []byte) {
	start = q.Start
	if q.Prefix != nil {
		start = minBound(start, q.Prefix)
		if start == nil && q.Start == nil && q.Stop == nil {
			start = q.Prefix
		}
	}
	switch {
	case q.Stop != nil && q.Prefix != nil:
		if b, ok := maxBound(q.Stop, prefixUpperBound(q.Prefix)); ok {
			stop = b
		}
	case q.Stop != nil:
		stop = q.Stop
	case q.Prefix != nil && q.Start == nil:
		stop = prefixUpperBound(q.Prefix)
	}
	return start, stop
}

// matches reports whether record satisfies the query.
func (q Query) matches(record []byte) bool {
	if q.Prefix != nil && bytes.HasPrefix(record, q.Prefix) {
		return true
	}
	if q.Start == nil && q.Stop == nil {
		return q.Prefix == nil
	}
	if q.Start != nil && bytes.Compare(record, q.Start) < 0 {
		return false
	}
	if q.Stop != nil && bytes.Compare(record, q.Stop) >= 0 {
		return false
	}
	return true
}

// firstMaybeGE returns the smallest i such that entries[i+1].Key >=
// target, treating the index past the last entry as +infinity (so it
// always qualifies as a fallback). This is NOT simply "the largest i
// with entries[i].Key <= target": duplicate records (a legal multiset
// per spec.md §3) can span more than one data block, and invariant 6
// only requires a child's separator key to be >= every record before
// its span, not strictly greater — so a run of equal separator keys
// means the duplicated value's records may be split across all of
// those children. Using the largest-i rule would descend into only
// the last of them and silently skip the earlier ones; this rule
// instead stops at the first child whose *next* sibling's separator
// has already reached target, keeping every child that might still
// hold some of the duplicated value.
func firstMaybeGE(entries []block.IndexEntry, target []byte) int {
	for i := 0; i < len(entries)-1; i++ {
		if bytes.Compare(entries[i+1].Key, target) >= 0 {
			return i
		}
	}
	return len(entries) - 1
}

// lastLT returns the largest i such that entries[i].Key < target, or
// -1 if no entry qualifies.
func lastLT(entries []block.IndexEntry, target []byte) int {
	i := -1
	for j, e := range entries {
		if bytes.Compare(e.Key, target) < 0 {
			i = j
		} else {
			break
		}
	}
	return i
}

// collectLeaves walks the tree rooted at h, returning the handles of
// every data block whose span might intersect [start, stop), in
// ascending file order. start == nil means "from the beginning";
// stop == nil means "to the end". This enumerates voffsets without
// fetching leaf contents, per spec.md §4.6's bulk-read design.
func (r *Reader) collectLeaves(ctx context.Context, h block.Handle, start, stop []byte) ([]block.Handle, error) {
	decoded, err := r.fetchBlock(ctx, h)
	if err != nil {
		return nil, err
	}
	if decoded.Level == block.DataLevel {
		return []block.Handle{h}, nil
	}
	entries, err := block.Entries(decoded.Payload)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, zserr.Corruptf("index block: no entries")
	}

	lo := 0
	if start != nil {
		lo = firstMaybeGE(entries, start)
	}
	hi := len(entries) - 1
	if stop != nil {
		hi = lastLT(entries, stop)
	}
	if lo > hi {
		return nil, nil
	}

	var leaves []block.Handle
	for i := lo; i <= hi; i++ {
		sub, err := r.collectLeaves(ctx, entries[i].Child, start, stop)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, sub...)
	}
	return leaves, nil
}

// Iterator yields records matching a Query in ascending sort order.
type Iterator struct {
	r      *Reader
	q      Query
	cancel context.CancelFunc

	out  <-chan leafResult
	cur  *block.DataIterator
	done bool
	err  error
}

type leafResult struct {
	decoded block.Decoded
	err     error
}

// Search enumerates the data blocks intersecting q's range and
// streams matching records in order. The pool of decompression
// workers is bounded by the Reader's configured worker count (see
// WithWorkers); results are reordered back into ascending sequence
// before delivery, per spec.md §4.6.
func (r *Reader) Search(ctx context.Context, q Query) (*Iterator, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	qctx, cancel := context.WithCancel(ctx)

	leaves, err := r.collectLeaves(qctx, r.rootHandle(), q.pruneBounds())
	if err != nil {
		cancel()
		return nil, err
	}

	it := &Iterator{r: r, q: q, cancel: cancel}
	it.out = r.dispatchLeaves(qctx, leaves)
	return it, nil
}

// dispatchLeaves fetches and decodes leaves in parallel (bounded by
// r.workers, or in-thread if r.workers == 0), delivering results on
// the returned channel strictly in leaf order.
func (r *Reader) dispatchLeaves(ctx context.Context, leaves []block.Handle) <-chan leafResult {
	if r.workers <= 0 {
		out := make(chan leafResult, 1)
		go func() {
			defer close(out)
			for _, h := range leaves {
				decoded, err := r.fetchBlock(ctx, h)
				select {
				case out <- leafResult{decoded, err}:
				case <-ctx.Done():
					return
				}
				if err != nil {
					return
				}
			}
		}()
		return out
	}

	bufCap := 3 * r.workers
	if bufCap < 1 {
		bufCap = 1
	}
	delivered := make(chan leafResult, bufCap)

	go func() {
		defer close(delivered)

		sem := semaphore.NewWeighted(int64(r.workers))
		var mu sync.Mutex
		pending := make(map[int]leafResult)
		next := 0

		g, gctx := errgroup.WithContext(ctx)
		for i, h := range leaves {
			i, h := i, h
			if err := sem.Acquire(gctx, 1); err != nil {
				break
			}
			g.Go(func() error {
				defer sem.Release(1)
				decoded, err := r.fetchBlock(gctx, h)
				mu.Lock()
				pending[i] = leafResult{decoded, err}
				mu.Unlock()
				return nil
			})
			// Drain any results that are now next-in-order. A worker
			// releases its semaphore slot as soon as its result is in
			// pending, so results that finish ahead of a slower
			// earlier leaf wait here; the pending map's size is not
			// bounded by the worker count.
			mu.Lock()
			for {
				res, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				mu.Unlock()
				select {
				case delivered <- res:
				case <-ctx.Done():
					return
				}
				if res.err != nil {
					return
				}
				next++
				mu.Lock()
			}
			mu.Unlock()
		}
		_ = g.Wait()

		mu.Lock()
		for {
			res, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			mu.Unlock()
			select {
			case delivered <- res:
			case <-ctx.Done():
				return
			}
			if res.err != nil {
				return
			}
			next++
			mu.Lock()
		}
		mu.Unlock()
	}()
	return delivered
}

// Next advances the iterator, returning the next matching record. At
// the end of the range it returns (nil, false, nil).
func (it *Iterator) Next() ([]byte, bool, error) {
	if it.done {
		return nil, false, it.err
	}
	for {
		if it.cur != nil {
			rec, ok, err := it.cur.Next()
			if err != nil {
				it.fail(err)
				return nil, false, err
			}
			if ok {
				if it.q.matches(rec) {
					return rec, true, nil
				}
				continue
			}
			it.cur = nil
		}

		res, ok := <-it.out
		if !ok {
			it.done = true
			return nil, false, nil
		}
		if res.err != nil {
			it.fail(res.err)
			return nil, false, res.err
		}
		it.cur = block.NewDataIterator(res.decoded.Payload)
	}
}

func (it *Iterator) fail(err error) {
	it.done = true
	it.err = err
	it.cancel()
}

// Close releases resources held by the iterator and aborts any
// in-flight fetches for blocks it hasn't yet consumed.
func (it *Iterator) Close() error {
	it.cancel()
	it.done = true
	return nil
}

// BlockMap applies f to the decoded payload of every data block
// intersecting q's range, in order, returning results in the same
// order. f is called from worker-pool goroutines and must be safe for
// concurrent use (spec.md §4.6's bulk block_map API).
func (r *Reader) BlockMap(ctx context.Context, q Query, f func([]byte) (interface{}, error)) ([]interface{}, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	leaves, err := r.collectLeaves(ctx, r.rootHandle(), q.pruneBounds())
	if err != nil {
		return nil, err
	}

	results := make([]interface{}, len(leaves))
	workers := r.workers
	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	g, gctx := errgroup.WithContext(ctx)
	for i, h := range leaves {
		i, h := i, h
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			decoded, err := r.fetchBlock(gctx, h)
			if err != nil {
				return err
			}
			v, err := f(decoded.Payload)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// BlockExec applies f to the decoded payload of every data block
// intersecting q's range, for side effects only; blocks may be
// visited in any order. The first error from any invocation of f (or
// from fetching a block) aborts the remaining work and is returned.
func (r *Reader) BlockExec(ctx context.Context, q Query, f func([]byte) error) error {
	if err := q.validate(); err != nil {
		return err
	}
	leaves, err := r.collectLeaves(ctx, r.rootHandle(), q.pruneBounds())
	if err != nil {
		return err
	}

	workers := r.workers
	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	g, gctx := errgroup.WithContext(ctx)
	for _, h := range leaves {
		h := h
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			decoded, err := r.fetchBlock(gctx, h)
			if err != nil {
				return err
			}
			return f(decoded.Payload)
		})
	}
	return g.Wait()
}
