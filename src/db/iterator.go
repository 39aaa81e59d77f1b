package db

import (
	"context"
	"sync"
)

// Iterator maps rows lazily. It must be closed after use; reading past the
// last row or calling ToSlice closes it automatically.
type Iterator[T any] struct {
	ctx    context.Context
	cursor Cursor
	mapper RowMapper[T]

	// mu guards cursor and err. The cancellation watcher takes it too, so the
	// cursor is never closed while a row is being read.
	mu        sync.Mutex
	err       error
	closeOnce sync.Once
	release   func()
	closed    chan struct{}
}

func newIterator[T any](ctx context.Context, cursor Cursor, mapper RowMapper[T], release func()) *Iterator[T] {
	it := &Iterator[T]{
		ctx:     ctx,
		cursor:  cursor,
		mapper:  mapper,
		release: release,
		closed:  make(chan struct{}),
	}

	// Ensure that iterators are closed if context is cancelled. Otherwise, iterators can hold
	// open connections even after the caller has given up on them.
	go func() {
		done := ctx.Done()
		if done == nil {
			return
		}
		select {
		case <-done:
			it.mu.Lock()
			defer it.mu.Unlock()
			if it.err == nil && !it.isClosed() {
				it.err = ctx.Err()
			}
			it.closeLocked()
		case <-it.closed:
		}
	}()

	return it
}

// Next returns the next mapped row. It returns false when the rows are
// exhausted or an error occurred; check Err afterwards. If the context was
// cancelled before the rows were exhausted, Err reports the context's error.
func (it *Iterator[T]) Next() (T, bool) {
	it.mu.Lock()
	defer it.mu.Unlock()

	var zero T
	if it.err != nil || it.isClosed() {
		return zero, false
	}

	if !it.cursor.Next() {
		it.err = it.cursor.Err()
		if it.err == nil {
			// A cancelled query can look exactly like the end of the rows.
			it.err = it.ctx.Err()
		}
		it.closeLocked()
		return zero, false
	}

	result, err := it.mapper(it.cursor)
	if err != nil {
		it.err = err
		it.closeLocked()
		return zero, false
	}
	return result, true
}

// Err returns the first error from the cursor or the mapper, unmodified, or
// the context's error if it was cancelled mid-read.
func (it *Iterator[T]) Err() error {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.err
}

func (it *Iterator[T]) Close() {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.closeLocked()
}

// Must hold it.mu.
func (it *Iterator[T]) closeLocked() {
	it.closeOnce.Do(func() {
		it.cursor.Close()
		close(it.closed)
		if it.release != nil {
			it.release()
		}
	})
}

func (it *Iterator[T]) isClosed() bool {
	select {
	case <-it.closed:
		return true
	default:
		return false
	}
}

// ToSlice pulls all the remaining values into a slice, and closes the
// iterator. Any error, including cancellation part way through, discards the
// rows read so far.
func (it *Iterator[T]) ToSlice() ([]T, error) {
	defer it.Close()
	result := []T{}
	for {
		row, ok := it.Next()
		if !ok {
			break
		}
		result = append(result, row)
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
