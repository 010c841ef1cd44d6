// Package exec runs physical plans: the execution context handed to plan
// iterators, the row iterator contract and the row store scans read from.
package exec

import (
	"github.com/dshills/cfplan/internal/log"
	"github.com/dshills/cfplan/internal/sql/runtime"
	"github.com/dshills/cfplan/internal/sql/tuple"
)

// Context carries what plan iterators need at execution time.
type Context struct {
	Store   Store
	Runtime *runtime.Context
	Logger  log.Logger
}

// NewContext creates an execution context. The runtime context must be
// the one the plan was built with, so correlate variables resolve.
func NewContext(store Store, rc *runtime.Context) *Context {
	return &Context{
		Store:   store,
		Runtime: rc,
		Logger:  log.Component("exec"),
	}
}

// Iterator produces rows one at a time.
type Iterator interface {
	// Next returns the next row or nil when done.
	Next() (tuple.Tuple, error)
	// Close releases resources.
	Close() error
}

// SliceIterator iterates over rows held in memory.
type SliceIterator struct {
	rows []tuple.Tuple
	pos  int
}

// NewSliceIterator creates an iterator over rows.
func NewSliceIterator(rows []tuple.Tuple) *SliceIterator {
	return &SliceIterator{rows: rows}
}

func (it *SliceIterator) Next() (tuple.Tuple, error) {
	if it.pos >= len(it.rows) {
		return nil, nil
	}
	row := it.rows[it.pos]
	it.pos++
	return row, nil
}

func (it *SliceIterator) Close() error {
	it.rows = nil
	return nil
}

// Drain reads every remaining row of it and closes it.
func Drain(it Iterator) (rows []tuple.Tuple, err error) {
	defer func() {
		if cerr := it.Close(); err == nil {
			err = cerr
		}
	}()

	for {
		row, err := it.Next()
		if err != nil {
			return nil, err
		}
		if row == nil {
			return rows, nil
		}
		rows = append(rows, row)
	}
}
