package db

import "github.com/jackc/pgx/v5"

// CopyRow is a record that knows its values in COPY column order.
type CopyRow interface {
	CopyValues() []any
}

// ChannelSource implements pgx.CopyFromSource over a channel so a producer
// and the COPY writer run with natural backpressure.
type ChannelSource[T CopyRow] struct {
	ch      <-chan T
	current T
	errc    <-chan error
	err     error
}

// NewChannelSource reads rows from ch until it is closed. If errc is non-nil
// the first error received on it after ch closes is reported by Err.
func NewChannelSource[T CopyRow](ch <-chan T, errc <-chan error) *ChannelSource[T] {
	return &ChannelSource[T]{ch: ch, errc: errc}
}

// Next advances to the next row.
func (s *ChannelSource[T]) Next() bool {
	row, ok := <-s.ch
	if !ok {
		if s.errc != nil {
			s.err = <-s.errc
		}
		return false
	}
	s.current = row
	return true
}

// Values returns the current row.
func (s *ChannelSource[T]) Values() ([]any, error) {
	return s.current.CopyValues(), nil
}

// Err returns the producer's error, if any.
func (s *ChannelSource[T]) Err() error {
	return s.err
}

var _ pgx.CopyFromSource = (*ChannelSource[CopyRow])(nil)
