// Package deck holds the ordered slide collection used while editing a
// presentation. Positions are 1-based, contiguous and never sparse.
package deck

import (
	"errors"
	"fmt"
)

// ErrIndexOutOfRange is returned when a position falls outside the valid
// range for the requested operation.
var ErrIndexOutOfRange = errors.New("slide index out of range")

// BlankFactory produces an empty slide to pad a collection.
type BlankFactory[T any] func() (T, error)

// Collection is an ordered, gap-free sequence of slides.
type Collection[T any] struct {
	items []T
}

func New[T any](items ...T) *Collection[T] {
	c := &Collection[T]{items: make([]T, len(items))}
	copy(c.items, items)
	return c
}

func (c *Collection[T]) Len() int {
	return len(c.items)
}

// At returns the slide at the 1-based index.
func (c *Collection[T]) At(index int) (T, error) {
	var zero T
	if err := c.check(index, len(c.items)); err != nil {
		return zero, err
	}
	return c.items[index-1], nil
}

// Items returns a copy of the slides in order.
func (c *Collection[T]) Items() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// InsertAt places item at index, shifting the slide previously there and
// every later slide up by one. index may be Len()+1 to append.
func (c *Collection[T]) InsertAt(index int, item T) error {
	if err := c.check(index, len(c.items)+1); err != nil {
		return err
	}
	c.items = append(c.items, item)
	copy(c.items[index:], c.items[index-1:])
	c.items[index-1] = item
	return nil
}

// DeleteAt removes and returns the slide at index.
func (c *Collection[T]) DeleteAt(index int) (T, error) {
	var zero T
	if err := c.check(index, len(c.items)); err != nil {
		return zero, err
	}
	removed := c.items[index-1]
	copy(c.items[index-1:], c.items[index:])
	c.items[len(c.items)-1] = zero
	c.items = c.items[:len(c.items)-1]
	return removed, nil
}

// EnsureLength appends blanks until the collection holds at least min
// slides. A factory error stops the padding; blanks appended so far stay.
func (c *Collection[T]) EnsureLength(min int, blank BlankFactory[T]) (int, error) {
	added := 0
	for len(c.items) < min {
		item, err := blank()
		if err != nil {
			return added, fmt.Errorf("creating blank slide %d: %w", len(c.items)+1, err)
		}
		c.items = append(c.items, item)
		added++
	}
	return added, nil
}

// Move relocates the slide at from so that it ends up at position to.
func (c *Collection[T]) Move(from, to int) error {
	if err := c.check(from, len(c.items)); err != nil {
		return err
	}
	if err := c.check(to, len(c.items)); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	item, _ := c.DeleteAt(from)
	return c.InsertAt(to, item)
}

func (c *Collection[T]) check(index, max int) error {
	if index < 1 || index > max {
		return fmt.Errorf("%w: %d not in [1, %d] (collection holds %d)", ErrIndexOutOfRange, index, max, len(c.items))
	}
	return nil
}
