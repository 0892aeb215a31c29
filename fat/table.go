/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Mar 19 10:36:20 2018 mstenber
 * Last modified: Wed Mar 21 14:52:09 2018 mstenber
 * Edit time:     96 min
 *
 */

// fat is the in-memory model of the block allocation table. It does
// no I/O; the storage layer persists Bytes() after every change.
package fat

import (
	"fmt"
	"log"
)

// Entry is a single (index, next) pair. Entries are values; the table
// replaces the whole pair whenever it changes.
type Entry struct {
	Index int
	Next  Next
}

func (self Entry) String() string {
	return fmt.Sprintf("%d->%v", self.Index, self.Next)
}

type Table struct {
	entries []Entry
}

// FromBytes decodes the on-disk representation (one signed byte per
// entry).
func FromBytes(b []byte) *Table {
	if len(b) != Length {
		log.Panicf("fat.FromBytes: %d bytes, expected %d", len(b), Length)
	}
	self := &Table{entries: make([]Entry, Length)}
	for i, v := range b {
		self.entries[i] = Entry{Index: i, Next: Next(int8(v))}
	}
	return self
}

// Bytes is the on-disk representation of the table.
func (self *Table) Bytes() []byte {
	b := make([]byte, len(self.entries))
	for i, e := range self.entries {
		b[i] = e.Next.Byte()
	}
	return b
}

func (self *Table) Clone() *Table {
	entries := make([]Entry, len(self.entries))
	copy(entries, self.entries)
	return &Table{entries: entries}
}

func (self *Table) Len() int {
	return len(self.entries)
}

func (self *Table) Entry(index int) Entry {
	return self.entries[index]
}

func (self *Table) set(e Entry) {
	self.entries[e.Index] = e
}

// Free is the number of EMPTY entries.
func (self *Table) Free() int {
	n := 0
	for _, e := range self.entries {
		if e.Next == Empty {
			n++
		}
	}
	return n
}

// Used is the number of entries that are not EMPTY; reserved and
// DAMAGED entries count as used.
func (self *Table) Used() int {
	return len(self.entries) - self.Free()
}

// ChainFrom returns the chain starting at index, head first. Reserved
// and EMPTY entries are returned as themselves. A pointer outside
// the allocatable range, or a chain longer than the table, is
// ErrCorrupt.
func (self *Table) ChainFrom(index int) ([]Entry, error) {
	if index < 0 || index >= len(self.entries) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	e := self.entries[index]
	if index < Reserved || e.Next == Empty {
		return []Entry{e}, nil
	}
	chain := make([]Entry, 0, 4)
	for {
		chain = append(chain, e)
		if e.Next == End {
			return chain, nil
		}
		if !e.Next.IsBlock() {
			return nil, fmt.Errorf("%w: chain from %d: %v", ErrCorrupt, index, e)
		}
		if len(chain) >= len(self.entries) {
			return nil, fmt.Errorf("%w: chain from %d does not terminate", ErrCorrupt, index)
		}
		e = self.entries[int(e.Next)]
	}
}

func (self *Table) firstEmpty() (int, bool) {
	for i := Reserved; i < len(self.entries); i++ {
		if self.entries[i].Next == Empty {
			return i, true
		}
	}
	return 0, false
}

// Allocate claims the first EMPTY entry as a new one-block chain.
func (self *Table) Allocate() (Entry, error) {
	i, ok := self.firstEmpty()
	if !ok {
		return Entry{}, ErrDiskFull
	}
	e := Entry{Index: i, Next: End}
	self.set(e)
	return e, nil
}

// AllocateAfter claims the first EMPTY entry and links it directly
// after previous; whatever previous pointed to follows the new entry.
func (self *Table) AllocateAfter(previous int) (Entry, error) {
	if !Allocatable(previous) {
		return Entry{}, fmt.Errorf("%w: previous %d", ErrInvalidIndex, previous)
	}
	p := self.entries[previous]
	if p.Next != End && !p.Next.IsBlock() {
		return Entry{}, fmt.Errorf("%w: previous %v not allocated", ErrInvalidIndex, p)
	}
	i, ok := self.firstEmpty()
	if !ok {
		return Entry{}, ErrDiskFull
	}
	e := Entry{Index: i, Next: p.Next}
	self.set(e)
	self.set(Entry{Index: previous, Next: Next(i)})
	return e, nil
}

// ReleaseFrom marks start and everything reachable from it EMPTY.
func (self *Table) ReleaseFrom(start int) error {
	if !Allocatable(start) {
		return fmt.Errorf("%w: release %d", ErrInvalidIndex, start)
	}
	chain, err := self.ChainFrom(start)
	if err != nil {
		return err
	}
	for _, e := range chain {
		self.set(Entry{Index: e.Index, Next: Empty})
	}
	return nil
}

// ReleaseAfter marks everything downstream of previous EMPTY, and
// makes previous the end of its chain.
func (self *Table) ReleaseAfter(previous int) error {
	if !Allocatable(previous) {
		return fmt.Errorf("%w: release after %d", ErrInvalidIndex, previous)
	}
	p := self.entries[previous]
	if p.Next == End {
		return nil
	}
	if !p.Next.IsBlock() {
		return fmt.Errorf("%w: release after %v", ErrInvalidIndex, p)
	}
	chain, err := self.ChainFrom(int(p.Next))
	if err != nil {
		return err
	}
	for _, e := range chain {
		self.set(Entry{Index: e.Index, Next: Empty})
	}
	self.set(Entry{Index: previous, Next: End})
	return nil
}
