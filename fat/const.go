/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Mar 19 10:02:11 2018 mstenber
 * Last modified: Mon Mar 19 10:31:40 2018 mstenber
 * Edit time:     12 min
 *
 */

package fat

import "fmt"

// On-disk geometry. The image is Length blocks of BlockSize bytes;
// the first Reserved blocks hold the table itself (one signed byte
// per entry) and RootBlock is the root directory.
const (
	BlockSize   = 64
	Length      = 128
	Reserved    = 2
	RootBlock   = 2
	TableBlocks = Length / BlockSize
	ImageSize   = Length * BlockSize
)

// Next is the value of a table entry: Empty, End, Damaged or the
// index of the following block in the chain.
type Next int8

const (
	Empty   Next = 0
	End     Next = -1
	Damaged Next = -2
)

func (self Next) String() string {
	switch self {
	case Empty:
		return "EMPTY"
	case End:
		return "END"
	case Damaged:
		return "DAMAGED"
	}
	return fmt.Sprintf("%d", int(self))
}

// Byte is the on-disk encoding of the value.
func (self Next) Byte() byte {
	return byte(self)
}

// IsBlock is true if the value points at an allocatable block.
func (self Next) IsBlock() bool {
	return Allocatable(int(self))
}

// Allocatable is true for indexes that may appear in a chain; the
// table's own storage is never a valid target.
func Allocatable(index int) bool {
	return index >= Reserved && index < Length
}
