/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Mar 19 14:20:31 2018 mstenber
 * Last modified: Tue Mar 20 10:03:57 2018 mstenber
 * Edit time:     25 min
 *
 */

package record

import (
	"bytes"

	"github.com/fingon/go-fatfs/fat"
)

// Slot is a live record within a directory block.
type Slot struct {
	Offset     int
	Descriptor Descriptor
}

// EmptyDirectoryBlock is the content of a freshly allocated
// directory: every slot marked empty.
func EmptyDirectoryBlock() []byte {
	b := make([]byte, fat.BlockSize)
	for i := 0; i < SlotsPerBlock; i++ {
		b[i*RecordSize] = EmptySlot
	}
	return b
}

func slot(block []byte, i int) []byte {
	return block[i*RecordSize : (i+1)*RecordSize]
}

// Slots decodes the live records of a directory block in on-disk
// order.
func Slots(block []byte) ([]Slot, error) {
	var r []Slot
	for i := 0; i < SlotsPerBlock; i++ {
		b := slot(block, i)
		if IsEmptySlot(b) {
			continue
		}
		d, err := Decode(b)
		if err != nil {
			return nil, err
		}
		r = append(r, Slot{Offset: i * RecordSize, Descriptor: d})
	}
	return r, nil
}

// FindEmptySlot returns the byte offset of the first empty slot, or
// -1.
func FindEmptySlot(block []byte) int {
	for i := 0; i < SlotsPerBlock; i++ {
		if IsEmptySlot(slot(block, i)) {
			return i * RecordSize
		}
	}
	return -1
}

// FindRecord returns the byte offset of the live slot holding exactly
// rec, or -1.
func FindRecord(block []byte, rec []byte) int {
	for i := 0; i < SlotsPerBlock; i++ {
		b := slot(block, i)
		if !IsEmptySlot(b) && bytes.Equal(b, rec) {
			return i * RecordSize
		}
	}
	return -1
}
