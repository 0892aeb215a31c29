/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Mar 19 13:55:02 2018 mstenber
 * Last modified: Thu Mar 22 09:50:29 2018 mstenber
 * Edit time:     31 min
 *
 */

package record

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stvp/assert"
)

func TestEncode(t *testing.T) {
	t.Parallel()
	d := Descriptor{Name: "abc", Type: "tx", Attribute: NewAttribute(false, false),
		FirstBlock: 5, Length: 1}
	b, err := Encode(d)
	assert.Nil(t, err)
	assert.Equal(t, b, []byte{'a', 'b', 'c', 't', 'x', 4, 5, 1})

	d2, err := Decode(b)
	assert.Nil(t, err)
	assert.Equal(t, d2, d)
	assert.Equal(t, d2.DisplayName(), "abc.tx")

	d = Descriptor{Name: "us", Attribute: NewAttribute(true, true), FirstBlock: 3}
	b, err = Encode(d)
	assert.Nil(t, err)
	assert.Equal(t, b, []byte{'u', 's', 0, 0, 0, 14, 3, 0})
	d2, err = Decode(b)
	assert.Nil(t, err)
	assert.Equal(t, d2.Name, "us")
	assert.Equal(t, d2.DisplayName(), "us")
	assert.True(t, d2.IsDirectory())
	assert.True(t, d2.Attribute.System())
	assert.True(t, !d2.Attribute.ReadOnly())
	assert.Equal(t, d2.Attribute.String(), "dws-")
}

func TestEncodeInvalid(t *testing.T) {
	t.Parallel()
	add := func(name string, d Descriptor) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Encode(d)
			assert.True(t, errors.Is(err, ErrInvalidRecord))
		})
	}
	add("name", Descriptor{Name: "abcd"})
	add("type", Descriptor{Name: "a", Type: "txt"})
	add("block", Descriptor{Name: "a", FirstBlock: 256})
	add("length", Descriptor{Name: "a", Length: -1})
	add("marker", Descriptor{Name: "$a"})

	_, err := Decode([]byte{'$', 0, 0, 0, 0, 0, 0, 0})
	assert.True(t, errors.Is(err, ErrInvalidRecord))
	_, err = Decode([]byte{1, 2})
	assert.True(t, errors.Is(err, ErrInvalidRecord))
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		b := make([]byte, RecordSize)
		r.Read(b)
		if IsEmptySlot(b) {
			continue
		}
		d, err := Decode(b)
		assert.Nil(t, err)
		b2, err := Encode(d)
		assert.Nil(t, err)
		assert.Equal(t, b2, b)
	}
}

func TestDirectoryBlock(t *testing.T) {
	t.Parallel()
	block := EmptyDirectoryBlock()
	assert.Equal(t, len(block), 64)
	assert.Equal(t, block[0], EmptySlot)
	assert.Equal(t, block[8], EmptySlot)
	assert.Equal(t, block[1], byte(0))
	slots, err := Slots(block)
	assert.Nil(t, err)
	assert.Equal(t, len(slots), 0)
	assert.Equal(t, FindEmptySlot(block), 0)

	d := Descriptor{Name: "x", Type: "y", Attribute: ReadWrite, FirstBlock: 9, Length: 2}
	rec, _ := Encode(d)
	copy(block[16:], rec)
	slots, err = Slots(block)
	assert.Nil(t, err)
	assert.Equal(t, slots, []Slot{{Offset: 16, Descriptor: d}})
	assert.Equal(t, FindRecord(block, rec), 16)

	// a deleted record keeps stale bytes but is no longer found
	block[16] = EmptySlot
	assert.Equal(t, FindRecord(block, rec), -1)

	for i := 0; i < SlotsPerBlock; i++ {
		copy(block[i*RecordSize:], rec)
	}
	assert.Equal(t, FindEmptySlot(block), -1)
}

func TestSplitFileName(t *testing.T) {
	t.Parallel()
	n, ty := SplitFileName("abc.tx")
	assert.Equal(t, n, "abc")
	assert.Equal(t, ty, "tx")
	n, ty = SplitFileName("abc")
	assert.Equal(t, n, "abc")
	assert.Equal(t, ty, "")
}
