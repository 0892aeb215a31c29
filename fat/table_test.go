/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Mar 19 11:40:05 2018 mstenber
 * Last modified: Wed Mar 21 15:10:33 2018 mstenber
 * Edit time:     58 min
 *
 */

package fat

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stvp/assert"
)

func formattedTable() *Table {
	b := make([]byte, Length)
	for i := 0; i <= RootBlock; i++ {
		b[i] = End.Byte()
	}
	return FromBytes(b)
}

func indexes(chain []Entry) []int {
	r := make([]int, len(chain))
	for i, e := range chain {
		r[i] = e.Index
	}
	return r
}

func TestBytes(t *testing.T) {
	t.Parallel()
	b := make([]byte, Length)
	b[0] = 0xff
	b[5] = 7
	b[7] = 0xfe
	tab := FromBytes(b)
	assert.Equal(t, tab.Entry(0).Next, End)
	assert.Equal(t, tab.Entry(5).Next, Next(7))
	assert.Equal(t, tab.Entry(7).Next, Damaged)
	assert.Equal(t, tab.Bytes(), b)
	assert.Equal(t, tab.Len(), Length)
}

func TestChainFrom(t *testing.T) {
	t.Parallel()
	tab := formattedTable()

	// reserved and empty entries are chains of their own
	c, err := tab.ChainFrom(0)
	assert.Nil(t, err)
	assert.Equal(t, indexes(c), []int{0})
	c, err = tab.ChainFrom(50)
	assert.Nil(t, err)
	assert.Equal(t, indexes(c), []int{50})

	e, _ := tab.Allocate()
	assert.Equal(t, e.Index, 3)
	tab.AllocateAfter(3)
	tab.AllocateAfter(4)
	c, err = tab.ChainFrom(3)
	assert.Nil(t, err)
	assert.Equal(t, indexes(c), []int{3, 4, 5})

	_, err = tab.ChainFrom(Length)
	assert.True(t, errors.Is(err, ErrInvalidIndex))
}

func TestChainCorrupt(t *testing.T) {
	t.Parallel()
	add := func(name string, b []byte) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := FromBytes(b).ChainFrom(3)
			assert.True(t, errors.Is(err, ErrCorrupt))
		})
	}
	b := make([]byte, Length)
	b[3] = 4
	b[4] = 3
	add("cycle", b)

	b = make([]byte, Length)
	b[3] = 1
	add("reserved", b)

	b = make([]byte, Length)
	b[3] = 4
	add("empty", b)

	b = make([]byte, Length)
	b[3] = Damaged.Byte()
	add("damaged", b)
}

func TestAllocateAfterMiddle(t *testing.T) {
	t.Parallel()
	tab := formattedTable()
	tab.Allocate()       // 3
	tab.AllocateAfter(3) // 4
	e, err := tab.AllocateAfter(3)
	assert.Nil(t, err)
	assert.Equal(t, e, Entry{Index: 5, Next: 4})
	c, _ := tab.ChainFrom(3)
	assert.Equal(t, indexes(c), []int{3, 5, 4})

	_, err = tab.AllocateAfter(1)
	assert.True(t, errors.Is(err, ErrInvalidIndex))
	_, err = tab.AllocateAfter(60)
	assert.True(t, errors.Is(err, ErrInvalidIndex))
}

func TestRelease(t *testing.T) {
	t.Parallel()
	tab := formattedTable()
	free := tab.Free()
	assert.Equal(t, free, Length-3)
	tab.Allocate()
	for i := 3; i < 7; i++ {
		tab.AllocateAfter(i)
	}
	assert.Equal(t, tab.Free(), free-5)

	err := tab.ReleaseAfter(4)
	assert.Nil(t, err)
	c, _ := tab.ChainFrom(3)
	assert.Equal(t, indexes(c), []int{3, 4})
	assert.Equal(t, tab.Free(), free-2)

	// releasing after the end is a no-op
	assert.Nil(t, tab.ReleaseAfter(4))
	assert.Equal(t, tab.Free(), free-2)

	assert.Nil(t, tab.ReleaseFrom(3))
	assert.Equal(t, tab.Free(), free)
	assert.Equal(t, tab.Used(), 3)

	assert.True(t, errors.Is(tab.ReleaseFrom(0), ErrInvalidIndex))
	assert.True(t, errors.Is(tab.ReleaseAfter(1), ErrInvalidIndex))
	assert.Equal(t, tab.Entry(0).Next, End)
	assert.Equal(t, tab.Entry(1).Next, End)
}

func TestDiskFull(t *testing.T) {
	t.Parallel()
	tab := formattedTable()
	for i := 0; i < Length-3; i++ {
		_, err := tab.Allocate()
		assert.Nil(t, err)
	}
	_, err := tab.Allocate()
	assert.Equal(t, err, ErrDiskFull)
	_, err = tab.AllocateAfter(3)
	assert.Equal(t, err, ErrDiskFull)
	assert.Equal(t, tab.Free(), 0)
}

func TestClone(t *testing.T) {
	t.Parallel()
	tab := formattedTable()
	c := tab.Clone()
	tab.Allocate()
	assert.Equal(t, c.Free(), tab.Free()+1)
}

// Random allocate/release sequences must leave every chain
// terminating within Length hops.
func TestChainsTerminate(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(42))
	tab := formattedTable()
	heads := []int{}
	for i := 0; i < 2000; i++ {
		switch r.Intn(4) {
		case 0:
			e, err := tab.Allocate()
			if err == nil {
				heads = append(heads, e.Index)
			}
		case 1:
			if len(heads) > 0 {
				h := heads[r.Intn(len(heads))]
				c, err := tab.ChainFrom(h)
				assert.Nil(t, err)
				tab.AllocateAfter(c[r.Intn(len(c))].Index)
			}
		case 2:
			if len(heads) > 0 {
				j := r.Intn(len(heads))
				assert.Nil(t, tab.ReleaseFrom(heads[j]))
				heads = append(heads[:j], heads[j+1:]...)
			}
		case 3:
			if len(heads) > 0 {
				h := heads[r.Intn(len(heads))]
				c, _ := tab.ChainFrom(h)
				assert.Nil(t, tab.ReleaseAfter(c[r.Intn(len(c))].Index))
			}
		}
		total := 0
		for _, h := range heads {
			c, err := tab.ChainFrom(h)
			assert.Nil(t, err)
			assert.True(t, len(c) <= Length)
			assert.Equal(t, c[len(c)-1].Next, End)
			total += len(c)
		}
		assert.Equal(t, total+3, tab.Used())
	}
}
