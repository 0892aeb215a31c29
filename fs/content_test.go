/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Mar 23 10:22:48 2018 mstenber
 * Last modified: Sun Mar 25 11:31:04 2018 mstenber
 * Edit time:     74 min
 *
 */

package fs

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/fingon/go-fatfs/fat"
	"github.com/fingon/go-fatfs/record"
	"github.com/fingon/go-fatfs/storage"
	"github.com/fingon/go-fatfs/storage/inmemory"
	"github.com/stretchr/testify/require"
	"github.com/stvp/assert"
)

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('a' + i%26)
	}
	return b
}

func TestReadAfterWrite(t *testing.T) {
	t.Parallel()
	for _, n := range []int{0, 1, 62, 63, 64, 127, 128, 200, 1000} {
		t.Run(fmt.Sprintf("%d", n), func(t *testing.T) {
			t.Parallel()
			fm, m := newFileManager(t)
			_, err := fm.CreateFile("/", "f", false)
			assert.Nil(t, err)
			content := pattern(n)
			assert.Nil(t, fm.WriteFile("/f", content))
			got, err := fm.ReadFile("/f")
			assert.Nil(t, err)
			assert.Equal(t, got, content)

			blocks := (n + fat.BlockSize) / fat.BlockSize
			d, _ := fm.GetFile("/f")
			assert.Equal(t, d.Length, blocks)
			assert.Equal(t, fm.CapacityInfo().Used, 3+blocks)

			fm2 := openFileManager(t, m)
			got, err = fm2.ReadFile("/f")
			assert.Nil(t, err)
			assert.Equal(t, got, content)
			d2, _ := fm2.GetFile("/f")
			assert.Equal(t, d2, d)
		})
	}
}

func TestFullFinalBlock(t *testing.T) {
	t.Parallel()
	fm, _ := newFileManager(t)
	_, err := fm.CreateFile("/", "f", false)
	assert.Nil(t, err)
	// 63 bytes and the terminator fill the block exactly.
	content := pattern(fat.BlockSize - 1)
	assert.Nil(t, fm.WriteFile("/f", content))
	d, _ := fm.GetFile("/f")
	assert.Equal(t, d.Length, 1)
	b, err := fm.store.ReadBlock(d.FirstBlock)
	assert.Nil(t, err)
	assert.Equal(t, b.Data[:fat.BlockSize-1], content)
	assert.Equal(t, b.Data[fat.BlockSize-1], byte(record.EndOfFile))

	content = pattern(2*fat.BlockSize - 1)
	assert.Nil(t, fm.WriteFile("/f", content))
	chain, err := fm.store.ReadChain(d.FirstBlock)
	assert.Nil(t, err)
	assert.Equal(t, len(chain), 2)
	assert.Equal(t, chain[1].Data[fat.BlockSize-1], byte(record.EndOfFile))
}

func TestResize(t *testing.T) {
	t.Parallel()
	fm, _ := newFileManager(t)
	_, err := fm.CreateFile("/", "a", false)
	assert.Nil(t, err)
	_, err = fm.CreateFile("/", "b", false)
	assert.Nil(t, err)
	free := fm.CapacityInfo().Free

	// Growing a file whose neighbour sits right after it links
	// the new blocks after the old chain, wherever they are.
	assert.Nil(t, fm.WriteFile("/a", pattern(200)))
	assert.Equal(t, fm.CapacityInfo().Free, free-3)
	chain, err := fm.store.Chain(3)
	assert.Nil(t, err)
	assert.Equal(t, chain, []int{3, 5, 6, 7})

	assert.Nil(t, fm.WriteFile("/a", pattern(70)))
	assert.Equal(t, fm.CapacityInfo().Free, free-1)
	chain, err = fm.store.Chain(3)
	assert.Nil(t, err)
	assert.Equal(t, chain, []int{3, 5})
	got, err := fm.ReadFile("/a")
	assert.Nil(t, err)
	assert.Equal(t, got, pattern(70))

	assert.Nil(t, fm.WriteFile("/a", nil))
	assert.Equal(t, fm.CapacityInfo().Free, free)
	got, err = fm.ReadFile("/a")
	assert.Nil(t, err)
	assert.Equal(t, len(got), 0)
	d, _ := fm.GetFile("/a")
	assert.Equal(t, d.Length, 1)
}

func TestDeleteReclaimsChain(t *testing.T) {
	t.Parallel()
	fm, _ := newFileManager(t)
	_, err := fm.CreateDirectory("/", "usr", false)
	assert.Nil(t, err)
	for i, n := range []int{0, 64, 300} {
		p := fmt.Sprintf("/usr/f%d", i)
		_, err := fm.CreateFile("/usr", fmt.Sprintf("f%d", i), false)
		assert.Nil(t, err)
		assert.Nil(t, fm.WriteFile(p, pattern(n)))
	}
	for i := range 3 {
		p := fmt.Sprintf("/usr/f%d", i)
		d, err := fm.GetFile(p)
		assert.Nil(t, err)
		free := fm.CapacityInfo().Free
		assert.Nil(t, fm.DeleteFile(p))
		assert.Equal(t, fm.CapacityInfo().Free, free+d.Length)
	}
	free := fm.CapacityInfo().Free
	assert.Nil(t, fm.DeleteFile("/usr"))
	assert.Equal(t, fm.CapacityInfo().Free, free+1)
}

func TestEndOfFileByteRejected(t *testing.T) {
	t.Parallel()
	fm, _ := newFileManager(t)
	_, err := fm.CreateFile("/", "f", false)
	assert.Nil(t, err)
	assert.Nil(t, fm.WriteFile("/f", []byte("keep")))
	err = fm.WriteFile("/f", []byte{1, 2, record.EndOfFile, 3})
	require.ErrorIs(t, err, ErrInvalidArgument)
	got, err := fm.ReadFile("/f")
	assert.Nil(t, err)
	assert.Equal(t, string(got), "keep")
}

func TestMissingTerminator(t *testing.T) {
	t.Parallel()
	fm, _ := newFileManager(t)
	d, err := fm.CreateFile("/", "f", false)
	assert.Nil(t, err)
	assert.Nil(t, fm.store.WriteBlock(storage.Block{Index: d.FirstBlock, Data: pattern(fat.BlockSize)}))
	_, err = fm.ReadFile("/f")
	require.ErrorIs(t, err, fat.ErrCorrupt)
	_, err = fm.Stat("/f")
	require.ErrorIs(t, err, fat.ErrCorrupt)
}

var errInjected = errors.New("injected write failure")

// failingMedium fails the failAt'th block write, once, and the next
// Sync after failSync is set, once. It hides the region feature so
// every write goes through WriteBlock.
type failingMedium struct {
	storage.Medium
	writes, failAt int
	failSync       bool
}

func (self *failingMedium) Supports(feature storage.Feature) bool {
	return false
}

func (self *failingMedium) WriteBlock(index int, data []byte) error {
	self.writes++
	if self.writes == self.failAt {
		return errInjected
	}
	return self.Medium.WriteBlock(index, data)
}

func (self *failingMedium) Sync() error {
	if self.failSync {
		self.failSync = false
		return errInjected
	}
	return self.Medium.Sync()
}

var mutations = []struct {
	name string
	op   func(fm *FileManager) error
}{
	{"create", func(fm *FileManager) error {
		_, err := fm.CreateFile("/usr", "new.f", false)
		return err
	}},
	{"mkdir", func(fm *FileManager) error {
		_, err := fm.CreateDirectory("/", "opt", true)
		return err
	}},
	{"grow", func(fm *FileManager) error {
		return fm.WriteFile("/usr/a", pattern(300))
	}},
	{"shrink", func(fm *FileManager) error {
		return fm.WriteFile("/usr/b", pattern(3))
	}},
	{"delete", func(fm *FileManager) error {
		return fm.DeleteFile("/usr/b")
	}},
	{"rename", func(fm *FileManager) error {
		_, err := fm.RenameFile("/usr/b", "c")
		return err
	}},
}

func newFailingFileManager(t *testing.T) (*FileManager, *failingMedium, storage.Medium) {
	inner := inmemory.NewInMemoryMedium()
	assert.Nil(t, storage.Format(inner))
	m := &failingMedium{Medium: inner}
	fm := openFileManager(t, m)
	_, err := fm.CreateDirectory("/", "usr", false)
	assert.Nil(t, err)
	_, err = fm.CreateFile("/usr", "a", false)
	assert.Nil(t, err)
	_, err = fm.CreateFile("/usr", "b", false)
	assert.Nil(t, err)
	assert.Nil(t, fm.WriteFile("/usr/b", pattern(150)))
	return fm, m, inner
}

type snapshot struct {
	image     []byte
	nodes     int
	usr, root []record.Descriptor
}

func takeSnapshot(t *testing.T, fm *FileManager, inner storage.Medium) snapshot {
	usr, err := fm.ListDirectory("/usr")
	assert.Nil(t, err)
	root, err := fm.ListDirectory("/")
	assert.Nil(t, err)
	return snapshot{image: image(t, inner), nodes: fm.tree.Len(), usr: usr, root: root}
}

// assertFailedCleanly checks that err is the injected one and that
// neither the image nor the tree moved since s was taken.
func assertFailedCleanly(t *testing.T, fm *FileManager, inner storage.Medium, s snapshot, err error) {
	assert.True(t, errors.Is(err, errInjected))
	after := takeSnapshot(t, fm, inner)
	assert.True(t, bytes.Equal(after.image, s.image))
	assert.Equal(t, after.nodes, s.nodes)
	assert.Equal(t, after.usr, s.usr)
	assert.Equal(t, after.root, s.root)
	got, err := fm.ReadFile("/usr/b")
	assert.Nil(t, err)
	assert.Equal(t, got, pattern(150))
}

func TestRollback(t *testing.T) {
	t.Parallel()
	for _, o := range mutations {
		t.Run(o.name, func(t *testing.T) {
			t.Parallel()
			fm, m, inner := newFailingFileManager(t)
			for n := 1; ; n++ {
				assert.True(t, n < 20)
				s := takeSnapshot(t, fm, inner)
				m.failAt = m.writes + n
				err := o.op(fm)
				if err == nil {
					assert.True(t, n > 1)
					break
				}
				assertFailedCleanly(t, fm, inner, s, err)
			}
			r, err := fm.Check()
			assert.Nil(t, err)
			assert.True(t, r.OK())
		})
	}
}

func TestSyncFailure(t *testing.T) {
	t.Parallel()
	for _, o := range mutations {
		t.Run(o.name, func(t *testing.T) {
			t.Parallel()
			fm, m, inner := newFailingFileManager(t)
			s := takeSnapshot(t, fm, inner)
			m.failSync = true
			assertFailedCleanly(t, fm, inner, s, o.op(fm))

			// the same operation goes through once the medium recovers
			assert.Nil(t, o.op(fm))
			r, err := fm.Check()
			assert.Nil(t, err)
			assert.True(t, r.OK())
		})
	}
}
