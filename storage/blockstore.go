/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Mar 20 09:12:03 2018 mstenber
 * Last modified: Fri Mar 23 14:31:27 2018 mstenber
 * Edit time:     187 min
 *
 */

// storage owns the backing medium. BlockStore does block-granular
// I/O, drives the allocation table and persists the table (blocks 0
// and 1) after every allocation or release.
package storage

import (
	"fmt"
	"log"

	"github.com/bluele/gcache"
	"github.com/fingon/go-fatfs/fat"
	"github.com/fingon/go-fatfs/mlog"
	"github.com/fingon/go-fatfs/util"
	"github.com/pkg/errors"
)

// Block is one fat.BlockSize unit of the medium.
type Block struct {
	Index int
	Data  []byte
}

type CapacityInfo struct {
	Total, Free, Used        int
	FreePercent, UsedPercent float64
}

type BlockStore struct {
	medium   Medium
	table    *fat.Table
	cache    gcache.Cache
	readOnly bool
	tx       *transaction
	lock     util.MutexLocked
}

// Open loads the allocation table from the medium. The medium must
// already be formatted (see Format).
func Open(m Medium, config Configuration) (*BlockStore, error) {
	self := &BlockStore{medium: m, readOnly: config.ReadOnly}
	if config.CacheSize > 0 {
		self.cache = gcache.New(config.CacheSize).ARC().Build()
	}
	raw := make([]byte, 0, fat.Length)
	for i := 0; i < fat.TableBlocks; i++ {
		b, err := self.readBlock(i)
		if err != nil {
			return nil, err
		}
		raw = append(raw, b...)
	}
	self.table = fat.FromBytes(raw)
	if self.table.Entry(fat.RootBlock).Next != fat.End {
		return nil, fmt.Errorf("%w: root block entry %v", ErrNotFormatted,
			self.table.Entry(fat.RootBlock))
	}
	mlog.Printf2("storage/blockstore", "bs.Open %d free", self.table.Free())
	return self, nil
}

func (self *BlockStore) Close() error {
	defer self.lock.Locked()()
	if self.tx != nil {
		log.Panic("bs.Close with open transaction")
	}
	return self.medium.Close()
}

func validIndex(index int) error {
	if index < 0 || index >= fat.Length {
		return fmt.Errorf("%w: %d", fat.ErrInvalidIndex, index)
	}
	return nil
}

func (self *BlockStore) readBlock(index int) ([]byte, error) {
	if err := validIndex(index); err != nil {
		return nil, err
	}
	if self.cache != nil {
		if v, err := self.cache.Get(index); err == nil {
			return util.CopyBytes(v.([]byte)), nil
		}
	}
	data := make([]byte, fat.BlockSize)
	if err := self.medium.ReadBlock(index, data); err != nil {
		return nil, errors.Wrapf(err, "read block %d", index)
	}
	if self.cache != nil {
		self.cache.Set(index, util.CopyBytes(data))
	}
	return data, nil
}

// prepareWrite records the pre-image of the block in the open
// transaction, if any.
func (self *BlockStore) prepareWrite(index int) error {
	if self.readOnly {
		return ErrReadOnly
	}
	if err := validIndex(index); err != nil {
		return err
	}
	if self.tx == nil || self.tx.has(index) {
		return nil
	}
	pre, err := self.readBlock(index)
	if err != nil {
		return err
	}
	self.tx.save(index, pre)
	return nil
}

func (self *BlockStore) writeBlock(index int, data []byte) error {
	if len(data) > fat.BlockSize {
		return fmt.Errorf("%w: %d bytes", ErrInvalidRegion, len(data))
	}
	if err := self.prepareWrite(index); err != nil {
		return err
	}
	b := make([]byte, fat.BlockSize)
	copy(b, data)
	if self.cache != nil {
		self.cache.Remove(index)
	}
	if err := self.medium.WriteBlock(index, b); err != nil {
		return errors.Wrapf(err, "write block %d", index)
	}
	if self.cache != nil {
		self.cache.Set(index, b)
	}
	return nil
}

func (self *BlockStore) writeRegion(data []byte, index, offset int) error {
	if offset < 0 || offset+len(data) > fat.BlockSize {
		return fmt.Errorf("%w: %d+%d", ErrInvalidRegion, offset, len(data))
	}
	if err := self.prepareWrite(index); err != nil {
		return err
	}
	if self.cache != nil {
		self.cache.Remove(index)
	}
	if self.medium.Supports(RegionFeature) {
		err := self.medium.(RegionWriter).WriteRegion(index, offset, data)
		return errors.Wrapf(err, "write region %d@%d", index, offset)
	}
	b, err := self.readBlock(index)
	if err != nil {
		return err
	}
	copy(b[offset:], data)
	if self.cache != nil {
		self.cache.Remove(index)
	}
	return errors.Wrapf(self.medium.WriteBlock(index, b), "write block %d", index)
}

// persistTable writes the whole table; on failure the in-memory
// table is reverted to old.
func (self *BlockStore) persistTable(old *fat.Table) error {
	raw := self.table.Bytes()
	for i := 0; i < fat.TableBlocks; i++ {
		err := self.writeBlock(i, raw[i*fat.BlockSize:(i+1)*fat.BlockSize])
		if err != nil {
			self.table = old
			return errors.Wrap(err, "persist table")
		}
	}
	return nil
}

func (self *BlockStore) ReadBlock(index int) (Block, error) {
	defer self.lock.Locked()()
	data, err := self.readBlock(index)
	if err != nil {
		return Block{}, err
	}
	return Block{Index: index, Data: data}, nil
}

// WriteBlock writes the whole block; short data is zero padded.
func (self *BlockStore) WriteBlock(b Block) error {
	defer self.lock.Locked()()
	mlog.Printf2("storage/blockstore", "bs.WriteBlock %d (%d b)", b.Index, len(b.Data))
	return self.writeBlock(b.Index, b.Data)
}

// WriteRegion writes data[srcOffset:srcOffset+length] into block
// blockIndex at blockOffset.
func (self *BlockStore) WriteRegion(data []byte, srcOffset, length, blockIndex, blockOffset int) error {
	defer self.lock.Locked()()
	if srcOffset < 0 || length < 0 || srcOffset+length > len(data) {
		return fmt.Errorf("%w: source %d+%d of %d", ErrInvalidRegion, srcOffset, length, len(data))
	}
	mlog.Printf2("storage/blockstore", "bs.WriteRegion %d@%d (%d b)", blockIndex, blockOffset, length)
	return self.writeRegion(data[srcOffset:srcOffset+length], blockIndex, blockOffset)
}

// Chain returns the block indexes of the chain starting at start.
func (self *BlockStore) Chain(start int) ([]int, error) {
	defer self.lock.Locked()()
	return self.chain(start)
}

func (self *BlockStore) chain(start int) ([]int, error) {
	entries, err := self.table.ChainFrom(start)
	if err != nil {
		return nil, err
	}
	r := make([]int, len(entries))
	for i, e := range entries {
		r[i] = e.Index
	}
	return r, nil
}

// ReadChain reads the blocks of the chain starting at start, in
// chain order.
func (self *BlockStore) ReadChain(start int) ([]Block, error) {
	defer self.lock.Locked()()
	indexes, err := self.chain(start)
	if err != nil {
		return nil, err
	}
	blocks := make([]Block, len(indexes))
	for i, index := range indexes {
		data, err := self.readBlock(index)
		if err != nil {
			return nil, err
		}
		blocks[i] = Block{Index: index, Data: data}
	}
	return blocks, nil
}

func (self *BlockStore) allocate(previous int) (Block, error) {
	if self.readOnly {
		return Block{}, ErrReadOnly
	}
	old := self.table.Clone()
	var e fat.Entry
	var err error
	if previous < 0 {
		e, err = self.table.Allocate()
	} else {
		e, err = self.table.AllocateAfter(previous)
	}
	if err != nil {
		return Block{}, err
	}
	if err = self.persistTable(old); err != nil {
		return Block{}, err
	}
	mlog.Printf2("storage/blockstore", "bs.allocate %d -> %v", previous, e)
	return Block{Index: e.Index}, nil
}

// Allocate claims a free block as a new one-block chain. The
// returned block has no Data; its content is whatever was there.
func (self *BlockStore) Allocate() (Block, error) {
	defer self.lock.Locked()()
	return self.allocate(-1)
}

// AllocateAfter claims a free block and links it after previous.
func (self *BlockStore) AllocateAfter(previous int) (Block, error) {
	defer self.lock.Locked()()
	if !fat.Allocatable(previous) {
		return Block{}, fmt.Errorf("%w: previous %d", fat.ErrInvalidIndex, previous)
	}
	return self.allocate(previous)
}

// AllocateWithContent claims a free block, persists the table and
// then writes data (zero padded) into the block.
func (self *BlockStore) AllocateWithContent(data []byte) (Block, error) {
	defer self.lock.Locked()()
	b, err := self.allocate(-1)
	if err != nil {
		return b, err
	}
	if err = self.writeBlock(b.Index, data); err != nil {
		return Block{}, err
	}
	b.Data = util.CopyBytes(data)
	return b, nil
}

func (self *BlockStore) release(after bool, index int) error {
	if self.readOnly {
		return ErrReadOnly
	}
	old := self.table.Clone()
	var err error
	if after {
		err = self.table.ReleaseAfter(index)
	} else {
		err = self.table.ReleaseFrom(index)
	}
	if err != nil {
		return err
	}
	mlog.Printf2("storage/blockstore", "bs.release after:%v %d", after, index)
	return self.persistTable(old)
}

// ReleaseFrom frees start and the rest of its chain.
func (self *BlockStore) ReleaseFrom(start int) error {
	defer self.lock.Locked()()
	return self.release(false, start)
}

// ReleaseAfter frees everything after previous in its chain.
func (self *BlockStore) ReleaseAfter(previous int) error {
	defer self.lock.Locked()()
	return self.release(true, previous)
}

// CapacityInfo counts the whole table, reserved entries included.
func (self *BlockStore) CapacityInfo() CapacityInfo {
	defer self.lock.Locked()()
	total := self.table.Len()
	free := self.table.Free()
	used := total - free
	return CapacityInfo{Total: total, Free: free, Used: used,
		FreePercent: util.Percent(free, total),
		UsedPercent: util.Percent(used, total)}
}

// Table returns a copy of the current allocation table.
func (self *BlockStore) Table() *fat.Table {
	defer self.lock.Locked()()
	return self.table.Clone()
}
