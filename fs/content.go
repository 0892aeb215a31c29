/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Mar 23 09:31:50 2018 mstenber
 * Last modified: Sun Mar 25 10:41:12 2018 mstenber
 * Edit time:     63 min
 *
 */

package fs

import (
	"bytes"
	"fmt"

	"github.com/fingon/go-fatfs/directory"
	"github.com/fingon/go-fatfs/fat"
	"github.com/fingon/go-fatfs/mlog"
	"github.com/fingon/go-fatfs/record"
	"github.com/fingon/go-fatfs/storage"
	"github.com/fingon/go-fatfs/util"
)

// File content is stored in the chain starting at the descriptor's
// first block, terminated by a single EndOfFile byte. Bytes after the
// terminator in the final block are undefined.

func (self *FileManager) readContent(n *directory.Node) ([]byte, error) {
	blocks, err := self.store.ReadChain(n.Descriptor.FirstBlock)
	if err != nil {
		return nil, err
	}
	last := blocks[len(blocks)-1].Data
	eof := bytes.IndexByte(last, record.EndOfFile)
	if eof < 0 {
		return nil, fmt.Errorf("%w: no end of file in block %d", fat.ErrCorrupt, blocks[len(blocks)-1].Index)
	}
	r := make([]byte, 0, (len(blocks)-1)*fat.BlockSize+eof)
	for _, b := range blocks[:len(blocks)-1] {
		r = append(r, b.Data...)
	}
	return append(r, last[:eof]...), nil
}

// ReadFile returns the content of a file.
func (self *FileManager) ReadFile(path string) ([]byte, error) {
	defer self.lock.RLocked()()
	_, n, err := self.resolve(path)
	if err != nil {
		return nil, err
	}
	if n.IsDirectory() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidArgument, path)
	}
	return self.readContent(n)
}

// WriteFile replaces the content of a file. The chain is reused,
// extended or truncated as needed.
func (self *FileManager) WriteFile(path string, content []byte) error {
	defer self.lock.Locked()()
	mlog.Printf2("fs/filemanager", "fs.WriteFile %s (%d b)", path, len(content))
	id, n, err := self.resolve(path)
	if err != nil {
		return err
	}
	if n.IsDirectory() {
		return fmt.Errorf("%w: %s is a directory", ErrInvalidArgument, path)
	}
	if bytes.IndexByte(content, record.EndOfFile) >= 0 {
		return fmt.Errorf("%w: content contains the end of file byte 0x%x", ErrInvalidArgument, record.EndOfFile)
	}
	payload := make([]byte, len(content)+1)
	copy(payload, content)
	payload[len(content)] = record.EndOfFile
	needed := (len(payload) + fat.BlockSize - 1) / fat.BlockSize

	old, err := record.Encode(n.Descriptor)
	if err != nil {
		return translate(err)
	}
	d := n.Descriptor
	d.Length = needed
	parent := self.tree.Node(n.Parent)
	return self.update(func(tr *fsTransaction) error {
		chain, err := self.store.Chain(d.FirstBlock)
		if err != nil {
			return err
		}
		blocks := make([]int, 0, needed)
		for i := 0; i < needed; i++ {
			index := 0
			if i < len(chain) {
				index = chain[i]
			} else {
				b, err := self.store.AllocateAfter(blocks[i-1])
				if err != nil {
					return err
				}
				index = b.Index
			}
			blocks = append(blocks, index)
			start := i * fat.BlockSize
			// The final block gets the remainder, or a whole
			// block if the payload ends on a block boundary.
			length := util.IMin(fat.BlockSize, len(payload)-start)
			if length == fat.BlockSize {
				err = self.store.WriteBlock(storage.Block{Index: index,
					Data: payload[start : start+length]})
			} else {
				err = self.store.WriteRegion(payload, start, length, index, 0)
			}
			if err != nil {
				return err
			}
		}
		if len(chain) > needed {
			if err = self.store.ReleaseAfter(blocks[needed-1]); err != nil {
				return err
			}
		}
		if d.Length != n.Descriptor.Length {
			rec, err := record.Encode(d)
			if err != nil {
				return err
			}
			if err = self.writeRecord(parent, old, rec); err != nil {
				return err
			}
			tr.OnCommit(func() {
				self.tree.SetDescriptor(id, d)
			})
		}
		return nil
	})
}
