/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Mar 20 16:10:12 2018 mstenber
 * Last modified: Tue Mar 20 16:31:55 2018 mstenber
 * Edit time:     14 min
 *
 */

package storage

import (
	"github.com/fingon/go-fatfs/fat"
	"github.com/fingon/go-fatfs/mlog"
	"github.com/fingon/go-fatfs/record"
	"github.com/pkg/errors"
)

// Format initializes a medium: the table blocks and the root
// directory block are marked END, everything else EMPTY, and the
// root directory has all of its slots empty. This is a one-time
// operation for fresh images; BlockStore never calls it.
func Format(m Medium) error {
	mlog.Printf2("storage/format", "Format")
	table := make([]byte, fat.Length)
	for i := 0; i <= fat.RootBlock; i++ {
		table[i] = fat.End.Byte()
	}
	zero := make([]byte, fat.BlockSize)
	for i := 0; i < fat.Length; i++ {
		var b []byte
		switch {
		case i < fat.TableBlocks:
			b = table[i*fat.BlockSize : (i+1)*fat.BlockSize]
		case i == fat.RootBlock:
			b = record.EmptyDirectoryBlock()
		default:
			b = zero
		}
		if err := m.WriteBlock(i, b); err != nil {
			return errors.Wrapf(err, "format block %d", i)
		}
	}
	return m.Sync()
}
