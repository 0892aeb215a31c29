/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Jan 16 14:38:45 2018 mstenber
 * Last modified: Tue Mar 20 15:58:21 2018 mstenber
 * Edit time:     74 min
 *
 */

// file is the flat image medium: fat.Length blocks of fat.BlockSize
// bytes, block i at offset i*fat.BlockSize.
package file

import (
	"fmt"
	"os"

	"github.com/fingon/go-fatfs/fat"
	"github.com/fingon/go-fatfs/mlog"
	"github.com/fingon/go-fatfs/storage"
	"github.com/pkg/errors"
)

type fileMedium struct {
	f    *os.File
	path string
}

var _ storage.Medium = &fileMedium{}
var _ storage.RegionWriter = &fileMedium{}

// NewFileMedium opens (or with config.Create, creates) the image at
// config.Path and locks it for this process.
func NewFileMedium(config storage.Configuration) (storage.Medium, error) {
	if config.Codec != nil {
		return nil, fmt.Errorf("file medium has fixed block offsets and does not support codecs")
	}
	flags := os.O_RDWR
	if config.ReadOnly {
		flags = os.O_RDONLY
	} else if config.Create {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(config.Path, flags, 0644)
	if err != nil {
		return nil, err
	}
	if err = lockFile(f, !config.ReadOnly); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "lock %s", config.Path)
	}
	self := &fileMedium{f: f, path: config.Path}
	if config.Create && !config.ReadOnly {
		if err = f.Truncate(fat.ImageSize); err != nil {
			f.Close()
			return nil, err
		}
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.Size() != fat.ImageSize {
		f.Close()
		return nil, fmt.Errorf("%w: %s is %d bytes, expected %d",
			storage.ErrInvalidImage, config.Path, fi.Size(), fat.ImageSize)
	}
	mlog.Printf2("storage/file/file", "NewFileMedium %s", config.Path)
	return self, nil
}

func offset(index, offset, size int) (int64, error) {
	if index < 0 || index >= fat.Length {
		return 0, fmt.Errorf("%w: %d", fat.ErrInvalidIndex, index)
	}
	if offset < 0 || offset+size > fat.BlockSize {
		return 0, fmt.Errorf("%w: %d+%d", storage.ErrInvalidRegion, offset, size)
	}
	return int64(index*fat.BlockSize + offset), nil
}

func (self *fileMedium) ReadBlock(index int, data []byte) error {
	ofs, err := offset(index, 0, len(data))
	if err != nil {
		return err
	}
	_, err = self.f.ReadAt(data, ofs)
	return err
}

func (self *fileMedium) WriteBlock(index int, data []byte) error {
	return self.WriteRegion(index, 0, data)
}

func (self *fileMedium) WriteRegion(index, ofs int, data []byte) error {
	pos, err := offset(index, ofs, len(data))
	if err != nil {
		return err
	}
	mlog.Printf2("storage/file/file", "fm.WriteRegion %d@%d (%d b)", index, ofs, len(data))
	_, err = self.f.WriteAt(data, pos)
	return err
}

func (self *fileMedium) Supports(feature storage.Feature) bool {
	return feature == storage.RegionFeature
}

func (self *fileMedium) Sync() error {
	return self.f.Sync()
}

// Close releases the lock along with the descriptor.
func (self *fileMedium) Close() error {
	return self.f.Close()
}
