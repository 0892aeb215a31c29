/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sat Dec 23 15:10:01 2017 mstenber
 * Last modified: Tue Mar 20 13:12:44 2018 mstenber
 * Edit time:     51 min
 *
 */

package inmemory

import (
	"fmt"

	"github.com/fingon/go-fatfs/fat"
	"github.com/fingon/go-fatfs/mlog"
	"github.com/fingon/go-fatfs/storage"
	"github.com/fingon/go-fatfs/util"
)

// inMemoryMedium keeps the whole image in a byte slice. It does not
// support codecs; there is nothing to protect.
type inMemoryMedium struct {
	data []byte
	lock util.MutexLocked
}

var _ storage.Medium = &inMemoryMedium{}
var _ storage.RegionWriter = &inMemoryMedium{}

func NewInMemoryMedium() storage.Medium {
	return &inMemoryMedium{data: make([]byte, fat.ImageSize)}
}

// NewInMemoryMediumWithConfig matches the factory signature.
func NewInMemoryMediumWithConfig(config storage.Configuration) (storage.Medium, error) {
	if config.Codec != nil {
		return nil, fmt.Errorf("inmemory medium does not support codecs")
	}
	return NewInMemoryMedium(), nil
}

func (self *inMemoryMedium) region(index, offset, size int) ([]byte, error) {
	if index < 0 || index >= fat.Length {
		return nil, fmt.Errorf("%w: %d", fat.ErrInvalidIndex, index)
	}
	if offset < 0 || offset+size > fat.BlockSize {
		return nil, fmt.Errorf("%w: %d+%d", storage.ErrInvalidRegion, offset, size)
	}
	start := index*fat.BlockSize + offset
	return self.data[start : start+size], nil
}

func (self *inMemoryMedium) ReadBlock(index int, data []byte) error {
	defer self.lock.Locked()()
	b, err := self.region(index, 0, len(data))
	if err != nil {
		return err
	}
	copy(data, b)
	return nil
}

func (self *inMemoryMedium) WriteBlock(index int, data []byte) error {
	return self.WriteRegion(index, 0, data)
}

func (self *inMemoryMedium) WriteRegion(index, offset int, data []byte) error {
	defer self.lock.Locked()()
	mlog.Printf2("storage/inmemory/inmemory", "im.WriteRegion %d@%d (%d b)", index, offset, len(data))
	b, err := self.region(index, offset, len(data))
	if err != nil {
		return err
	}
	copy(b, data)
	return nil
}

func (self *inMemoryMedium) Supports(feature storage.Feature) bool {
	return feature == storage.RegionFeature
}

func (self *inMemoryMedium) Sync() error {
	return nil
}

func (self *inMemoryMedium) Close() error {
	return nil
}
