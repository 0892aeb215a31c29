/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Mar 20 14:02:44 2018 mstenber
 * Last modified: Tue Mar 20 15:21:10 2018 mstenber
 * Edit time:     33 min
 *
 */

package storage

import (
	"fmt"

	"github.com/fingon/go-fatfs/codec"
	"github.com/fingon/go-fatfs/fat"
	"github.com/fingon/go-fatfs/mlog"
	"github.com/fingon/go-fatfs/util"
	"github.com/pkg/errors"
)

// KV is what a key-value database has to provide to act as a block
// medium.
type KV interface {
	// Get returns nil (and no error) for a missing key.
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Sync() error
	Close() error
}

// KVMedium stores each block under its own key, optionally encoded
// with a codec.Codec. Blocks never written read as zeroes.
type KVMedium struct {
	kv    KV
	codec codec.Codec
}

var _ Medium = &KVMedium{}

func NewKVMedium(kv KV, config Configuration) *KVMedium {
	return &KVMedium{kv: kv, codec: config.Codec}
}

func blockKey(index int) []byte {
	return util.Uint32Bytes(uint32(index))
}

func checkIndex(index int, data []byte) error {
	if index < 0 || index >= fat.Length {
		return fmt.Errorf("%w: %d", fat.ErrInvalidIndex, index)
	}
	if len(data) != fat.BlockSize {
		return fmt.Errorf("%w: %d byte buffer", ErrInvalidRegion, len(data))
	}
	return nil
}

func (self *KVMedium) ReadBlock(index int, data []byte) error {
	if err := checkIndex(index, data); err != nil {
		return err
	}
	key := blockKey(index)
	v, err := self.kv.Get(key)
	if err != nil {
		return err
	}
	if v == nil {
		for i := range data {
			data[i] = 0
		}
		return nil
	}
	if self.codec != nil {
		v, err = self.codec.DecodeBytes(v, key)
		if err != nil {
			return errors.Wrapf(err, "decode block %d", index)
		}
	}
	if len(v) != fat.BlockSize {
		return fmt.Errorf("%w: block %d has %d bytes", ErrInvalidImage, index, len(v))
	}
	copy(data, v)
	return nil
}

func (self *KVMedium) WriteBlock(index int, data []byte) error {
	if err := checkIndex(index, data); err != nil {
		return err
	}
	key := blockKey(index)
	v := data
	if self.codec != nil {
		var err error
		v, err = self.codec.EncodeBytes(data, key)
		if err != nil {
			return errors.Wrapf(err, "encode block %d", index)
		}
	}
	mlog.Printf2("storage/kv", "kv.WriteBlock %d (%d b stored)", index, len(v))
	return self.kv.Set(key, v)
}

func (self *KVMedium) Supports(feature Feature) bool {
	return feature == CodecFeature && self.codec != nil
}

func (self *KVMedium) Sync() error {
	return self.kv.Sync()
}

func (self *KVMedium) Close() error {
	return self.kv.Close()
}
