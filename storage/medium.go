/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Jan  5 11:14:11 2018 mstenber
 * Last modified: Tue Mar 20 12:40:05 2018 mstenber
 * Edit time:     38 min
 *
 */

package storage

import "github.com/fingon/go-fatfs/codec"

type Feature int

const (
	// RegionFeature media implement RegionWriter.
	RegionFeature Feature = iota

	// CodecFeature media pass every block through a codec.Codec.
	CodecFeature
)

// Medium is the flat backing store of fat.Length blocks of
// fat.BlockSize bytes. It knows nothing about the allocation table;
// BlockStore is the only user.
type Medium interface {
	// ReadBlock fills data (fat.BlockSize bytes) with the block.
	ReadBlock(index int, data []byte) error

	// WriteBlock replaces the block with data (fat.BlockSize bytes).
	WriteBlock(index int, data []byte) error

	Supports(feature Feature) bool

	// Sync makes the previous writes durable.
	Sync() error

	Close() error
}

// RegionWriter is implemented by media that can patch part of a
// block in place.
type RegionWriter interface {
	WriteRegion(index, offset int, data []byte) error
}

// Configuration is shared by all media.
type Configuration struct {
	// Path is the image file, or the database directory for the
	// key-value media.
	Path string

	// Create the image (or database) if it does not exist.
	Create bool

	ReadOnly bool

	// CacheSize is the number of blocks BlockStore keeps in its
	// read cache; 0 disables the cache.
	CacheSize int

	// Codec is applied to every block by media that support
	// CodecFeature.
	Codec codec.Codec
}
