/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Jan  5 12:22:52 2018 mstenber
 * Last modified: Fri Mar 23 15:20:44 2018 mstenber
 * Edit time:     52 min
 *
 */

package factory

import (
	"fmt"
	"sort"

	"github.com/fingon/go-fatfs/codec"
	"github.com/fingon/go-fatfs/mlog"
	"github.com/fingon/go-fatfs/storage"
	"github.com/fingon/go-fatfs/storage/badger"
	"github.com/fingon/go-fatfs/storage/bolt"
	"github.com/fingon/go-fatfs/storage/file"
	"github.com/fingon/go-fatfs/storage/inmemory"
)

type factoryCallback func(config storage.Configuration) (storage.Medium, error)

var mediumFactories = map[string]factoryCallback{
	"file":     file.NewFileMedium,
	"inmemory": inmemory.NewInMemoryMediumWithConfig,
	"bolt":     bolt.NewBoltMedium,
	"badger":   badger.NewBadgerMedium,
}

func List() []string {
	keys := make([]string, 0, len(mediumFactories))
	for k := range mediumFactories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func New(name string, config storage.Configuration) (storage.Medium, error) {
	mlog.Printf2("storage/factory/factory", "f.New %v %v", name, config.Path)
	f, ok := mediumFactories[name]
	if !ok {
		return nil, fmt.Errorf("unknown medium %q (available: %v)", name, List())
	}
	return f(config)
}

const (
	CipherGCM = "gcm"
	CipherSIV = "siv"
)

// CodecConfiguration describes the block transforms of key-value
// media. Compression is applied first and encryption last.
type CodecConfiguration struct {
	Password, Salt string
	Iterations     int
	Compression    string
	Cipher         string
}

// Codec returns the configured chain, or nil if neither compression
// nor a password is configured.
func (self CodecConfiguration) Codec() (codec.Codec, error) {
	iterations := self.Iterations
	if iterations == 0 {
		iterations = 12345
	}
	salt := self.Salt
	if salt == "" {
		salt = "asdf"
	}
	var codecs []codec.Codec
	if self.Password != "" {
		switch self.Cipher {
		case "", CipherGCM:
			mlog.Printf2("storage/factory/factory", " with AES-GCM")
			codecs = append(codecs, codec.EncryptingCodec{}.Init([]byte(self.Password), []byte(salt), iterations))
		case CipherSIV:
			mlog.Printf2("storage/factory/factory", " with AES-SIV")
			codecs = append(codecs, codec.SIVCodec{}.Init([]byte(self.Password), []byte(salt), iterations))
		default:
			return nil, fmt.Errorf("unknown cipher %q", self.Cipher)
		}
	}
	if self.Compression != "" {
		mlog.Printf2("storage/factory/factory", " with %s compression", self.Compression)
		c, err := codec.CompressingCodec{}.Init(codec.Algorithm(self.Compression))
		if err != nil {
			return nil, err
		}
		codecs = append(codecs, c)
	}
	if len(codecs) == 0 {
		return nil, nil
	}
	return codec.CodecChain{}.Init(codecs...), nil
}

// NewBlockStore creates the named medium with the codec and opens a
// BlockStore on top of it.
func NewBlockStore(name string, config storage.Configuration, cc CodecConfiguration) (*storage.BlockStore, error) {
	c, err := cc.Codec()
	if err != nil {
		return nil, err
	}
	config.Codec = c
	m, err := New(name, config)
	if err != nil {
		return nil, err
	}
	bs, err := storage.Open(m, config)
	if err != nil {
		m.Close()
		return nil, err
	}
	return bs, nil
}
