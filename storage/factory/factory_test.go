/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Jan  5 16:28:57 2018 mstenber
 * Last modified: Fri Mar 23 15:44:17 2018 mstenber
 * Edit time:     18 min
 *
 */

package factory

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fingon/go-fatfs/fat"
	"github.com/fingon/go-fatfs/storage"
	"github.com/stvp/assert"
)

func TestList(t *testing.T) {
	t.Parallel()
	assert.Equal(t, len(List()), len(mediumFactories))
	assert.Equal(t, List(), []string{"badger", "bolt", "file", "inmemory"})

	_, err := New("nope", storage.Configuration{})
	assert.True(t, err != nil)
}

func TestCodecConfiguration(t *testing.T) {
	t.Parallel()
	c, err := CodecConfiguration{}.Codec()
	assert.Nil(t, err)
	assert.Nil(t, c)

	for _, cc := range []CodecConfiguration{
		{Password: "foo", Iterations: 4},
		{Password: "foo", Iterations: 4, Cipher: CipherSIV, Compression: "zstd"},
		{Compression: "snappy"},
	} {
		c, err = cc.Codec()
		assert.Nil(t, err)
		data := make([]byte, fat.BlockSize)
		enc, err := c.EncodeBytes(data, []byte{1})
		assert.Nil(t, err)
		dec, err := c.DecodeBytes(enc, []byte{1})
		assert.Nil(t, err)
		assert.Equal(t, dec, data)
	}

	_, err = CodecConfiguration{Password: "x", Cipher: "rot13"}.Codec()
	assert.True(t, err != nil)
	_, err = CodecConfiguration{Compression: "rar"}.Codec()
	assert.True(t, err != nil)
}

func TestNewBlockStore(t *testing.T) {
	t.Parallel()
	for _, name := range List() {
		name := name
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			dir, err := os.MkdirTemp("", "factory")
			assert.Nil(t, err)
			defer os.RemoveAll(dir)
			path := dir
			if name == "file" {
				path = filepath.Join(dir, "image")
			}
			config := storage.Configuration{Path: path, Create: true}
			cc := CodecConfiguration{}
			if name == "bolt" || name == "badger" {
				cc = CodecConfiguration{Password: "pw", Iterations: 4, Compression: "lz4"}
			}

			// Unformatted media are refused
			_, err = NewBlockStore(name, config, cc)
			assert.True(t, errors.Is(err, storage.ErrNotFormatted))

			if name == "inmemory" {
				return
			}
			c, err := cc.Codec()
			assert.Nil(t, err)
			config.Codec = c
			m, err := New(name, config)
			assert.Nil(t, err)
			assert.Nil(t, storage.Format(m))
			assert.Nil(t, m.Close())

			bs, err := NewBlockStore(name, config, cc)
			assert.Nil(t, err)
			assert.Equal(t, bs.CapacityInfo().Free, fat.Length-3)
			assert.Nil(t, bs.Close())
		})
	}
}
