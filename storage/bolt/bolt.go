/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Jan  3 22:49:15 2018 mstenber
 * Last modified: Tue Mar 20 14:48:39 2018 mstenber
 * Edit time:     47 min
 *
 */

package bolt

import (
	"os"
	"path/filepath"
	"time"

	bbolt "github.com/coreos/bbolt"

	"github.com/fingon/go-fatfs/mlog"
	"github.com/fingon/go-fatfs/storage"
	"github.com/fingon/go-fatfs/util"
)

var blocksKey = []byte("blocks")

// boltKV stores blocks in a single bucket:
//
// - block index (4 bytes, big endian) -> (encoded) block
type boltKV struct {
	db *bbolt.DB
}

var _ storage.KV = &boltKV{}

// NewBoltMedium opens bbolt.db within config.Path.
func NewBoltMedium(config storage.Configuration) (storage.Medium, error) {
	dir := config.Path
	if config.Create {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, err
		}
	}
	opts := &bbolt.Options{Timeout: time.Second, ReadOnly: config.ReadOnly}
	db, err := bbolt.Open(filepath.Join(dir, "bbolt.db"), 0600, opts)
	if err != nil {
		return nil, err
	}
	if !config.ReadOnly {
		err = db.Update(func(tx *bbolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(blocksKey)
			return err
		})
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	mlog.Printf2("storage/bolt/bolt", "NewBoltMedium %s", dir)
	return storage.NewKVMedium(&boltKV{db: db}, config), nil
}

func (self *boltKV) Get(key []byte) (v []byte, err error) {
	err = self.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(blocksKey)
		if b == nil {
			return nil
		}
		// Only valid within the transaction
		v = util.CopyBytes(b.Get(key))
		return nil
	})
	return
}

func (self *boltKV) Set(key, value []byte) error {
	return self.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(blocksKey).Put(key, value)
	})
}

func (self *boltKV) Sync() error {
	return self.db.Sync()
}

func (self *boltKV) Close() error {
	return self.db.Close()
}
