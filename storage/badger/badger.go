/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sat Dec 23 15:10:01 2017 mstenber
 * Last modified: Tue Mar 20 14:59:02 2018 mstenber
 * Edit time:     163 min
 *
 */

package badger

import (
	"os"

	"github.com/dgraph-io/badger"
	"github.com/fingon/go-fatfs/mlog"
	"github.com/fingon/go-fatfs/storage"
	"github.com/fingon/go-fatfs/util"
)

// badgerKV provides on-disk storage.
//
// - key prefix 'b' + block index -> (encoded) block
type badgerKV struct {
	db *badger.DB
}

var _ storage.KV = &badgerKV{}

var blockPrefix = []byte("b")

// NewBadgerMedium opens a badger database in config.Path. Writes are
// synchronous, so Sync has nothing left to do.
func NewBadgerMedium(config storage.Configuration) (storage.Medium, error) {
	dir := config.Path
	if config.Create {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, err
		}
	}
	opts := badger.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir
	opts.SyncWrites = true
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	mlog.Printf2("storage/badger/badger", "NewBadgerMedium %s", dir)
	return storage.NewKVMedium(&badgerKV{db: db}, config), nil
}

func (self *badgerKV) Get(key []byte) (v []byte, err error) {
	k := util.ConcatBytes(blockPrefix, key)
	err = self.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		v, err = item.ValueCopy(nil)
		return err
	})
	return
}

func (self *badgerKV) Set(key, value []byte) error {
	k := util.ConcatBytes(blockPrefix, key)
	return self.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, value)
	})
}

func (self *badgerKV) Sync() error {
	return nil
}

func (self *badgerKV) Close() error {
	return self.db.Close()
}
