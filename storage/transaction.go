/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Mar 23 12:05:41 2018 mstenber
 * Last modified: Fri Mar 23 14:29:02 2018 mstenber
 * Edit time:     41 min
 *
 */

package storage

import (
	"log"

	"github.com/fingon/go-fatfs/fat"
	"github.com/fingon/go-fatfs/mlog"
)

// transaction is an in-memory undo log: the table as it was at
// Begin, and the first pre-image of every block written since.
type transaction struct {
	table     *fat.Table
	preimages map[int][]byte
	order     []int
}

func (self *transaction) has(index int) bool {
	_, ok := self.preimages[index]
	return ok
}

func (self *transaction) save(index int, data []byte) {
	self.preimages[index] = data
	self.order = append(self.order, index)
}

// Begin starts a transaction. Only one may be open at a time.
func (self *BlockStore) Begin() {
	defer self.lock.Locked()()
	if self.tx != nil {
		log.Panic("bs.Begin: transaction already open")
	}
	self.tx = &transaction{table: self.table.Clone(),
		preimages: make(map[int][]byte)}
}

// Commit syncs the medium and then forgets the undo log. If the sync
// fails the transaction stays open so that it can be rolled back.
func (self *BlockStore) Commit() error {
	defer self.lock.Locked()()
	if self.tx == nil {
		log.Panic("bs.Commit: no transaction")
	}
	mlog.Printf2("storage/transaction", "bs.Commit %d blocks", len(self.tx.order))
	if !self.readOnly {
		if err := self.medium.Sync(); err != nil {
			mlog.Printf2("storage/transaction", " sync failed: %v", err)
			return err
		}
	}
	self.tx = nil
	return nil
}

// Rollback writes every saved pre-image back, newest first, and
// restores the table.
func (self *BlockStore) Rollback() error {
	defer self.lock.Locked()()
	tx := self.tx
	if tx == nil {
		log.Panic("bs.Rollback: no transaction")
	}
	self.tx = nil
	self.table = tx.table
	mlog.Printf2("storage/transaction", "bs.Rollback %d blocks", len(tx.order))
	var firstErr error
	for i := len(tx.order) - 1; i >= 0; i-- {
		index := tx.order[i]
		if self.cache != nil {
			self.cache.Remove(index)
		}
		err := self.medium.WriteBlock(index, tx.preimages[index])
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if len(tx.order) > 0 {
		if err := self.medium.Sync(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
