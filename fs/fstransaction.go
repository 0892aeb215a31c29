/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Jan  5 16:40:08 2018 mstenber
 * Last modified: Sat Mar 24 12:48:01 2018 mstenber
 * Edit time:     164 min
 *
 */

package fs

import (
	"fmt"

	"github.com/fingon/go-fatfs/mlog"
)

// fsTransaction collects the in-memory changes of one mutating
// operation. They are applied only after every disk write of the
// operation has succeeded.
type fsTransaction struct {
	fm      *FileManager
	commits []func()
}

// OnCommit registers a tree change. It must not fail; whatever it
// depends on has to be checked before the disk writes.
func (self *fsTransaction) OnCommit(fn func()) {
	self.commits = append(self.commits, fn)
}

// update runs cb inside a BlockStore transaction. If cb or the
// commit fails, every block written (and the table) is rolled back
// and the tree is left untouched. Caller must hold the exclusive lock.
func (self *FileManager) update(cb func(tr *fsTransaction) error) error {
	tr := &fsTransaction{fm: self}
	self.store.Begin()
	err := cb(tr)
	if err == nil {
		err = self.store.Commit()
	}
	if err != nil {
		mlog.Printf2("fs/fstransaction", "fm.update failed: %v", err)
		if rerr := self.store.Rollback(); rerr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", translate(err), rerr)
		}
		return translate(err)
	}
	for _, fn := range tr.commits {
		fn()
	}
	return nil
}
