/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Sat Mar 24 14:02:11 2018 mstenber
 * Last modified: Sun Mar 25 11:20:37 2018 mstenber
 * Edit time:     48 min
 *
 */

package fs

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/fingon/go-fatfs/directory"
	"github.com/fingon/go-fatfs/fat"
	"github.com/fingon/go-fatfs/mlog"
	"golang.org/x/sync/errgroup"
)

// CheckReport is the outcome of Check. Block lists are sorted.
type CheckReport struct {
	// Allocated blocks no file or directory refers to.
	Orphans []int

	// Blocks that belong to more than one chain.
	Shared []int

	// Chains that are broken or point at free blocks.
	Errors []string

	Allocated, Reachable, Damaged int
}

func (self *CheckReport) OK() bool {
	return len(self.Orphans) == 0 && len(self.Shared) == 0 && len(self.Errors) == 0
}

func (self *CheckReport) String() string {
	return fmt.Sprintf("allocated:%d reachable:%d damaged:%d orphans:%v shared:%v errors:%d",
		self.Allocated, self.Reachable, self.Damaged,
		self.Orphans, self.Shared, len(self.Errors))
}

type subtreeCheck struct {
	reachable *roaring.Bitmap
	shared    *roaring.Bitmap
	errors    []string
}

func toInts(bm *roaring.Bitmap) []int {
	a := bm.ToArray()
	r := make([]int, len(a))
	for i, v := range a {
		r[i] = int(v)
	}
	return r
}

func (self *FileManager) checkSubtree(table *fat.Table, id directory.NodeID) *subtreeCheck {
	sc := &subtreeCheck{reachable: roaring.New(), shared: roaring.New()}
	self.tree.WalkFrom(id, func(n *directory.Node) error {
		chain, err := table.ChainFrom(n.Descriptor.FirstBlock)
		if err != nil {
			sc.errors = append(sc.errors, fmt.Sprintf("%s: %v", self.tree.Path(n.ID), err))
			return nil
		}
		for _, e := range chain {
			if e.Next == fat.Empty || !fat.Allocatable(e.Index) {
				sc.errors = append(sc.errors, fmt.Sprintf("%s: block %d is %v",
					self.tree.Path(n.ID), e.Index, e.Next))
				continue
			}
			if !sc.reachable.CheckedAdd(uint32(e.Index)) {
				sc.shared.Add(uint32(e.Index))
			}
		}
		return nil
	})
	return sc
}

// Check compares the allocation table against the chains reachable
// from the directory tree. Nothing is modified.
func (self *FileManager) Check() (*CheckReport, error) {
	defer self.lock.RLocked()()
	table := self.store.Table()

	allocated := roaring.New()
	r := &CheckReport{}
	for i := fat.Reserved; i < table.Len(); i++ {
		switch table.Entry(i).Next {
		case fat.Empty:
		case fat.Damaged:
			r.Damaged++
		default:
			allocated.Add(uint32(i))
		}
	}

	reachable := roaring.New()
	reachable.Add(fat.RootBlock)
	children, err := self.tree.Children(self.tree.Root())
	if err != nil {
		return nil, err
	}
	results := make([]*subtreeCheck, len(children))
	var g errgroup.Group
	for i, c := range children {
		g.Go(func() error {
			results[i] = self.checkSubtree(table, c)
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}

	shared := roaring.New()
	for _, sc := range results {
		shared.Or(sc.shared)
		shared.Or(roaring.And(reachable, sc.reachable))
		reachable.Or(sc.reachable)
		r.Errors = append(r.Errors, sc.errors...)
	}
	r.Orphans = toInts(roaring.AndNot(allocated, reachable))
	r.Shared = toInts(shared)
	r.Allocated = int(allocated.GetCardinality())
	r.Reachable = int(reachable.GetCardinality())
	mlog.Printf2("fs/check", "fm.Check %v", r)
	return r, nil
}
