/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Mar 22 11:10:25 2018 mstenber
 * Last modified: Sun Mar 25 10:44:02 2018 mstenber
 * Edit time:     241 min
 *
 */

// fs package implements the filesystem operations on top of the
// block store, allocation table and directory tree.
//
// All mutating operations hold the FileManager lock exclusively and
// run within a store transaction; the in-memory tree is changed only
// after the disk writes have succeeded. Read-only operations share
// the lock.
package fs

import (
	"fmt"
	"log"

	"github.com/fingon/go-fatfs/directory"
	"github.com/fingon/go-fatfs/fat"
	"github.com/fingon/go-fatfs/mlog"
	"github.com/fingon/go-fatfs/record"
	"github.com/fingon/go-fatfs/storage"
	"github.com/fingon/go-fatfs/util"
)

type FileManager struct {
	store *storage.BlockStore
	tree  *directory.Tree
	lock  util.RWMutexLocked
}

// FileInfo is a descriptor with its location and content size.
type FileInfo struct {
	record.Descriptor
	Path string
	Size int
}

var rootDescriptor = record.Descriptor{Name: "/",
	Attribute:  record.NewAttribute(true, true),
	FirstBlock: fat.RootBlock}

// Open builds the directory tree from the on-disk directory blocks,
// starting at the root block. Nothing is repaired.
func Open(store *storage.BlockStore) (*FileManager, error) {
	self := &FileManager{store: store, tree: directory.New(rootDescriptor)}
	if err := self.load(self.tree.Root(), 0); err != nil {
		return nil, err
	}
	mlog.Printf2("fs/filemanager", "fs.Open loaded %d nodes", self.tree.Len())
	return self, nil
}

func (self *FileManager) load(id directory.NodeID, depth int) error {
	if depth > fat.Length {
		return fmt.Errorf("%w: directories nested deeper than %d", fat.ErrCorrupt, fat.Length)
	}
	n := self.tree.Node(id)
	b, err := self.store.ReadBlock(n.Descriptor.FirstBlock)
	if err != nil {
		return err
	}
	slots, err := record.Slots(b.Data)
	if err != nil {
		return err
	}
	for _, s := range slots {
		cid, err := self.tree.AddChild(id, s.Descriptor)
		if err != nil {
			return err
		}
		if s.Descriptor.IsDirectory() {
			if err = self.load(cid, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func (self *FileManager) Close() error {
	defer self.lock.Locked()()
	return self.store.Close()
}

func (self *FileManager) resolve(path string) (directory.NodeID, *directory.Node, error) {
	id, err := self.tree.Resolve(path)
	if err != nil {
		return id, nil, translate(err)
	}
	return id, self.tree.Node(id), nil
}

func (self *FileManager) resolveDirectory(path string) (directory.NodeID, *directory.Node, error) {
	id, n, err := self.resolve(path)
	if err != nil {
		return id, nil, err
	}
	if !n.IsDirectory() {
		return id, nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidArgument, path)
	}
	return id, n, nil
}

// checkSibling fails with ErrDuplicate if a child of parent other
// than except already has the display name.
func (self *FileManager) checkSibling(parent directory.NodeID, name string, except directory.NodeID) error {
	children, err := self.tree.Children(parent)
	if err != nil {
		return translate(err)
	}
	for _, c := range children {
		if c != except && self.tree.Node(c).Name() == name {
			return fmt.Errorf("%w: %s", ErrDuplicate, name)
		}
	}
	return nil
}

// writeRecord writes rec into the parent directory block, into the
// slot that holds old (or the first empty slot if old is nil).
func (self *FileManager) writeRecord(parent *directory.Node, old, rec []byte) error {
	pb, err := self.store.ReadBlock(parent.Descriptor.FirstBlock)
	if err != nil {
		return err
	}
	var ofs int
	if old == nil {
		ofs = record.FindEmptySlot(pb.Data)
		if ofs < 0 {
			return fmt.Errorf("%w: no empty slot in block %d", directory.ErrDirectoryFull, pb.Index)
		}
	} else {
		ofs = record.FindRecord(pb.Data, old)
		if ofs < 0 {
			return fmt.Errorf("%w: record %x missing from block %d", fat.ErrCorrupt, old, pb.Index)
		}
	}
	return self.store.WriteRegion(rec, 0, len(rec), pb.Index, ofs)
}

func (self *FileManager) create(dirPath, name string, system, isDirectory bool) (d record.Descriptor, err error) {
	defer self.lock.Locked()()
	mlog.Printf2("fs/filemanager", "fs.create %s %s dir:%v", dirPath, name, isDirectory)
	if err = validateName(name, isDirectory); err != nil {
		return
	}
	parentID, parent, err := self.resolveDirectory(dirPath)
	if err != nil {
		return
	}
	if err = self.checkSibling(parentID, name, directory.NoNode); err != nil {
		return
	}
	children, _ := self.tree.Children(parentID)
	if len(children) >= directory.MaxChildren {
		err = fmt.Errorf("%w: %w: %s", ErrCapacity, directory.ErrDirectoryFull, dirPath)
		return
	}
	n, t := descriptorName(name, isDirectory)
	err = self.update(func(tr *fsTransaction) error {
		content := []byte{record.EndOfFile}
		length := 1
		if isDirectory {
			content = record.EmptyDirectoryBlock()
			length = 0
		}
		b, err := self.store.AllocateWithContent(content)
		if err != nil {
			return err
		}
		d = record.Descriptor{Name: n, Type: t,
			Attribute:  record.NewAttribute(system, isDirectory),
			FirstBlock: b.Index, Length: length}
		rec, err := record.Encode(d)
		if err != nil {
			return err
		}
		if err = self.writeRecord(parent, nil, rec); err != nil {
			return err
		}
		tr.OnCommit(func() {
			if _, err := self.tree.AddChild(parentID, d); err != nil {
				log.Panic("tree.AddChild after checks", err)
			}
		})
		return nil
	})
	if err != nil {
		d = record.Descriptor{}
	}
	return
}

// CreateDirectory creates an empty directory name within dirPath.
func (self *FileManager) CreateDirectory(dirPath, name string, system bool) (record.Descriptor, error) {
	return self.create(dirPath, name, system, true)
}

// CreateFile creates an empty file name[.type] within dirPath.
func (self *FileManager) CreateFile(dirPath, name string, system bool) (record.Descriptor, error) {
	return self.create(dirPath, name, system, false)
}

// DeleteFile removes a file, or an empty directory, and frees its
// blocks.
func (self *FileManager) DeleteFile(path string) error {
	defer self.lock.Locked()()
	mlog.Printf2("fs/filemanager", "fs.DeleteFile %s", path)
	id, n, err := self.resolve(path)
	if err != nil {
		return err
	}
	if id == self.tree.Root() {
		return fmt.Errorf("%w: cannot delete /", ErrIllegalOperation)
	}
	if n.IsDirectory() {
		children, _ := self.tree.Children(id)
		if len(children) > 0 {
			return fmt.Errorf("%w: %s", ErrDirectoryNotEmpty, path)
		}
	}
	parent := self.tree.Node(n.Parent)
	rec, err := record.Encode(n.Descriptor)
	if err != nil {
		return translate(err)
	}
	return self.update(func(tr *fsTransaction) error {
		if err := self.store.ReleaseFrom(n.Descriptor.FirstBlock); err != nil {
			return err
		}
		pb, err := self.store.ReadBlock(parent.Descriptor.FirstBlock)
		if err != nil {
			return err
		}
		ofs := record.FindRecord(pb.Data, rec)
		if ofs < 0 {
			return fmt.Errorf("%w: record of %s missing from block %d", fat.ErrCorrupt, path, pb.Index)
		}
		err = self.store.WriteRegion([]byte{record.EmptySlot}, 0, 1, pb.Index, ofs)
		if err != nil {
			return err
		}
		tr.OnCommit(func() {
			if _, err := self.tree.RemoveChild(path); err != nil {
				log.Panic("tree.RemoveChild after resolve", err)
			}
		})
		return nil
	})
}

// GetFile returns the descriptor at path.
func (self *FileManager) GetFile(path string) (record.Descriptor, error) {
	defer self.lock.RLocked()()
	id, n, err := self.resolve(path)
	if err != nil {
		return record.Descriptor{}, err
	}
	return self.descriptor(id, n), nil
}

// descriptor of a node; the root has no record of its own and its
// length is the number of entries in the root block.
func (self *FileManager) descriptor(id directory.NodeID, n *directory.Node) record.Descriptor {
	d := n.Descriptor
	if id == self.tree.Root() {
		children, _ := self.tree.Children(id)
		d.Length = len(children)
	}
	return d
}

// ListDirectory returns the descriptors of the children of a
// directory, in creation order.
func (self *FileManager) ListDirectory(path string) ([]record.Descriptor, error) {
	defer self.lock.RLocked()()
	id, _, err := self.resolveDirectory(path)
	if err != nil {
		return nil, err
	}
	children, _ := self.tree.Children(id)
	r := make([]record.Descriptor, len(children))
	for i, c := range children {
		r[i] = self.tree.Node(c).Descriptor
	}
	return r, nil
}

// RenameFile gives the file or directory at path a new name within
// the same directory.
func (self *FileManager) RenameFile(path, newName string) (record.Descriptor, error) {
	defer self.lock.Locked()()
	mlog.Printf2("fs/filemanager", "fs.RenameFile %s %s", path, newName)
	id, n, err := self.resolve(path)
	if err != nil {
		return record.Descriptor{}, err
	}
	if id == self.tree.Root() {
		return record.Descriptor{}, fmt.Errorf("%w: cannot rename /", ErrIllegalOperation)
	}
	isDirectory := n.IsDirectory()
	if err = validateName(newName, isDirectory); err != nil {
		return record.Descriptor{}, err
	}
	if err = self.checkSibling(n.Parent, newName, id); err != nil {
		return record.Descriptor{}, err
	}
	d := n.Descriptor
	d.Name, d.Type = descriptorName(newName, isDirectory)
	old, err := record.Encode(n.Descriptor)
	if err != nil {
		return record.Descriptor{}, translate(err)
	}
	rec, err := record.Encode(d)
	if err != nil {
		return record.Descriptor{}, translate(err)
	}
	parent := self.tree.Node(n.Parent)
	err = self.update(func(tr *fsTransaction) error {
		if err := self.writeRecord(parent, old, rec); err != nil {
			return err
		}
		tr.OnCommit(func() {
			self.tree.SetDescriptor(id, d)
		})
		return nil
	})
	if err != nil {
		return record.Descriptor{}, err
	}
	return d, nil
}

// CapacityInfo describes the whole medium.
func (self *FileManager) CapacityInfo() storage.CapacityInfo {
	defer self.lock.RLocked()()
	return self.store.CapacityInfo()
}

// Stat returns the descriptor at path along with the content size.
func (self *FileManager) Stat(path string) (FileInfo, error) {
	defer self.lock.RLocked()()
	id, n, err := self.resolve(path)
	if err != nil {
		return FileInfo{}, err
	}
	fi := FileInfo{Descriptor: self.descriptor(id, n), Path: self.tree.Path(id)}
	if !n.IsDirectory() {
		content, err := self.readContent(n)
		if err != nil {
			return FileInfo{}, err
		}
		fi.Size = len(content)
	}
	return fi, nil
}
