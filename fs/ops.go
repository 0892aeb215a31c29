/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Sat Mar 24 15:40:02 2018 mstenber
 * Last modified: Sun Mar 25 12:02:45 2018 mstenber
 * Edit time:     97 min
 *
 */

package fs

import (
	"errors"
	"fmt"
	"path"
	"syscall"

	"github.com/fingon/go-fatfs/fat"
	"github.com/fingon/go-fatfs/mlog"
	"github.com/fingon/go-fatfs/record"
	"github.com/fingon/go-fatfs/util"
	. "github.com/hanwen/go-fuse/fuse"
	"github.com/hanwen/go-fuse/fuse/nodefs"
	"github.com/hanwen/go-fuse/fuse/pathfs"
)

// fatFS exposes a FileManager through go-fuse's path based API.
// Anything not implemented here falls through to the default
// filesystem, which answers ENOSYS.
type fatFS struct {
	pathfs.FileSystem
	fm *FileManager
}

var _ pathfs.FileSystem = &fatFS{}

func NewPathFS(fm *FileManager) pathfs.FileSystem {
	return &fatFS{FileSystem: pathfs.NewDefaultFileSystem(), fm: fm}
}

// Mount serves fm at mountpoint; the caller runs Serve on the
// returned server.
func Mount(fm *FileManager, mountpoint string, debug bool) (*Server, error) {
	nfs := pathfs.NewPathNodeFs(NewPathFS(fm), nil)
	server, _, err := nodefs.MountRoot(mountpoint, nfs.Root(), nil)
	if err != nil {
		return nil, err
	}
	server.SetDebug(debug)
	return server, nil
}

func toStatus(err error) Status {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, ErrNotFound):
		return ENOENT
	case errors.Is(err, ErrDuplicate):
		return Status(syscall.EEXIST)
	case errors.Is(err, ErrDirectoryNotEmpty):
		return Status(syscall.ENOTEMPTY)
	case errors.Is(err, ErrIllegalOperation):
		return EPERM
	case errors.Is(err, ErrInvalidArgument):
		return EINVAL
	case errors.Is(err, ErrCapacity):
		return Status(syscall.ENOSPC)
	}
	mlog.Printf2("fs/ops", "unclassified error %v", err)
	return Status(syscall.EIO)
}

// fullPath converts pathfs names ("" is the root) to absolute paths.
func fullPath(name string) string {
	return "/" + name
}

func splitName(name string) (string, string) {
	dir, base := path.Split(fullPath(name))
	if dir != "/" {
		dir = dir[:len(dir)-1]
	}
	return dir, base
}

func fillAttr(out *Attr, d record.Descriptor, size int) {
	if d.IsDirectory() {
		out.Mode = S_IFDIR | 0755
		out.Nlink = 2
	} else {
		out.Mode = S_IFREG | 0644
		out.Nlink = 1
	}
	if d.Attribute.ReadOnly() {
		out.Mode &^= 0222
	}
	out.Ino = uint64(d.FirstBlock)
	out.Size = uint64(size)
	blocks := d.Length
	if d.IsDirectory() {
		blocks = 1
	}
	out.Blocks = uint64(blocks*fat.BlockSize+511) / 512
}

func (self *fatFS) String() string {
	return "fatfs"
}

func (self *fatFS) GetAttr(name string, context *Context) (*Attr, Status) {
	mlog.Printf2("fs/ops", "ops.GetAttr %s", name)
	fi, err := self.fm.Stat(fullPath(name))
	if err != nil {
		return nil, toStatus(err)
	}
	out := &Attr{}
	fillAttr(out, fi.Descriptor, fi.Size)
	return out, OK
}

func (self *fatFS) OpenDir(name string, context *Context) ([]DirEntry, Status) {
	mlog.Printf2("fs/ops", "ops.OpenDir %s", name)
	l, err := self.fm.ListDirectory(fullPath(name))
	if err != nil {
		return nil, toStatus(err)
	}
	r := make([]DirEntry, len(l))
	for i, d := range l {
		r[i].Name = d.DisplayName()
		if d.IsDirectory() {
			r[i].Mode = S_IFDIR
		} else {
			r[i].Mode = S_IFREG
		}
	}
	return r, OK
}

func (self *fatFS) openFile(name string, truncate bool) (nodefs.File, Status) {
	p := fullPath(name)
	f := &fatFile{File: nodefs.NewDefaultFile(), fm: self.fm, path: p}
	if truncate {
		f.dirty = true
	} else {
		content, err := self.fm.ReadFile(p)
		if err != nil {
			return nil, toStatus(err)
		}
		f.content = content
	}
	return f, OK
}

func (self *fatFS) Open(name string, flags uint32, context *Context) (nodefs.File, Status) {
	mlog.Printf2("fs/ops", "ops.Open %s %x", name, flags)
	return self.openFile(name, flags&syscall.O_TRUNC != 0)
}

func (self *fatFS) Create(name string, flags uint32, mode uint32, context *Context) (nodefs.File, Status) {
	mlog.Printf2("fs/ops", "ops.Create %s %x %o", name, flags, mode)
	dir, base := splitName(name)
	if _, err := self.fm.CreateFile(dir, base, false); err != nil {
		return nil, toStatus(err)
	}
	return self.openFile(name, false)
}

func (self *fatFS) Mkdir(name string, mode uint32, context *Context) Status {
	mlog.Printf2("fs/ops", "ops.Mkdir %s %o", name, mode)
	dir, base := splitName(name)
	_, err := self.fm.CreateDirectory(dir, base, false)
	return toStatus(err)
}

func (self *fatFS) remove(name string, directory bool) Status {
	p := fullPath(name)
	d, err := self.fm.GetFile(p)
	if err != nil {
		return toStatus(err)
	}
	if d.IsDirectory() != directory {
		if directory {
			return ENOTDIR
		}
		return Status(syscall.EISDIR)
	}
	return toStatus(self.fm.DeleteFile(p))
}

func (self *fatFS) Unlink(name string, context *Context) Status {
	mlog.Printf2("fs/ops", "ops.Unlink %s", name)
	return self.remove(name, false)
}

func (self *fatFS) Rmdir(name string, context *Context) Status {
	mlog.Printf2("fs/ops", "ops.Rmdir %s", name)
	return self.remove(name, true)
}

// Rename works only within one directory.
func (self *fatFS) Rename(oldName string, newName string, context *Context) Status {
	mlog.Printf2("fs/ops", "ops.Rename %s %s", oldName, newName)
	oldDir, _ := splitName(oldName)
	newDir, base := splitName(newName)
	if oldDir != newDir {
		return Status(syscall.EXDEV)
	}
	_, err := self.fm.RenameFile(fullPath(oldName), base)
	return toStatus(err)
}

func (self *fatFS) Truncate(name string, size uint64, context *Context) Status {
	mlog.Printf2("fs/ops", "ops.Truncate %s %d", name, size)
	p := fullPath(name)
	content, err := self.fm.ReadFile(p)
	if err != nil {
		return toStatus(err)
	}
	return toStatus(self.fm.WriteFile(p, resize(content, int(size))))
}

func (self *fatFS) StatFs(name string) *StatfsOut {
	ci := self.fm.CapacityInfo()
	return &StatfsOut{Blocks: uint64(ci.Total),
		Bfree:   uint64(ci.Free),
		Bavail:  uint64(ci.Free),
		Bsize:   fat.BlockSize,
		Frsize:  fat.BlockSize,
		NameLen: record.NameSize + 1 + record.TypeSize}
}

func resize(content []byte, size int) []byte {
	if size <= len(content) {
		return content[:size]
	}
	return append(content, make([]byte, size-len(content))...)
}

// fatFile buffers the whole content of an open file; Flush writes
// it back if it has changed.
type fatFile struct {
	nodefs.File
	fm      *FileManager
	path    string
	lock    util.MutexLocked
	content []byte
	dirty   bool
}

func (self *fatFile) String() string {
	return fmt.Sprintf("fatFile{%s}", self.path)
}

func (self *fatFile) Read(dest []byte, off int64) (ReadResult, Status) {
	defer self.lock.Locked()()
	if off >= int64(len(self.content)) {
		return ReadResultData(nil), OK
	}
	end := util.IMin(len(self.content), int(off)+len(dest))
	return ReadResultData(self.content[off:end]), OK
}

func (self *fatFile) Write(data []byte, off int64) (uint32, Status) {
	defer self.lock.Locked()()
	end := int(off) + len(data)
	if end > len(self.content) {
		self.content = resize(self.content, end)
	}
	copy(self.content[off:], data)
	self.dirty = true
	return uint32(len(data)), OK
}

func (self *fatFile) Truncate(size uint64) Status {
	defer self.lock.Locked()()
	self.content = resize(self.content, int(size))
	self.dirty = true
	return OK
}

func (self *fatFile) GetAttr(out *Attr) Status {
	d, err := self.fm.GetFile(self.path)
	if err != nil {
		return toStatus(err)
	}
	defer self.lock.Locked()()
	fillAttr(out, d, len(self.content))
	return OK
}

func (self *fatFile) Flush() Status {
	defer self.lock.Locked()()
	if !self.dirty {
		return OK
	}
	mlog.Printf2("fs/ops", "f.Flush %s (%d b)", self.path, len(self.content))
	if err := self.fm.WriteFile(self.path, self.content); err != nil {
		return toStatus(err)
	}
	self.dirty = false
	return OK
}

func (self *fatFile) Fsync(flags int) Status {
	return self.Flush()
}
