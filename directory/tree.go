/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Mar 21 16:20:12 2018 mstenber
 * Last modified: Sat Mar 24 11:37:48 2018 mstenber
 * Edit time:     118 min
 *
 */

// directory is the in-memory mirror of the on-disk directory
// hierarchy. Nodes live in an arena and refer to each other by
// NodeID; only the Directory kind has children.
package directory

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/fingon/go-fatfs/mlog"
	"github.com/fingon/go-fatfs/record"
)

// MaxChildren is the number of records that fit in one directory
// block.
const MaxChildren = record.SlotsPerBlock

var (
	ErrNotFound      = errors.New("not found")
	ErrNotDirectory  = errors.New("not a directory")
	ErrDirectoryFull = errors.New("directory full")
)

type NodeID int

// NoNode is the parent of the root.
const NoNode NodeID = -1

// Kind is either *Directory or RegularFile.
type Kind interface {
	isKind()
}

type Directory struct {
	Children []NodeID
}

type RegularFile struct{}

func (*Directory) isKind()  {}
func (RegularFile) isKind() {}

type Node struct {
	ID         NodeID
	Parent     NodeID
	Descriptor record.Descriptor
	Kind       Kind
}

func (self *Node) IsDirectory() bool {
	_, ok := self.Kind.(*Directory)
	return ok
}

func (self *Node) Name() string {
	return self.Descriptor.DisplayName()
}

type Tree struct {
	nodes map[NodeID]*Node
	root  NodeID
	next  NodeID
}

func kindOf(d record.Descriptor) Kind {
	if d.IsDirectory() {
		return &Directory{}
	}
	return RegularFile{}
}

// New creates a tree with only the root directory.
func New(root record.Descriptor) *Tree {
	if !root.IsDirectory() {
		log.Panicf("directory.New: root %v is not a directory", root)
	}
	self := &Tree{nodes: make(map[NodeID]*Node)}
	self.root = self.add(NoNode, root)
	return self
}

func (self *Tree) add(parent NodeID, d record.Descriptor) NodeID {
	id := self.next
	self.next++
	self.nodes[id] = &Node{ID: id, Parent: parent, Descriptor: d, Kind: kindOf(d)}
	return id
}

func (self *Tree) Root() NodeID {
	return self.root
}

// Node returns the node, or nil if there is no such node.
func (self *Tree) Node(id NodeID) *Node {
	return self.nodes[id]
}

func (self *Tree) Len() int {
	return len(self.nodes)
}

func (self *Tree) directory(id NodeID) (*Directory, error) {
	n := self.nodes[id]
	if n == nil {
		return nil, fmt.Errorf("%w: node %d", ErrNotFound, id)
	}
	d, ok := n.Kind.(*Directory)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, n.Name())
	}
	return d, nil
}

// Children returns a copy of the child list of a directory, in
// insertion order.
func (self *Tree) Children(id NodeID) ([]NodeID, error) {
	d, err := self.directory(id)
	if err != nil {
		return nil, err
	}
	return append([]NodeID(nil), d.Children...), nil
}

// Child returns the child with the given display name.
func (self *Tree) Child(id NodeID, name string) (NodeID, error) {
	d, err := self.directory(id)
	if err != nil {
		return NoNode, err
	}
	for _, c := range d.Children {
		if self.nodes[c].Name() == name {
			return c, nil
		}
	}
	return NoNode, fmt.Errorf("%w: %s", ErrNotFound, name)
}

func splitPath(path string) ([]string, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrNotFound, path)
	}
	if path == "/" {
		return nil, nil
	}
	return strings.Split(path[1:], "/"), nil
}

// Resolve looks up an absolute path. "/" is the root. A file in the
// middle of the path is not found rather than not a directory.
func (self *Tree) Resolve(path string) (NodeID, error) {
	segments, err := splitPath(path)
	if err != nil {
		return NoNode, err
	}
	id := self.root
	for i, s := range segments {
		id, err = self.Child(id, s)
		if err != nil {
			return NoNode, fmt.Errorf("%w (resolving %s)", err, path)
		}
		if i < len(segments)-1 && !self.nodes[id].IsDirectory() {
			return NoNode, fmt.Errorf("%w: %s is a file (resolving %s)",
				ErrNotFound, s, path)
		}
	}
	return id, nil
}

// AddChild appends a node for d to the parent directory.
func (self *Tree) AddChild(parent NodeID, d record.Descriptor) (NodeID, error) {
	dir, err := self.directory(parent)
	if err != nil {
		return NoNode, err
	}
	if len(dir.Children) >= MaxChildren {
		return NoNode, fmt.Errorf("%w: %s", ErrDirectoryFull, self.nodes[parent].Name())
	}
	id := self.add(parent, d)
	dir.Children = append(dir.Children, id)
	mlog.Printf2("directory/tree", "t.AddChild %d %v -> %d", parent, d, id)
	return id, nil
}

// RemoveChild detaches the node at path, and everything below it,
// from the tree and returns it.
func (self *Tree) RemoveChild(path string) (*Node, error) {
	i := strings.LastIndexByte(path, '/')
	if i < 0 || path == "/" {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
	}
	parentPath := path[:i]
	if parentPath == "" {
		parentPath = "/"
	}
	parent, err := self.Resolve(parentPath)
	if err != nil {
		return nil, err
	}
	dir, err := self.directory(parent)
	if err != nil {
		return nil, err
	}
	name := path[i+1:]
	for j, c := range dir.Children {
		n := self.nodes[c]
		if n.Name() != name {
			continue
		}
		dir.Children = append(dir.Children[:j:j], dir.Children[j+1:]...)
		self.forget(c)
		mlog.Printf2("directory/tree", "t.RemoveChild %s", path)
		return n, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
}

func (self *Tree) forget(id NodeID) {
	if d, ok := self.nodes[id].Kind.(*Directory); ok {
		for _, c := range d.Children {
			self.forget(c)
		}
	}
	delete(self.nodes, id)
}

// SetDescriptor replaces the descriptor of a node; the kind may not
// change.
func (self *Tree) SetDescriptor(id NodeID, d record.Descriptor) {
	n := self.nodes[id]
	if n.IsDirectory() != d.IsDirectory() {
		log.Panicf("t.SetDescriptor: kind change %v -> %v", n.Descriptor, d)
	}
	n.Descriptor = d
}

// Path returns the absolute path of a node.
func (self *Tree) Path(id NodeID) string {
	if id == self.root {
		return "/"
	}
	var parts []string
	for id != self.root {
		n := self.nodes[id]
		parts = append([]string{n.Name()}, parts...)
		id = n.Parent
	}
	return "/" + strings.Join(parts, "/")
}

// Walk calls fn for every node, depth first, parents before
// children. Returning an error stops the walk.
func (self *Tree) Walk(fn func(n *Node) error) error {
	return self.WalkFrom(self.root, fn)
}

// WalkFrom is Walk restricted to the subtree rooted at id.
func (self *Tree) WalkFrom(id NodeID, fn func(n *Node) error) error {
	if self.nodes[id] == nil {
		return fmt.Errorf("%w: node %d", ErrNotFound, id)
	}
	return self.walk(id, fn)
}

func (self *Tree) walk(id NodeID, fn func(n *Node) error) error {
	n := self.nodes[id]
	if err := fn(n); err != nil {
		return err
	}
	if d, ok := n.Kind.(*Directory); ok {
		for _, c := range d.Children {
			if err := self.walk(c, fn); err != nil {
				return err
			}
		}
	}
	return nil
}
