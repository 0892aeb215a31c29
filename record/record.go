/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Mar 19 13:12:40 2018 mstenber
 * Last modified: Thu Mar 22 09:41:16 2018 mstenber
 * Edit time:     84 min
 *
 */

// record converts between descriptors and the fixed 8-byte directory
// records (and 64-byte directory blocks) stored on disk.
package record

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/fingon/go-fatfs/fat"
)

const (
	NameSize   = 3
	TypeSize   = 2
	RecordSize = NameSize + TypeSize + 3

	SlotsPerBlock = fat.BlockSize / RecordSize

	// EmptySlot as the first byte of a record marks the slot free;
	// the rest of the record is stale.
	EmptySlot byte = '$'

	// EndOfFile terminates file content within its final block.
	EndOfFile byte = 0xff
)

const (
	attributeOffset  = NameSize + TypeSize
	firstBlockOffset = attributeOffset + 1
	lengthOffset     = firstBlockOffset + 1
)

var ErrInvalidRecord = errors.New("invalid record")

type Attribute uint8

const (
	ReadOnly Attribute = 1 << iota
	System
	ReadWrite
	Directory
)

func (self Attribute) ReadOnly() bool  { return self&ReadOnly != 0 }
func (self Attribute) System() bool    { return self&System != 0 }
func (self Attribute) ReadWrite() bool { return self&ReadWrite != 0 }
func (self Attribute) Directory() bool { return self&Directory != 0 }

func (self Attribute) String() string {
	var sb strings.Builder
	for _, f := range []struct {
		a Attribute
		c byte
	}{{Directory, 'd'}, {ReadWrite, 'w'}, {System, 's'}, {ReadOnly, 'r'}} {
		if self&f.a != 0 {
			sb.WriteByte(f.c)
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// NewAttribute returns the attribute of a freshly created file or
// directory.
func NewAttribute(system, directory bool) Attribute {
	a := ReadWrite
	if system {
		a |= System
	}
	if directory {
		a |= Directory
	}
	return a
}

// Descriptor is the structured form of a directory record. Length is
// the number of blocks in the chain, not a byte count.
type Descriptor struct {
	Name       string
	Type       string
	Attribute  Attribute
	FirstBlock int
	Length     int
}

func (self Descriptor) IsDirectory() bool {
	return self.Attribute.Directory()
}

// DisplayName is the name path segments are matched against.
func (self Descriptor) DisplayName() string {
	if self.IsDirectory() || strings.TrimSpace(self.Type) == "" {
		return self.Name
	}
	return self.Name + "." + self.Type
}

func (self Descriptor) String() string {
	return fmt.Sprintf("%s [%v @%d #%d]", self.DisplayName(), self.Attribute,
		self.FirstBlock, self.Length)
}

func putField(b []byte, s string, what string) error {
	if len(s) > len(b) {
		return fmt.Errorf("%w: %s %q longer than %d", ErrInvalidRecord, what, s, len(b))
	}
	copy(b, s)
	return nil
}

func putByte(b []byte, v int, what string) error {
	if v < 0 || v > 255 {
		return fmt.Errorf("%w: %s %d out of range", ErrInvalidRecord, what, v)
	}
	b[0] = byte(v)
	return nil
}

// Encode produces the RecordSize byte on-disk form. Name and type are
// NUL padded.
func Encode(d Descriptor) ([]byte, error) {
	b := make([]byte, RecordSize)
	if d.Name != "" && d.Name[0] == EmptySlot {
		return nil, fmt.Errorf("%w: name %q starts with empty marker", ErrInvalidRecord, d.Name)
	}
	if err := putField(b[:NameSize], d.Name, "name"); err != nil {
		return nil, err
	}
	if err := putField(b[NameSize:attributeOffset], d.Type, "type"); err != nil {
		return nil, err
	}
	b[attributeOffset] = byte(d.Attribute)
	if err := putByte(b[firstBlockOffset:], d.FirstBlock, "first block"); err != nil {
		return nil, err
	}
	if err := putByte(b[lengthOffset:], d.Length, "length"); err != nil {
		return nil, err
	}
	return b, nil
}

// Decode is the inverse of Encode; trailing NUL padding is dropped.
func Decode(b []byte) (d Descriptor, err error) {
	if len(b) != RecordSize {
		err = fmt.Errorf("%w: %d bytes", ErrInvalidRecord, len(b))
		return
	}
	if IsEmptySlot(b) {
		err = fmt.Errorf("%w: empty slot", ErrInvalidRecord)
		return
	}
	d.Name = string(bytes.TrimRight(b[:NameSize], "\x00"))
	d.Type = string(bytes.TrimRight(b[NameSize:attributeOffset], "\x00"))
	d.Attribute = Attribute(b[attributeOffset])
	d.FirstBlock = int(b[firstBlockOffset])
	d.Length = int(b[lengthOffset])
	return
}

func IsEmptySlot(b []byte) bool {
	return len(b) > 0 && b[0] == EmptySlot
}

// SplitFileName splits "abc.tx" into ("abc", "tx"). A name without a
// dot has no type.
func SplitFileName(name string) (string, string) {
	i := strings.IndexByte(name, '.')
	if i < 0 {
		return name, ""
	}
	return name[:i], name[i+1:]
}
