/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Mar 23 09:40:02 2018 mstenber
 * Last modified: Fri Mar 23 10:51:44 2018 mstenber
 * Edit time:     39 min
 *
 */

package codec

import (
	"encoding/binary"
	"fmt"
	"log"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
)

type Algorithm string

const (
	Snappy Algorithm = "snappy"
	LZ4    Algorithm = "lz4"
	Zstd   Algorithm = "zstd"
)

// Algorithms lists what CompressingCodec supports.
func Algorithms() []Algorithm {
	return []Algorithm{Snappy, LZ4, Zstd}
}

const (
	plainData      byte = 0
	compressedData byte = 1
)

// CompressingCodec
//
// On-the-fly compressing Codec. If the result does not improve, the
// result is marked to be plaintext and passed as-is (at cost of 1
// byte).
type CompressingCodec struct {
	algorithm Algorithm
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
}

var _ Codec = &CompressingCodec{}

func (self CompressingCodec) Init(algorithm Algorithm) (*CompressingCodec, error) {
	self.algorithm = algorithm
	switch algorithm {
	case Snappy, LZ4:
	case Zstd:
		var err error
		self.encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			return nil, err
		}
		self.decoder, err = zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown compression algorithm %q", algorithm)
	}
	return &self, nil
}

func (self *CompressingCodec) compress(data []byte) ([]byte, error) {
	switch self.algorithm {
	case Snappy:
		return snappy.Encode(nil, data), nil
	case LZ4:
		buf := make([]byte, binary.MaxVarintLen64+lz4.CompressBlockBound(len(data)))
		h := binary.PutUvarint(buf, uint64(len(data)))
		n, err := lz4.CompressBlock(data, buf[h:], nil)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			// incompressible
			return data, nil
		}
		return buf[:h+n], nil
	case Zstd:
		return self.encoder.EncodeAll(data, nil), nil
	}
	log.Panicf("invalid algorithm %v", self.algorithm)
	return nil, nil
}

func (self *CompressingCodec) decompress(data []byte) ([]byte, error) {
	switch self.algorithm {
	case Snappy:
		return snappy.Decode(nil, data)
	case LZ4:
		size, h := binary.Uvarint(data)
		if h <= 0 {
			return nil, errors.New("lz4: invalid size header")
		}
		ret := make([]byte, size)
		n, err := lz4.UncompressBlock(data[h:], ret)
		if err != nil {
			return nil, err
		}
		return ret[:n], nil
	case Zstd:
		return self.decoder.DecodeAll(data, nil)
	}
	log.Panicf("invalid algorithm %v", self.algorithm)
	return nil, nil
}

func (self *CompressingCodec) DecodeBytes(data, additionalData []byte) (ret []byte, err error) {
	if len(data) == 0 {
		err = errors.New("missing compression header")
		return
	}
	switch data[0] {
	case plainData:
		ret = data[1:]
	case compressedData:
		ret, err = self.decompress(data[1:])
		err = errors.Wrapf(err, "%v", self.algorithm)
	default:
		err = errors.Errorf("invalid compression header %d", data[0])
	}
	return
}

func (self *CompressingCodec) EncodeBytes(data, additionalData []byte) (ret []byte, err error) {
	cd, err := self.compress(data)
	if err != nil {
		return
	}
	if len(cd) >= len(data) {
		return append([]byte{plainData}, data...), nil
	}
	return append([]byte{compressedData}, cd...), nil
}
