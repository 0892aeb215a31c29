/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Mar 23 09:12:40 2018 mstenber
 * Last modified: Fri Mar 23 11:02:17 2018 mstenber
 * Edit time:     48 min
 *
 */

package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"log"

	"github.com/jacobsa/crypto/siv"
	"github.com/minio/sha256-simd"
	"github.com/pkg/errors"
	ugorji "github.com/ugorji/go/codec"
	"golang.org/x/crypto/pbkdf2"
)

var cborHandle ugorji.CborHandle

// EncryptedData is the on-disk envelope of an EncryptingCodec
// result.
type EncryptedData struct {
	Nonce         []byte `codec:"n"`
	EncryptedData []byte `codec:"d"`
}

func deriveKey(password, salt []byte, iter, size int) []byte {
	return pbkdf2.Key(password, salt, iter, size, sha256.New)
}

// EncryptingCodec
//
// AES GCM based encrypting/decrypting (+authenticating) Codec. Every
// encode uses a fresh random nonce.
type EncryptingCodec struct {
	gcm cipher.AEAD
}

var _ Codec = &EncryptingCodec{}

func (self EncryptingCodec) Init(password, salt []byte, iter int) *EncryptingCodec {
	block, err := aes.NewCipher(deriveKey(password, salt, iter, 32))
	if err != nil {
		log.Panic(err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		log.Panic(err)
	}
	self.gcm = gcm
	return &self
}

func (self *EncryptingCodec) DecodeBytes(data, additionalData []byte) (ret []byte, err error) {
	var ed EncryptedData
	err = ugorji.NewDecoderBytes(data, &cborHandle).Decode(&ed)
	if err != nil {
		err = errors.Wrap(err, "envelope")
		return
	}
	ret, err = self.gcm.Open(nil, ed.Nonce, ed.EncryptedData, additionalData)
	return
}

func (self *EncryptingCodec) EncodeBytes(data, additionalData []byte) (ret []byte, err error) {
	nonce := make([]byte, self.gcm.NonceSize())
	if _, err = rand.Read(nonce); err != nil {
		return
	}
	ed := EncryptedData{Nonce: nonce,
		EncryptedData: self.gcm.Seal(nil, nonce, data, additionalData)}
	err = ugorji.NewEncoderBytes(&ret, &cborHandle).Encode(&ed)
	return
}

// SIVCodec
//
// Deterministic AES-SIV Codec; same input (and additional data)
// always produces the same output, so rewriting an unchanged block
// does not change what is stored.
type SIVCodec struct {
	key []byte
}

var _ Codec = &SIVCodec{}

func (self SIVCodec) Init(password, salt []byte, iter int) *SIVCodec {
	self.key = deriveKey(password, salt, iter, 64)
	return &self
}

func associated(additionalData []byte) [][]byte {
	if additionalData == nil {
		return nil
	}
	return [][]byte{additionalData}
}

func (self *SIVCodec) DecodeBytes(data, additionalData []byte) (ret []byte, err error) {
	return siv.Decrypt(self.key, data, associated(additionalData))
}

func (self *SIVCodec) EncodeBytes(data, additionalData []byte) (ret []byte, err error) {
	return siv.Encrypt(nil, self.key, data, associated(additionalData))
}
