/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sun Dec 24 17:15:30 2017 mstenber
 * Last modified: Fri Mar 23 11:20:08 2018 mstenber
 * Edit time:     77 min
 *
 */

package codec

import (
	"crypto/rand"
	"fmt"
	"log"
	"testing"

	"github.com/stvp/assert"
)

const compressible = "123456789123456789123456789123456789123456789123456789123456789123456789123456789123456789123456789"

func ProdCodecOnce(text string, c Codec, t *testing.T) {
	p := []byte(text)
	enc, err := c.EncodeBytes(p, nil)
	assert.Nil(t, err)
	dec, err := c.DecodeBytes(enc, nil)
	assert.Nil(t, err)
	assert.Equal(t, string(dec), text)
}

func ProdCodec(c Codec, t *testing.T) {
	ProdCodecOnce("foo", c, t)
	ProdCodecOnce(compressible, c, t)
	ProdCodecOnce(string(make([]byte, 64)), c, t)
}

func TestEncryptingCodec(t *testing.T) {
	t.Parallel()
	p := []byte("data")
	ad := []byte("ad")

	c := EncryptingCodec{}.Init([]byte("foo"), []byte("salt"), 64)

	// 'any codec' handling
	ProdCodec(c, t)

	enc, err := c.EncodeBytes(p, nil)
	assert.Nil(t, err)

	// Ensure we can't mess around with additional data
	_, err2 := c.DecodeBytes(enc, ad)
	assert.True(t, err2 != nil)

	// Ensure same payload does not encrypt the same way
	enc2, err := c.EncodeBytes(p, nil)
	assert.Nil(t, err)
	assert.NotEqual(t, enc, enc2)

	// But it still can be decrypted
	dec, err := c.DecodeBytes(enc2, nil)
	assert.Nil(t, err)
	assert.Equal(t, p, dec)

	// Ensure we're good with additional data too
	enc3, err := c.EncodeBytes(p, ad)
	assert.Nil(t, err)
	dec, err = c.DecodeBytes(enc3, ad)
	assert.Nil(t, err)
	assert.Equal(t, p, dec)

	// Wrong password fails
	c2 := EncryptingCodec{}.Init([]byte("bar"), []byte("salt"), 64)
	_, err = c2.DecodeBytes(enc3, ad)
	assert.True(t, err != nil)
}

func TestSIVCodec(t *testing.T) {
	t.Parallel()
	p := []byte("data")
	ad := []byte("ad")
	c := SIVCodec{}.Init([]byte("foo"), []byte("salt"), 64)
	ProdCodec(c, t)

	enc, err := c.EncodeBytes(p, ad)
	assert.Nil(t, err)
	enc2, err := c.EncodeBytes(p, ad)
	assert.Nil(t, err)
	assert.Equal(t, enc, enc2)

	dec, err := c.DecodeBytes(enc, ad)
	assert.Nil(t, err)
	assert.Equal(t, dec, p)

	_, err = c.DecodeBytes(enc, []byte("other"))
	assert.True(t, err != nil)
}

func TestCompressingCodec(t *testing.T) {
	t.Parallel()
	for _, alg := range Algorithms() {
		alg := alg
		t.Run(string(alg), func(t *testing.T) {
			t.Parallel()
			c, err := CompressingCodec{}.Init(alg)
			assert.Nil(t, err)
			ProdCodec(c, t)

			p := []byte(compressible)
			enc, err := c.EncodeBytes(p, nil)
			assert.Nil(t, err)
			assert.True(t, len(enc) < len(compressible))

			// random data is stored as-is, with the header
			r := make([]byte, 64)
			rand.Read(r)
			enc, err = c.EncodeBytes(r, nil)
			assert.Nil(t, err)
			assert.Equal(t, len(enc), 65)
		})
	}
	_, err := CompressingCodec{}.Init("nope")
	assert.True(t, err != nil)

	c, _ := CompressingCodec{}.Init(Snappy)
	_, err = c.DecodeBytes([]byte{42}, nil)
	assert.True(t, err != nil)
	_, err = c.DecodeBytes(nil, nil)
	assert.True(t, err != nil)
}

func TestNopCodecChain(t *testing.T) {
	t.Parallel()
	c := &CodecChain{}
	ProdCodec(c, t)
}

func TestCodecChain(t *testing.T) {
	t.Parallel()
	c1 := EncryptingCodec{}.Init([]byte("foo"), []byte("salt"), 64)
	c2, _ := CompressingCodec{}.Init(LZ4)
	c := CodecChain{}.Init(c1, c2)
	ProdCodec(c, t)

	p := []byte(compressible)
	enc, err := c.EncodeBytes(p, nil)
	assert.Nil(t, err)
	assert.True(t, len(enc) < len(compressible))

	// decoding with only the outer codec yields the compressed form
	inner, err := c1.DecodeBytes(enc, nil)
	assert.Nil(t, err)
	assert.Equal(t, inner[0], compressedData)
}

func BenchmarkCodec(b *testing.B) {
	runEncode := func(b *testing.B, c Codec, p []byte) {
		b.SetBytes(int64(len(p)))
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			enc, err := c.EncodeBytes(p, nil)
			if err != nil || enc == nil {
				log.Panic(err)
			}
		}
	}
	runDecode := func(b *testing.B, c Codec, p []byte) {
		b.SetBytes(int64(len(p)))
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, err := c.DecodeBytes(p, nil)
			if err != nil {
				log.Panic(err)
			}
		}
	}
	add := func(c Codec, prefix string) {
		p := make([]byte, 64)
		if _, err := rand.Read(p[:32]); err != nil {
			log.Panic(err)
		}
		b.Run(fmt.Sprintf("Encode-%s", prefix), func(b *testing.B) {
			runEncode(b, c, p)
		})
		pe, _ := c.EncodeBytes(p, nil)
		b.Run(fmt.Sprintf("Decode-%s", prefix), func(b *testing.B) {
			runDecode(b, c, pe)
		})
	}
	c1 := EncryptingCodec{}.Init([]byte("foo"), []byte("salt"), 64)
	c2, _ := CompressingCodec{}.Init(LZ4)
	add(c1, "AES")
	add(c2, "LZ4")
	add(SIVCodec{}.Init([]byte("foo"), []byte("salt"), 64), "SIV")
	add(CodecChain{}.Init(c1, c2), "AES+LZ4")
}
