// Package decoders implements the seven AMM/CLMM layout decoders.
package decoders

import (
	"encoding/binary"
	"math/big"

	"github.com/mr-tron/base58"
)

// ErrShortBuffer is returned by a decoder when the input is shorter than its
// declared minimum length. Decoders must never panic on short input.
type ErrShortBuffer struct {
	Layout   string
	Got      int
	Required int
}

func (e *ErrShortBuffer) Error() string {
	return e.Layout + ": short buffer"
}

// errZeroReserves signals a decoded pool with no liquidity; callers should
// mark the price result unavailable rather than divide by zero.
type errZeroReservesT struct{ layout string }

func (e *errZeroReservesT) Error() string { return e.layout + ": zero reserves" }

func errZeroReserves(layout string) error { return &errZeroReservesT{layout: layout} }

func readU16(b []byte, off int) uint16 { return binary.LittleEndian.Uint16(b[off : off+2]) }
func readU32(b []byte, off int) uint32 { return binary.LittleEndian.Uint32(b[off : off+4]) }
func readU64(b []byte, off int) uint64 { return binary.LittleEndian.Uint64(b[off : off+8]) }
func readI32(b []byte, off int) int32  { return int32(readU32(b, off)) }
func readI64(b []byte, off int) int64  { return int64(readU64(b, off)) }

// readU128 returns the raw 16 little-endian bytes at off, interpreted as an
// unsigned 128-bit integer via math/big for sqrt-price math.
func readU128(b []byte, off int) *big.Int {
	le := make([]byte, 16)
	copy(le, b[off:off+16])
	be := make([]byte, 16)
	for i := range le {
		be[15-i] = le[i]
	}
	return new(big.Int).SetBytes(be)
}

// readPubkey base58-encodes a 32-byte account key slice.
func readPubkey(b []byte, off int) string {
	return base58.Encode(b[off : off+32])
}

// isZeroPubkey reports whether the 32 bytes at off are all zero, the
// convention for an absent optional pubkey field.
func isZeroPubkey(b []byte, off int) bool {
	for _, v := range b[off : off+32] {
		if v != 0 {
			return false
		}
	}
	return true
}
