package coll

import "encoding/binary"

// Byteorder helpers, reimplementing the small big/little-endian
// accessors the original kernel hand-rolls for on-disk structures (FAT
// directory entries, ext2 superblocks, ISO9660 records) that pkg/vfs's
// generic block-wise read/write helper needs regardless of which
// external filesystem driver is mounted. encoding/binary is the
// idiomatic stdlib home for this (see DESIGN.md).

// LEUint16/BEUint16 and friends decode from the front of buf; callers
// are responsible for ensuring buf is long enough (the original panics
// on short slices via a bounds check, which Go already does for free).

func LEUint16(buf []byte) uint16 { return binary.LittleEndian.Uint16(buf) }
func LEUint32(buf []byte) uint32 { return binary.LittleEndian.Uint32(buf) }
func LEUint64(buf []byte) uint64 { return binary.LittleEndian.Uint64(buf) }
func BEUint16(buf []byte) uint16 { return binary.BigEndian.Uint16(buf) }
func BEUint32(buf []byte) uint32 { return binary.BigEndian.Uint32(buf) }
func BEUint64(buf []byte) uint64 { return binary.BigEndian.Uint64(buf) }

func PutLEUint16(buf []byte, v uint16) { binary.LittleEndian.PutUint16(buf, v) }
func PutLEUint32(buf []byte, v uint32) { binary.LittleEndian.PutUint32(buf, v) }
func PutLEUint64(buf []byte, v uint64) { binary.LittleEndian.PutUint64(buf, v) }
func PutBEUint16(buf []byte, v uint16) { binary.BigEndian.PutUint16(buf, v) }
func PutBEUint32(buf []byte, v uint32) { binary.BigEndian.PutUint32(buf, v) }
func PutBEUint64(buf []byte, v uint64) { binary.BigEndian.PutUint64(buf, v) }
