package abi

import (
	"errors"

	"tifflin.dev/kernel/pkg/kobject"
	"tifflin.dev/kernel/pkg/vfs"
)

// Negative result codes returned to userspace (spec.md §4.11's
// register-slot ABI has no separate error channel, so a result's top
// bit doubles as its sign: values with bit 63 set are errors, encoded
// as small negative two's-complement integers the way a raw syscall
// ABI reports -errno).
const (
	codeUnknown = -(iota + 1)
	codeBadHandle
	codeBadObjectClass
	codeNoSuchMethod
	codeNotFound
	codePermissionDenied
	codeLocked
	codeAlreadyExists
	codeMalformedPath
	codeInvalidParameter
	codeTypeMismatch
	codeNonDirComponent
	codeRecursionDepthExceeded
	codeReadOnlyFilesystem
	codeInconsistentFilesystem
	codeOutOfSpace
	codeOutOfMemory
	codeTransient
	codeBlockIo
)

// errCodes maps the sentinel errors exposed by pkg/kobject and
// pkg/vfs onto the negative result codes above. Order matters: more
// specific sentinels (e.g. a wrapped BlockIoError) are checked before
// errors.Is falls through to a generic code.
var errCodes = []struct {
	err  error
	code int32
}{
	{kobject.ErrBadHandle, codeBadHandle},
	{kobject.ErrBadObjectClass, codeBadObjectClass},
	{kobject.ErrNoSuchMethod, codeNoSuchMethod},
	{vfs.ErrNotFound, codeNotFound},
	{vfs.ErrPermissionDenied, codePermissionDenied},
	{vfs.ErrLocked, codeLocked},
	{vfs.ErrAlreadyExists, codeAlreadyExists},
	{vfs.ErrMalformedPath, codeMalformedPath},
	{vfs.ErrInvalidParameter, codeInvalidParameter},
	{vfs.ErrTypeMismatch, codeTypeMismatch},
	{vfs.ErrNonDirComponent, codeNonDirComponent},
	{vfs.ErrRecursionDepthExceeded, codeRecursionDepthExceeded},
	{vfs.ErrReadOnlyFilesystem, codeReadOnlyFilesystem},
	{vfs.ErrInconsistentFilesystem, codeInconsistentFilesystem},
	{vfs.ErrOutOfSpace, codeOutOfSpace},
	{vfs.ErrOutOfMemory, codeOutOfMemory},
	{vfs.ErrTransient, codeTransient},
}

func codeFor(err error) int32 {
	var blockIo *vfs.BlockIoError
	if errors.As(err, &blockIo) {
		return codeBlockIo
	}
	for _, e := range errCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return codeUnknown
}

// EncodeResult folds a successful value or a failure into the single
// uint64 register slot a syscall returns: val unchanged when err is
// nil, otherwise a negative, top-bit-set error code.
func EncodeResult(val uint64, err error) uint64 {
	if err == nil {
		return val
	}
	return uint64(int64(codeFor(err)))
}

// IsError reports whether a returned result register encodes a
// failure (its top bit set, per two's-complement negative numbers).
func IsError(result uint64) bool { return result&(1<<63) != 0 }

// DecodeErrorCode extracts the negative error code from a result
// register for which IsError is true.
func DecodeErrorCode(result uint64) int32 { return int32(int64(result)) }
