package dts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/andrewstrauch/The-Scarab-Gauntlet-sub002/errors"
)

var (
	// Indicates a reader or writer that is nil.
	ErrNilReader = errors.New("nil reader")
	ErrNilWriter = errors.New("nil writer")
	// Indicates an LZ4 container where the decoder was told not to expect
	// one.
	ErrLZ4Disabled = errors.New("unexpected LZ4 container")
	// Indicates a material list version other than the supported one.
	ErrMaterialVersion = errors.New("unsupported material list version")
	// Indicates a mesh with more vertices or indices than the 16-bit
	// primitive representation can address.
	ErrMeshTooLarge = errors.New("mesh exceeds 65535 vertices or indices")
	// Indicates a primitive whose element range runs past the end of the
	// mesh's index array.
	ErrPrimitiveRange = errors.New("primitive range exceeds index array")
)

// VersionError indicates a format version outside the supported range. The
// exporter version occupying the high bits of the version field is masked
// off before range checking and carried here for diagnostics.
type VersionError struct {
	Version  uint32
	Exporter uint32
}

func (err VersionError) Error() string {
	return fmt.Sprintf("unsupported format version %d (exporter %d, supported %d-%d)",
		err.Version, err.Exporter, MinVersion, WriteVersion)
}

// GuardError indicates a guard sentinel mismatch, localizing stream
// corruption or format drift to the section that failed.
type GuardError struct {
	// Region names the typed region whose sentinel mismatched.
	Region string
	// Index is the ordinal of the failed guard check.
	Index int32

	Got int32
}

func (err GuardError) Error() string {
	return fmt.Sprintf("guard mismatch in %s region: check %d read %d", err.Region, err.Index, err.Got)
}

// DataError wraps an error that occurred while reading or writing byte data.
type DataError struct {
	// Offset is the byte offset where the error occurred, or -1 when
	// unknown.
	Offset int64

	Cause error
}

func (err DataError) Error() string {
	var s strings.Builder
	s.WriteString("data error")
	if err.Offset >= 0 {
		s.WriteString(" at ")
		s.Write(strconv.AppendInt(nil, err.Offset, 10))
	}
	if err.Cause != nil {
		s.WriteString(": ")
		s.WriteString(err.Cause.Error())
	}
	return s.String()
}

func (err DataError) Unwrap() error {
	return err.Cause
}

// CompressionError wraps an error from decoding an LZ4 container.
type CompressionError struct {
	Cause error
}

func (err CompressionError) Error() string {
	if err.Cause == nil {
		return "decoding LZ4 container"
	}
	return "decoding LZ4 container: " + err.Cause.Error()
}

func (err CompressionError) Unwrap() error {
	return err.Cause
}

// NodeRemapError indicates that a node name referenced by an imported
// sequence could not be resolved in the target skeleton. It is recoverable:
// the caller should skip the import, not abort.
type NodeRemapError struct {
	Name string
	// Occurrence is which duplicate of the name failed to resolve,
	// counting from zero.
	Occurrence int
}

func (err NodeRemapError) Error() string {
	if err.Occurrence > 0 {
		return fmt.Sprintf("cannot resolve node %q (occurrence %d) in target skeleton", err.Name, err.Occurrence+1)
	}
	return fmt.Sprintf("cannot resolve node %q in target skeleton", err.Name)
}
