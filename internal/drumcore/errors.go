package drumcore

import (
	"errors"
	"fmt"

	"github.com/ardaeden/DrumModule/internal/fat32"
	"github.com/ardaeden/DrumModule/internal/sample"
)

// Kind classifies a Core operation failure per spec.md §7.
type Kind int

const (
	Io Kind = iota
	FormatError
	NotFound
	Capacity
	BadArgument
	NoFreeCluster
)

func (k Kind) String() string {
	switch k {
	case Io:
		return "io"
	case FormatError:
		return "format_error"
	case NotFound:
		return "not_found"
	case Capacity:
		return "capacity"
	case BadArgument:
		return "bad_argument"
	case NoFreeCluster:
		return "no_free_cluster"
	default:
		return "unknown"
	}
}

// Error is the one error type Core's foreground operations return. It
// wraps an optional cause from fat32 or sample so callers can still
// errors.As/errors.Is through to the underlying failure.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("drumcore: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("drumcore: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(op string, kind Kind, cause error) *Error {
	return &Error{Op: op, Kind: kind, Err: cause}
}

// wrapFAT32 translates a fat32.Error's Kind onto drumcore's Kind space,
// preserving it as the wrapped cause. A nil error yields nil; any other
// error is wrapped with Kind Io and tagged with op.
func wrapFAT32(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var fe *fat32.Error
	if errors.As(err, &fe) {
		return newErr(op, translateFAT32Kind(fe.Kind), fe)
	}
	return newErr(op, Io, err)
}

func translateFAT32Kind(k fat32.Kind) Kind {
	switch k {
	case fat32.Io:
		return Io
	case fat32.FormatError:
		return FormatError
	case fat32.NotFound:
		return NotFound
	case fat32.Capacity:
		return Capacity
	case fat32.NoFreeCluster:
		return NoFreeCluster
	default:
		return Io
	}
}

// wrapSample translates a sample.LoadError's Kind onto drumcore's Kind
// space.
func wrapSample(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var se *sample.LoadError
	if errors.As(err, &se) {
		return newErr(op, translateSampleKind(se.Kind), se)
	}
	return newErr(op, Io, err)
}

func translateSampleKind(k sample.LoadErrorKind) Kind {
	switch k {
	case sample.Io:
		return Io
	default:
		return FormatError
	}
}
