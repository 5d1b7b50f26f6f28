// Package grovedberr defines the error taxonomy surfaced at GroveDB's
// boundary. Errors are distinguished by Kind rather than by Go type so
// callers can use one switch instead of a chain of type assertions.
package grovedberr

import "fmt"

// Kind identifies the category of a GroveDB error.
type Kind int

const (
	// KindUnknown is the zero value and should never be returned.
	KindUnknown Kind = iota

	// KindPathNotFound means an intermediate subtree in a path does not exist.
	KindPathNotFound
	// KindPathKeyNotFound means the path resolves but the final key is absent.
	KindPathKeyNotFound
	// KindCorruptedPath means a path could not be interpreted at all (e.g.
	// a non-tree element appears where a subtree was expected).
	KindCorruptedPath
	// KindCorruptedReferencePathNotFound means a reference's resolved target
	// path does not exist, distinct from an ordinary not-found.
	KindCorruptedReferencePathNotFound
	// KindCyclicReference means reference resolution revisited a qualified
	// path already on the current resolution chain.
	KindCyclicReference
	// KindReferenceLimitExceeded means resolution exceeded MAX_REFERENCE_HOPS.
	KindReferenceLimitExceeded
	// KindInvalidBatchOperation covers missing intermediate subtrees, type
	// mismatches, and duplicate keys within one batch.
	KindInvalidBatchOperation
	// KindDeletingNonEmptyTree means a delete targeted a non-empty subtree
	// without allow_deleting_non_empty_trees.
	KindDeletingNonEmptyTree
	// KindInvalidProof covers shape errors, hash mismatches, duplicate
	// positions, overlapping sets, or an ancestor node appearing as a sibling.
	KindInvalidProof
	// KindProofRootMismatch means a proof verified internally but its root
	// does not equal the expected database root.
	KindProofRootMismatch
	// KindStorageError wraps a failure from the underlying Storage.
	KindStorageError
	// KindOverflow marks arithmetic overflow in aggregate (sum/count) data.
	KindOverflow
	// KindNotSupported marks an operation unsupported for the given element
	// or tree-type combination.
	KindNotSupported
	// KindCorruptedCodeExecution marks an internal invariant violation and
	// must never be silently ignored.
	KindCorruptedCodeExecution
)

var kindNames = map[Kind]string{
	KindUnknown:                         "Unknown",
	KindPathNotFound:                    "PathNotFound",
	KindPathKeyNotFound:                 "PathKeyNotFound",
	KindCorruptedPath:                   "CorruptedPath",
	KindCorruptedReferencePathNotFound:  "CorruptedReferencePathNotFound",
	KindCyclicReference:                 "CyclicReference",
	KindReferenceLimitExceeded:          "ReferenceLimitExceeded",
	KindInvalidBatchOperation:           "InvalidBatchOperation",
	KindDeletingNonEmptyTree:            "DeletingNonEmptyTree",
	KindInvalidProof:                    "InvalidProof",
	KindProofRootMismatch:               "ProofRootMismatch",
	KindStorageError:                    "StorageError",
	KindOverflow:                        "Overflow",
	KindNotSupported:                    "NotSupported",
	KindCorruptedCodeExecution:          "CorruptedCodeExecution",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Error is the concrete error type returned across GroveDB's boundary.
type Error struct {
	Kind Kind
	Msg  string
	// Cause is an optional wrapped lower-level error (typically a storage
	// driver error), preserved for %w-style unwrapping and diagnostics.
	Cause error
}

// New constructs an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind that wraps cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap allows errors.Is/errors.As to see through to Cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target shares this error's Kind, so callers can write
// errors.Is(err, grovedberr.New(grovedberr.KindPathNotFound, "")) style
// checks, though KindOf is the more idiomatic accessor.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// KindOf extracts the Kind from err, returning KindUnknown if err is not
// (or does not wrap) a *Error.
func KindOf(err error) Kind {
	var gerr *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			gerr = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if gerr == nil {
		return KindUnknown
	}
	return gerr.Kind
}

// Convenience constructors for the most frequently raised kinds.

func PathNotFound(format string, args ...any) *Error {
	return New(KindPathNotFound, format, args...)
}

func PathKeyNotFound(format string, args ...any) *Error {
	return New(KindPathKeyNotFound, format, args...)
}

func CorruptedPath(format string, args ...any) *Error {
	return New(KindCorruptedPath, format, args...)
}

func CorruptedReferencePathNotFound(format string, args ...any) *Error {
	return New(KindCorruptedReferencePathNotFound, format, args...)
}

func CyclicReference(format string, args ...any) *Error {
	return New(KindCyclicReference, format, args...)
}

func ReferenceLimitExceeded(format string, args ...any) *Error {
	return New(KindReferenceLimitExceeded, format, args...)
}

func InvalidBatchOperation(format string, args ...any) *Error {
	return New(KindInvalidBatchOperation, format, args...)
}

func DeletingNonEmptyTree(format string, args ...any) *Error {
	return New(KindDeletingNonEmptyTree, format, args...)
}

func InvalidProof(format string, args ...any) *Error {
	return New(KindInvalidProof, format, args...)
}

func ProofRootMismatch(format string, args ...any) *Error {
	return New(KindProofRootMismatch, format, args...)
}

func StorageError(cause error, format string, args ...any) *Error {
	return Wrap(KindStorageError, cause, format, args...)
}

func Overflow(format string, args ...any) *Error {
	return New(KindOverflow, format, args...)
}

func NotSupported(format string, args ...any) *Error {
	return New(KindNotSupported, format, args...)
}

func CorruptedCodeExecution(format string, args ...any) *Error {
	return New(KindCorruptedCodeExecution, format, args...)
}
