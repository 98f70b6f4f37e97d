// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package ignite

import "fmt"

// ErrorKind classifies a marshalling failure for fast dispatch without
// string inspection. The seven kinds below are exhaustive: the core never
// surfaces an error outside this taxonomy.
type ErrorKind uint8

const (
	// ErrKindOK indicates no error occurred.
	ErrKindOK ErrorKind = iota
	// ErrKindUnsupportedPlatform: the host lacks the low-level memory
	// primitives a Marshaller needs. Raised at construction only.
	ErrKindUnsupportedPlatform
	// ErrKindNotSerializable: write of a type that does not formally
	// declare the serializable capability while RequireSerializable is set.
	ErrKindNotSerializable
	// ErrKindClassNotFound: the ClassResolver could not resolve a type
	// id/name during read.
	ErrKindClassNotFound
	// ErrKindSchemaMismatch: the wire checksum does not match the
	// descriptor's current checksum. Like ClassNotFound it means "this
	// node cannot consume this blob", but it is reported as its own kind.
	ErrKindSchemaMismatch
	// ErrKindFieldNotFound: ReadField invoked for a name absent from the
	// footer.
	ErrKindFieldNotFound
	// ErrKindIO: propagated verbatim from the underlying sink/source.
	ErrKindIO
	// ErrKindProtocolViolation: malformed tag, truncated payload, or a
	// handle to an unwritten position. Fatal, no recovery.
	ErrKindProtocolViolation
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindOK:
		return "ok"
	case ErrKindUnsupportedPlatform:
		return "unsupported-platform"
	case ErrKindNotSerializable:
		return "not-serializable"
	case ErrKindClassNotFound:
		return "class-not-found"
	case ErrKindSchemaMismatch:
		return "schema-mismatch"
	case ErrKindFieldNotFound:
		return "field-not-found"
	case ErrKindIO:
		return "io-failure"
	case ErrKindProtocolViolation:
		return "protocol-violation"
	default:
		return "unknown"
	}
}

// Error is the structured error value every public operation returns.
// It carries enough structured detail to format a message lazily, so the
// hot path never pays for fmt.Sprintf on the success path.
type Error struct {
	kind    ErrorKind
	message string

	// ErrKindSchemaMismatch
	typeName     string
	actualSum    uint16
	expectedSum  uint16

	// ErrKindClassNotFound
	typeID uint32

	// ErrKindFieldNotFound
	fieldName string

	// ErrKindProtocolViolation / ErrKindIO
	offset int
}

// Ok reports whether e represents success.
func (e Error) Ok() bool { return e.kind == ErrKindOK }

// Kind returns the error's taxonomy kind for dispatch without string
// comparison.
func (e Error) Kind() ErrorKind { return e.kind }

// Error implements the standard error interface.
func (e Error) Error() string {
	if e.message != "" {
		return e.message
	}
	switch e.kind {
	case ErrKindOK:
		return ""
	case ErrKindSchemaMismatch:
		return fmt.Sprintf("class version differs across nodes: %s checksum %04x on wire, %04x locally",
			e.typeName, e.actualSum, e.expectedSum)
	case ErrKindClassNotFound:
		return fmt.Sprintf("class not found for type id %d (peer class may need loading)", e.typeID)
	case ErrKindFieldNotFound:
		return fmt.Sprintf("field %q not present in footer", e.fieldName)
	case ErrKindProtocolViolation:
		return fmt.Sprintf("protocol violation at offset %d", e.offset)
	default:
		return fmt.Sprintf("ignite: %s", e.kind)
	}
}

func unsupportedPlatformError(msg string) Error {
	return Error{kind: ErrKindUnsupportedPlatform, message: msg}
}

func notSerializableError(typeName string) Error {
	return Error{kind: ErrKindNotSerializable,
		message: fmt.Sprintf("type %s does not declare the serializable capability", typeName)}
}

func classNotFoundError(typeID uint32) Error {
	return Error{kind: ErrKindClassNotFound, typeID: typeID}
}

func classNotFoundByNameError(name string) Error {
	return Error{kind: ErrKindClassNotFound,
		message: fmt.Sprintf("class not found: %s (peer class may need loading)", name)}
}

func schemaMismatchError(typeName string, actual, expected uint16) Error {
	return Error{kind: ErrKindSchemaMismatch, typeName: typeName, actualSum: actual, expectedSum: expected}
}

func fieldNotFoundError(name string) Error {
	return Error{kind: ErrKindFieldNotFound, fieldName: name}
}

func ioError(err error) Error {
	if err == nil {
		return Error{kind: ErrKindOK}
	}
	return Error{kind: ErrKindIO, message: err.Error()}
}

func protocolViolationError(offset int, msg string) Error {
	return Error{kind: ErrKindProtocolViolation, offset: offset, message: msg}
}

func protocolViolationErrorf(offset int, format string, args ...any) Error {
	return Error{kind: ErrKindProtocolViolation, offset: offset, message: fmt.Sprintf(format, args...)}
}

// asIgniteError unwraps err to an Error if it already is one, otherwise
// wraps it as an I/O failure.
func asIgniteError(err error) Error {
	if err == nil {
		return Error{kind: ErrKindOK}
	}
	if e, ok := err.(Error); ok {
		return e
	}
	return ioError(err)
}
