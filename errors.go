package ctm

import (
	"fmt"
	"strings"
)

// ResourceNotFoundError is returned when a locator cannot resolve a name.
type ResourceNotFoundError struct {
	Name  string
	Cause error
}

func (e *ResourceNotFoundError) Error() string {
	msg := fmt.Sprintf("unable to locate '%s'", e.Name)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ResourceNotFoundError) Unwrap() error {
	return e.Cause
}

// MissingAttributeError is returned when a required array is absent from a source.
type MissingAttributeError struct {
	Attribute string
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("missing required attribute %s", e.Attribute)
}

// MeshError reports a violated structural invariant of a ContainerMesh.
type MeshError struct {
	Field  string
	Reason string
}

func (e *MeshError) Error() string {
	return fmt.Sprintf("invalid mesh %s: %s", e.Field, e.Reason)
}

func meshError(field, format string, args ...interface{}) *MeshError {
	return &MeshError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// CodecError wraps every failure raised while encoding or decoding container bytes.
type CodecError struct {
	Op     string
	Reason string
	Cause  error
}

func (e *CodecError) Error() string {
	var b strings.Builder
	b.WriteString("ctm ")
	if e.Op != "" {
		b.WriteString(e.Op)
	} else {
		b.WriteString("codec")
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *CodecError) Unwrap() error {
	return e.Cause
}

func decodeError(reason string, cause error) *CodecError {
	return &CodecError{Op: "decode", Reason: reason, Cause: cause}
}

func encodeError(reason string, cause error) *CodecError {
	return &CodecError{Op: "encode", Reason: reason, Cause: cause}
}

// ImportError wraps any failure between opening a source and building the engine mesh.
type ImportError struct {
	Name  string
	Cause error
}

func (e *ImportError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("import failed: %v", e.Cause)
	}
	return fmt.Sprintf("import of '%s' failed: %v", e.Name, e.Cause)
}

func (e *ImportError) Unwrap() error {
	return e.Cause
}

// NullSourceError is returned when a nil source or mesh is handed to the importer.
type NullSourceError struct {
	What string
}

func (e *NullSourceError) Error() string {
	if e.What == "" {
		return "unable to load null resource"
	}
	return "unable to load null " + e.What
}
