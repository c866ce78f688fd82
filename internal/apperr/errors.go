// Package apperr defines the error taxonomy shared by every pipeline stage.
//
// An *Error carries a Kind (what went wrong) and a Stage (where it went wrong) so
// callers can tell "no data to search" apart from "search backend unreachable".
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindInvalidArgument    Kind = "invalid_argument"
	KindTokenLimitExceeded Kind = "token_limit_exceeded"
	KindDimensionMismatch  Kind = "dimension_mismatch"
	KindCollectionNotFound Kind = "collection_not_found"
	KindModelNotFound      Kind = "model_not_found"
	KindNotFound           Kind = "not_found"
	KindProvider           Kind = "provider_error"
	KindNotConnected       Kind = "not_connected"
	KindUnknown            Kind = "unknown"
)

// Stage identifies the pipeline step that produced an error.
type Stage string

const (
	StageNone     Stage = ""
	StageChunk    Stage = "chunk"
	StageEmbed    Stage = "embed"
	StageStore    Stage = "store"
	StageSearch   Stage = "search"
	StageRerank   Stage = "rerank"
	StageGenerate Stage = "generate"
)

// Sentinels for errors.Is. Matching is by Kind only; they are never returned.
var (
	ErrInvalidArgument    = &Error{Kind: KindInvalidArgument}
	ErrTokenLimitExceeded = &Error{Kind: KindTokenLimitExceeded}
	ErrDimensionMismatch  = &Error{Kind: KindDimensionMismatch}
	ErrCollectionNotFound = &Error{Kind: KindCollectionNotFound}
	ErrModelNotFound      = &Error{Kind: KindModelNotFound}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrProvider           = &Error{Kind: KindProvider}
	ErrNotConnected       = &Error{Kind: KindNotConnected}
)

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Stage   Stage
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	prefix := string(e.Kind)
	if e.Stage != StageNone {
		prefix = string(e.Stage) + ": " + prefix
	}
	if e.Op != "" {
		prefix = prefix + " (" + e.Op + ")"
	}
	if msg == "" {
		return prefix
	}
	return prefix + ": " + msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind. A target with an
// empty Kind never matches.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Kind == "" {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an error of the given kind with a formatted message.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. A nil err returns nil. If err is already an *Error its
// kind and stage are kept and op is only filled in when empty.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		if ae.Op == "" {
			ae.Op = op
		}
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Provider wraps a backend or network failure as KindProvider.
func Provider(op string, err error) error {
	return Wrap(KindProvider, op, err)
}

// InStage tags err with stage unless a stage is already recorded. Errors that
// are not *Error are classified as KindUnknown.
func InStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		if ae.Stage == StageNone {
			ae.Stage = stage
		}
		return err
	}
	return &Error{Kind: KindUnknown, Stage: stage, Err: err}
}

// KindOf returns the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// StageOf returns the Stage recorded on err, or StageNone.
func StageOf(err error) Stage {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Stage
	}
	return StageNone
}
