package inject

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/siphon/backend/internal/project"
)

// Connection rejection reasons. These are logged and the connection is
// closed; they are never sent to the remote peer. Anything else coming out
// of Validate is a store failure and propagates to the caller.
var (
	ErrInvalidProjectName = errors.New("connection with invalid project name")
	ErrMalformedEncoding  = errors.New("connection with invalid base64 encoded project name")
	ErrUnknownProject     = errors.New("connection to nonexistent project")
)

// IsRejection reports whether err is a routine connection rejection rather
// than an unexpected failure.
func IsRejection(err error) bool {
	return errors.Is(err, ErrInvalidProjectName) ||
		errors.Is(err, ErrMalformedEncoding) ||
		errors.Is(err, ErrUnknownProject)
}

// debugMarker prefixes the encoded project identifier when the client
// requests the debug payload variant.
const debugMarker = '$'

// SessionDescriptor is the immutable result of validating one connection.
type SessionDescriptor struct {
	Project *project.Project
	ID      int64
	Debug   bool
}

// Validator resolves connection targets against the project store and
// mints session ids unique for the process lifetime.
type Validator struct {
	store  project.Store
	nextID atomic.Int64
}

func NewValidator(store project.Store) *Validator {
	v := &Validator{store: store}
	// Seed from the clock so ids stay distinct across quick restarts.
	v.nextID.Store(time.Now().UnixMilli())
	return v
}

// Validate extracts the trailing path segment of target, decodes it as a
// base64 project name (optionally prefixed with the debug marker), and
// resolves it in the store.
func (v *Validator) Validate(ctx context.Context, target string) (*SessionDescriptor, error) {
	seg := target
	if i := strings.LastIndex(seg, "/"); i >= 0 {
		seg = seg[i+1:]
	}

	debug := false
	if len(seg) > 0 && seg[0] == debugMarker {
		seg = seg[1:]
		debug = true
	}

	if seg == "" {
		return nil, ErrInvalidProjectName
	}

	name, err := base64.StdEncoding.DecodeString(seg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEncoding, err)
	}

	p, err := v.store.FindByName(ctx, string(name))
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			return nil, fmt.Errorf("%w %q", ErrUnknownProject, string(name))
		}
		return nil, err
	}

	return &SessionDescriptor{
		Project: p,
		ID:      v.nextID.Add(1),
		Debug:   debug,
	}, nil
}
