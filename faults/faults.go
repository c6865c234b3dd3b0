package faults

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Fault is a structured failure record. It extends the standard error
// interface with a code, category, and retry hint so that observers
// (event subscribers, archives, monitors) can act on failures without
// parsing message strings.
type Fault struct {
	code      Code
	category  Category
	message   string
	cause     error
	taskID    string
	kind      string
	retryable *bool // nil means use the category default
	timestamp time.Time
}

var (
	_ error            = (*Fault)(nil)
	_ json.Marshaler   = (*Fault)(nil)
	_ json.Unmarshaler = (*Fault)(nil)
)

// Error returns the failure message.
func (f *Fault) Error() string {
	if f.cause != nil {
		return fmt.Sprintf("%s: %v", f.message, f.cause)
	}
	return f.message
}

// Code returns the failure code.
func (f *Fault) Code() Code {
	return f.code
}

// Category returns the failure category.
func (f *Fault) Category() Category {
	return f.category
}

// Retryable returns whether the failed operation may succeed on retry.
func (f *Fault) Retryable() bool {
	if f.retryable != nil {
		return *f.retryable
	}
	return f.category.IsRetryable()
}

// TaskID returns the related task ID, if set.
func (f *Fault) TaskID() string {
	return f.taskID
}

// Kind returns the related task kind, if set.
func (f *Fault) Kind() string {
	return f.kind
}

// Timestamp returns when the failure occurred.
func (f *Fault) Timestamp() time.Time {
	return f.timestamp
}

// Unwrap returns the underlying cause.
func (f *Fault) Unwrap() error {
	return f.cause
}

// faultJSON is the wire representation of a Fault.
type faultJSON struct {
	Code      Code     `json:"code"`
	Category  Category `json:"category"`
	Message   string   `json:"message"`
	Cause     string   `json:"cause,omitempty"`
	TaskID    string   `json:"task_id,omitempty"`
	Kind      string   `json:"kind,omitempty"`
	Retryable bool     `json:"retryable"`
	Timestamp string   `json:"timestamp,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (f *Fault) MarshalJSON() ([]byte, error) {
	j := faultJSON{
		Code:      f.code,
		Category:  f.category,
		Message:   f.message,
		TaskID:    f.taskID,
		Kind:      f.kind,
		Retryable: f.Retryable(),
	}
	if f.cause != nil {
		j.Cause = f.cause.Error()
	}
	if !f.timestamp.IsZero() {
		j.Timestamp = f.timestamp.Format(time.RFC3339Nano)
	}
	return json.Marshal(j)
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Fault) UnmarshalJSON(data []byte) error {
	var j faultJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	f.code = j.Code
	f.category = j.Category
	f.message = j.Message
	f.taskID = j.TaskID
	f.kind = j.Kind
	r := j.Retryable
	f.retryable = &r
	if j.Cause != "" {
		f.cause = errors.New(j.Cause)
	}
	if j.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339Nano, j.Timestamp); err == nil {
			f.timestamp = t
		}
	}
	return nil
}

// Option configures a Fault.
type Option func(*Fault)

// WithCause sets the underlying cause.
func WithCause(cause error) Option {
	return func(f *Fault) {
		f.cause = cause
	}
}

// WithTaskID sets the related task ID.
func WithTaskID(id string) Option {
	return func(f *Fault) {
		f.taskID = id
	}
}

// WithKind sets the related task kind.
func WithKind(kind string) Option {
	return func(f *Fault) {
		f.kind = kind
	}
}

// WithRetryable explicitly overrides the category's retry hint.
func WithRetryable(retryable bool) Option {
	return func(f *Fault) {
		f.retryable = &retryable
	}
}

// WithCategory overrides the code's default category.
func WithCategory(cat Category) Option {
	return func(f *Fault) {
		f.category = cat
	}
}

// New creates a Fault with the given code and message.
func New(code Code, message string, opts ...Option) *Fault {
	f := &Fault{
		code:      code,
		category:  code.DefaultCategory(),
		message:   message,
		timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Newf creates a Fault with a formatted message.
func Newf(code Code, format string, args ...any) *Fault {
	return New(code, fmt.Sprintf(format, args...))
}

// FromCode creates a Fault with the code's default description.
func FromCode(code Code, opts ...Option) *Fault {
	return New(code, code.Description(), opts...)
}

// Wrap wraps an error while preserving fault properties if err is
// already a Fault. Returns nil if err is nil.
func Wrap(err error, message string, opts ...Option) *Fault {
	if err == nil {
		return nil
	}

	var fault *Fault
	if errors.As(err, &fault) {
		wrapped := &Fault{
			code:      fault.code,
			category:  fault.category,
			message:   message,
			cause:     err,
			taskID:    fault.taskID,
			kind:      fault.kind,
			retryable: fault.retryable,
			timestamp: time.Now(),
		}
		for _, opt := range opts {
			opt(wrapped)
		}
		return wrapped
	}

	opts = append(opts, WithCause(err))
	return New(CodeInternal, message, opts...)
}

// Processing creates a processing fault from a strategy error.
func Processing(taskID, kind string, cause error) *Fault {
	return New(CodeProcessing, CodeProcessing.Description(),
		WithTaskID(taskID), WithKind(kind), WithCause(cause))
}

// UnknownStrategy creates a fault for an unregistered task kind.
func UnknownStrategy(taskID, kind string) *Fault {
	return Newf(CodeUnknownStrategy, "no strategy registered for kind %q", kind).
		withIdentity(taskID, kind)
}

// ForcedShutdown creates a fault for a task abandoned at pool stop.
func ForcedShutdown(taskID, kind string) *Fault {
	return FromCode(CodeForcedShutdown, WithTaskID(taskID), WithKind(kind))
}

func (f *Fault) withIdentity(taskID, kind string) *Fault {
	f.taskID = taskID
	f.kind = kind
	return f
}

// IsCode reports whether err is or wraps a Fault with the given code.
func IsCode(err error, code Code) bool {
	var fault *Fault
	if errors.As(err, &fault) {
		return fault.code == code
	}
	return false
}

// GetCode extracts the code from err, or CodeInternal if err is not a Fault.
func GetCode(err error) Code {
	var fault *Fault
	if errors.As(err, &fault) {
		return fault.code
	}
	return CodeInternal
}

// IsRetryable reports whether err is a Fault that may succeed on retry.
// Non-fault errors are treated as not retryable.
func IsRetryable(err error) bool {
	var fault *Fault
	if errors.As(err, &fault) {
		return fault.Retryable()
	}
	return false
}
