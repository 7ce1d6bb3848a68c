// Package envelope defines the uniform result value every tool call resolves
// to. A dispatch never answers with anything other than an Envelope: tool
// faults, timeouts, and panics are all folded into error envelopes before
// they reach the transport layer.
package envelope

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error envelope. Kinds are part of the caller-visible
// contract; messages are free-form.
type Kind string

const (
	KindNone                Kind = ""
	KindUnknownTool         Kind = "UnknownTool"
	KindInvalidArguments    Kind = "InvalidArguments"
	KindSessionUnavailable  Kind = "SessionUnavailable"
	KindSessionLaunchFailed Kind = "SessionLaunchFailed"
	KindOperationTimeout    Kind = "OperationTimeout"
	KindOperationFailed     Kind = "OperationFailed"
	KindUnexpectedFault     Kind = "UnexpectedFault"
)

// Sentinel errors for the engine's own failure modes. Tools and the
// dispatcher wrap these so KindOf can classify without string matching.
var (
	ErrUnknownTool        = errors.New("unknown tool")
	ErrInvalidArguments   = errors.New("invalid arguments")
	ErrSessionUnavailable = errors.New("session unavailable")
	ErrSessionLaunch      = errors.New("session launch failed")
)

// ContentType discriminates the members of a Content item.
type ContentType string

const (
	ContentText   ContentType = "text"
	ContentBinary ContentType = "binary"
)

// Content is a single item in an envelope's ordered payload. Text items
// carry Text; binary items carry base64 Data plus a mime tag.
type Content struct {
	Type     ContentType `json:"type"`
	Text     string      `json:"text,omitempty"`
	Data     string      `json:"data,omitempty"`
	MimeType string      `json:"mimeType,omitempty"`
}

// Envelope is the uniform success/error result of a tool call. It is
// immutable once constructed; callers must not mutate Content.
type Envelope struct {
	IsError bool      `json:"isError"`
	Content []Content `json:"content"`
}

// Text builds a success envelope with one text item.
func Text(text string) Envelope {
	return Envelope{Content: []Content{{Type: ContentText, Text: text}}}
}

// Textf builds a success envelope with one formatted text item.
func Textf(format string, args ...any) Envelope {
	return Text(fmt.Sprintf(format, args...))
}

// Binary builds a success envelope carrying an opaque payload, base64
// encoded, with its mime tag. An optional caption text item precedes it.
func Binary(caption string, mime string, payload []byte) Envelope {
	items := make([]Content, 0, 2)
	if caption != "" {
		items = append(items, Content{Type: ContentText, Text: caption})
	}
	items = append(items, Content{
		Type:     ContentBinary,
		Data:     base64.StdEncoding.EncodeToString(payload),
		MimeType: mime,
	})
	return Envelope{Content: items}
}

// Error builds an error envelope of the given kind. The kind is prefixed to
// the message so transports that only show text still surface it.
func Error(kind Kind, message string) Envelope {
	return Envelope{
		IsError: true,
		Content: []Content{{Type: ContentText, Text: string(kind) + ": " + message}},
	}
}

// Errorf is Error with formatting.
func Errorf(kind Kind, format string, args ...any) Envelope {
	return Error(kind, fmt.Sprintf(format, args...))
}

// FromError converts an error into an error envelope, classifying it with
// KindOf. Nil errors yield an UnexpectedFault envelope; callers should not
// get here with nil.
func FromError(err error) Envelope {
	if err == nil {
		return Error(KindUnexpectedFault, "no error provided")
	}
	return Error(KindOf(err), err.Error())
}

// KindOf maps an error to its envelope kind. Context deadline expiry is a
// timeout regardless of how deep it was wrapped; the engine's sentinels map
// to their dedicated kinds; everything else is the operation's own fault.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, context.DeadlineExceeded):
		return KindOperationTimeout
	case errors.Is(err, ErrUnknownTool):
		return KindUnknownTool
	case errors.Is(err, ErrInvalidArguments):
		return KindInvalidArguments
	case errors.Is(err, ErrSessionUnavailable):
		return KindSessionUnavailable
	case errors.Is(err, ErrSessionLaunch):
		return KindSessionLaunchFailed
	default:
		return KindOperationFailed
	}
}

// KindFromEnvelope recovers the kind prefix of an error envelope. Success
// envelopes and error envelopes without a recognizable prefix return
// KindNone / KindUnexpectedFault respectively.
func KindFromEnvelope(env Envelope) Kind {
	if !env.IsError {
		return KindNone
	}
	if len(env.Content) == 0 || env.Content[0].Type != ContentText {
		return KindUnexpectedFault
	}
	text := env.Content[0].Text
	idx := strings.Index(text, ":")
	if idx <= 0 {
		return KindUnexpectedFault
	}
	switch k := Kind(text[:idx]); k {
	case KindUnknownTool, KindInvalidArguments, KindSessionUnavailable,
		KindSessionLaunchFailed, KindOperationTimeout, KindOperationFailed,
		KindUnexpectedFault:
		return k
	default:
		return KindUnexpectedFault
	}
}

// Message returns the first text item of an envelope, or "".
func Message(env Envelope) string {
	for _, c := range env.Content {
		if c.Type == ContentText {
			return c.Text
		}
	}
	return ""
}
