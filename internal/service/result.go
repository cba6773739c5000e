package service

import (
	"bytes"
	"encoding/json"
	"fmt"

	"tasktrack/internal/apierror"
)

// Result is the decoded {success, data, error} envelope: either OK holds the
// payload or Err holds the server message.
type Result[T any] struct {
	OK  T
	Err string

	failed bool
}

// Failed reports whether the envelope carried a failure.
func (r Result[T]) Failed() bool { return r.failed }

// Unwrap returns the payload or a ServerLogic error.
func (r Result[T]) Unwrap() (T, error) {
	if r.failed {
		var zero T
		return zero, apierror.ServerLogicf("%s", r.Err)
	}
	return r.OK, nil
}

// ErrInvalidStructure is returned when an auth response lacks the token or
// the user id.
var ErrInvalidStructure = apierror.ServerLogicf("invalid response structure")

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// DecodeResult parses an envelope. success=false becomes a failed Result;
// a missing or null data field is rejected, while explicit false, 0 and ""
// payloads are valid. requireData is false for operations that answer with a
// bare {success:true}.
func DecodeResult[T any](raw json.RawMessage, requireData bool) (Result[T], error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Result[T]{}, &apierror.Error{Kind: apierror.MalformedResponse, Body: string(raw), Err: err}
	}
	if env.Success == nil {
		return Result[T]{}, apierror.ServerLogicf("invalid response envelope: missing success field")
	}

	if !*env.Success {
		msg := env.Error
		if msg == "" {
			msg = "unknown server error"
		}
		return Result[T]{Err: msg, failed: true}, nil
	}

	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		if requireData {
			return Result[T]{}, apierror.ServerLogicf("empty response from server")
		}
		return Result[T]{}, nil
	}

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return Result[T]{}, apierror.ServerLogicf("invalid response data: %v", err)
	}
	return Result[T]{OK: out}, nil
}

// Unwrap decodes an envelope that must carry data and returns the payload.
func Unwrap[T any](raw json.RawMessage) (T, error) {
	res, err := DecodeResult[T](raw, true)
	if err != nil {
		var zero T
		return zero, err
	}
	return res.Unwrap()
}

// String renders the result for debug logs.
func (r Result[T]) String() string {
	if r.failed {
		return "error: " + r.Err
	}
	return fmt.Sprintf("ok: %v", r.OK)
}
