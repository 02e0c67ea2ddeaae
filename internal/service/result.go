package service

import "net/http"

// Status is the coarse outcome carried by every Result.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Result is the uniform outcome of every record operation. Operations never
// return store errors directly; they classify them into a status code here.
type Result[T any] struct {
	Status     Status `json:"status"`
	Data       *T     `json:"data,omitempty"`
	Message    string `json:"message,omitempty"`
	StatusCode int    `json:"statusCode"`
}

// OK reports whether the operation succeeded.
func (r Result[T]) OK() bool {
	return r.Status == StatusSuccess
}

// Value returns the payload or the zero value when there is none.
func (r Result[T]) Value() T {
	var zero T
	if r.Data == nil {
		return zero
	}
	return *r.Data
}

func Success[T any](code int, data T) Result[T] {
	return Result[T]{Status: StatusSuccess, Data: &data, StatusCode: code}
}

// SuccessEmpty is a success without payload, used by delete.
func SuccessEmpty[T any](code int) Result[T] {
	return Result[T]{Status: StatusSuccess, StatusCode: code}
}

func Failed[T any](code int, message string) Result[T] {
	return Result[T]{Status: StatusFailed, Message: message, StatusCode: code}
}

// FailedList is a failure that still carries an empty list so callers can range over it.
func FailedList[T any](code int, message string) Result[[]T] {
	empty := []T{}
	return Result[[]T]{Status: StatusFailed, Data: &empty, Message: message, StatusCode: code}
}

func notFound[T any]() Result[T] {
	return Failed[T](http.StatusNotFound, "Not Found")
}
