package transport

import (
	"errors"
	"testing"
)

func TestErrorsAreDistinguishable(t *testing.T) {
	var err error = WrongEpochError{ServerEpoch: 9}

	var wrongEpoch WrongEpochError
	if !errors.As(err, &wrongEpoch) {
		t.Fatalf("expected WrongEpochError, got %T", err)
	}
	if wrongEpoch.ServerEpoch != 9 {
		t.Errorf("expected server epoch 9, got %d", wrongEpoch.ServerEpoch)
	}

	var timeoutErr error = TimeoutError{}
	var asTimeout TimeoutError
	if !errors.As(timeoutErr, &asTimeout) {
		t.Fatalf("expected TimeoutError, got %T", timeoutErr)
	}

	inner := errors.New("connection reset")
	transportErr := TransportError{Err: inner}
	if !errors.Is(transportErr, inner) {
		t.Errorf("expected TransportError to unwrap to its cause")
	}
}
