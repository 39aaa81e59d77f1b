package oops

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

var SampleErrorValue = errors.New("some error occurred that you should handle")

type SampleErrorType struct {
	Message string
}

func (s SampleErrorType) Error() string {
	return s.Message
}

func init() {
	zerolog.ErrorStackMarshaler = ZerologStackMarshaler
}

func TestNew(t *testing.T) {
	t.Run("errors.Is", func(t *testing.T) {
		err := New(SampleErrorValue, "test error")
		if !errors.Is(err, SampleErrorValue) {
			t.Fatal("error did not appear to wrap the sample value")
		}
	})
	t.Run("errors.As", func(t *testing.T) {
		err := New(SampleErrorType{Message: "some fancy error type has occurred"}, "test error")
		var sErr SampleErrorType
		if !errors.As(err, &sErr) {
			t.Fatal("error did not appear to wrap the sample error type")
		}
	})
}

func TestErrorMessage(t *testing.T) {
	t.Run("without wrapped error", func(t *testing.T) {
		err := New(nil, "statement %d is broken", 3)
		if err.Error() != "statement 3 is broken" {
			t.Fatalf("unexpected message: %q", err.Error())
		}
	})
	t.Run("with wrapped error", func(t *testing.T) {
		err := New(SampleErrorValue, "failed")
		if err.Error() != "failed: "+SampleErrorValue.Error() {
			t.Fatalf("unexpected message: %q", err.Error())
		}
	})
}

func TestStackStartsAtCaller(t *testing.T) {
	err := New(nil, "boom").(*Error)
	if len(err.Stack) == 0 {
		t.Fatal("expected a captured stack")
	}
	if fn := err.Stack[0].Function; fn != "github.com/vanishedwanderer/grabbler/src/oops.TestStackStartsAtCaller" {
		t.Fatalf("expected stack to start at the test function, got %s", fn)
	}
}
