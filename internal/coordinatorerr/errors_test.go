package coordinatorerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindString(t *testing.T) {
	cases := []struct {
		kind Kind
		want string
	}{
		{NotFound, "not_found"},
		{InvalidArgument, "invalid_argument"},
		{Conflict, "conflict"},
		{LockTimeout, "lock_timeout"},
		{Unavailable, "unavailable"},
		{Stale, "stale"},
		{Internal, "internal"},
	}
	for _, tc := range cases {
		if got := tc.kind.String(); got != tc.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tc.kind, got, tc.want)
		}
	}
}

func TestHTTPStatusRoundTrip(t *testing.T) {
	for _, k := range []Kind{NotFound, InvalidArgument, Conflict, LockTimeout, Unavailable, Stale, Internal} {
		status := k.HTTPStatus()
		got := KindFromHTTPStatus(status, k.String())
		if got != k {
			t.Errorf("KindFromHTTPStatus(%d, %q) = %v, want %v", status, k.String(), got, k)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	if !New(LockTimeout, "x").IsRetryable() {
		t.Error("LockTimeout should be retryable")
	}
	if !New(Unavailable, "x").IsRetryable() {
		t.Error("Unavailable should be retryable")
	}
	for _, k := range []Kind{NotFound, InvalidArgument, Conflict, Stale, Internal} {
		if New(k, "x").IsRetryable() {
			t.Errorf("%v should not be retryable", k)
		}
	}
}

func TestErrorFormatting(t *testing.T) {
	err := New(NotFound, "task not found").WithTaskID("task-004")
	want := "not_found [task=task-004]: task not found"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := fmt.Errorf("rename failed")
	err := Wrap(Internal, "flush failed", cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find wrapped cause")
	}
	if errors.Unwrap(err) != cause {
		t.Error("expected Unwrap to return cause")
	}
}

func TestKindOfNonCoordinatorError(t *testing.T) {
	if got := KindOf(fmt.Errorf("plain error")); got != Internal {
		t.Errorf("KindOf(plain error) = %v, want Internal", got)
	}
	if IsRetryable(fmt.Errorf("plain error")) {
		t.Error("plain error should not be retryable")
	}
}

func TestIsMatchesSameKindOnly(t *testing.T) {
	a := New(Conflict, "cycle detected")
	b := New(Conflict, "different message")
	c := New(NotFound, "missing")

	if !errors.Is(a, b) {
		t.Error("two Conflict errors should match via errors.Is")
	}
	if errors.Is(a, c) {
		t.Error("Conflict and NotFound should not match")
	}
}
