package clob

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsTransientClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", &APIError{Status: 429}, true},
		{"server error", &APIError{Status: 503}, true},
		{"bad request", &APIError{Status: 400}, false},
		{"unauthorized", &APIError{Status: 401}, false},
		{"rejection", &RejectionError{Msg: "insufficient balance"}, false},
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped api error", fmt.Errorf("submit: %w", &APIError{Status: 500}), true},
		{"plain error", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := IsTransient(tc.err); got != tc.want {
			t.Errorf("%s: IsTransient = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestIsRejection(t *testing.T) {
	err := fmt.Errorf("submit: %w", &RejectionError{Msg: "market closed"})
	if !IsRejection(err) {
		t.Error("wrapped rejection not detected")
	}
	if IsRejection(&APIError{Status: 500}) {
		t.Error("api error misclassified as rejection")
	}
}
