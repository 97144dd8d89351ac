package clawerr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", NotFound("user %q", "alice"), http.StatusNotFound},
		{"conflict", Conflict("container %s is restarting", "openclaw-bob"), http.StatusConflict},
		{"config", Config("shared_collections block missing"), http.StatusServiceUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped not found", fmt.Errorf("outer: %w", ErrNotFound), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestSentinelWrapping(t *testing.T) {
	err := NotFound("secret %q for user %q", "slack_bot_token", "alice")
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected errors.Is(err, ErrNotFound)")
	}
	want := `secret "slack_bot_token" for user "alice": not found`
	if err.Error() != want {
		t.Errorf("message: expected %q, got %q", want, err.Error())
	}
}
