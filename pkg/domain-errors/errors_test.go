package dErrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIs(t *testing.T) {
	err := New(CodeNotFound, "candidato não encontrado")
	if !Is(err, CodeNotFound) {
		t.Fatalf("expected Is to match CodeNotFound")
	}
	if Is(err, CodeBadRequest) {
		t.Fatalf("expected Is not to match CodeBadRequest")
	}

	wrapped := fmt.Errorf("handler: %w", err)
	if !Is(wrapped, CodeNotFound) {
		t.Fatalf("expected Is to match through wrapping")
	}

	if Is(errors.New("plain"), CodeNotFound) {
		t.Fatalf("plain errors must not match any code")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeInternal, "failed to load record")
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be reachable via errors.Is")
	}
	if CodeOf(err) != CodeInternal {
		t.Fatalf("expected CodeInternal, got %s", CodeOf(err))
	}
}

func TestIssuesRoundTrip(t *testing.T) {
	issues := []string{"Imagem muito escura. Tire a foto com mais iluminação."}
	err := WithIssues(CodeValidationFailed, "imagem rejeitada", issues)

	got := IssuesOf(fmt.Errorf("upload: %w", err))
	if len(got) != 1 || got[0] != issues[0] {
		t.Fatalf("expected issues to survive wrapping, got %v", got)
	}
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeBadRequest:       http.StatusBadRequest,
		CodeValidationFailed: http.StatusBadRequest,
		CodeInvalidState:     http.StatusBadRequest,
		CodeUnauthorized:     http.StatusUnauthorized,
		CodeForbidden:        http.StatusForbidden,
		CodeNotFound:         http.StatusNotFound,
		CodeConflict:         http.StatusConflict,
		CodeUnavailable:      http.StatusServiceUnavailable,
		CodeInternal:         http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := ToHTTPStatus(code); got != want {
			t.Errorf("ToHTTPStatus(%s) = %d, want %d", code, got, want)
		}
	}
}
