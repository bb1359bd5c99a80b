package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestEveryCodeHasMetadata(t *testing.T) {
	codes := []Code{
		CodeValidation, CodeUnauthorized, CodeForbidden, CodeNotFound, CodeConflict,
		CodeIdempotency, CodeRateLimit, CodeInternal, CodeDependency, CodePartialFailure,
	}
	for _, code := range codes {
		t.Run(string(code), func(t *testing.T) {
			meta, ok := metadataByCode[code]
			if !ok {
				t.Fatalf("no metadata registered for %s", code)
			}
			if meta.PublicMessage == "" {
				t.Fatal("public message must be set")
			}
			server := meta.HTTPStatus >= http.StatusInternalServerError
			if server && meta.ExposeMessage {
				t.Fatalf("server code %s must not expose raw messages", code)
			}
			if !server && (meta.HTTPStatus < 400 || !meta.ExposeMessage) {
				t.Fatalf("client code %s should be a 4xx with an exposed message, got %+v", code, meta)
			}
		})
	}
}

func TestStatusMapping(t *testing.T) {
	want := map[Code]int{
		CodeValidation:  http.StatusBadRequest,
		CodeIdempotency: http.StatusConflict,
		CodeRateLimit:   http.StatusTooManyRequests,
		CodeDependency:  http.StatusServiceUnavailable,
		"NOT_A_CODE":    http.StatusInternalServerError,
	}
	for code, status := range want {
		if got := MetadataFor(code).HTTPStatus; got != status {
			t.Errorf("%s: expected %d, got %d", code, status, got)
		}
	}
}

func TestWrapKeepsCauseAndCode(t *testing.T) {
	cause := stdErrors.New("connection reset")
	err := Wrap(CodeDependency, cause, "loading chat").WithDetails(map[string]any{"chat_id": "c1"})

	if !stdErrors.Is(err, cause) {
		t.Fatal("cause should stay reachable through errors.Is")
	}
	if err.Code() != CodeDependency || err.Message() != "loading chat" {
		t.Fatalf("unexpected code/message %s %q", err.Code(), err.Message())
	}
	if details, ok := err.Details().(map[string]any); !ok || details["chat_id"] != "c1" {
		t.Fatalf("details not kept: %#v", err.Details())
	}
	if got := err.Error(); got != "DEPENDENCY_ERROR: loading chat: connection reset" {
		t.Fatalf("unexpected Error() %q", got)
	}
	if New(CodeNotFound, "gone").Details() != nil {
		t.Fatal("details default to nil")
	}
}

func TestAsFindsTypedErrorThroughWrapping(t *testing.T) {
	err := fmt.Errorf("handler: %w", New(CodeForbidden, "not your chat"))
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("expected typed forbidden error, got %v", got)
	}
	if As(stdErrors.New("plain")) != nil || As(nil) != nil {
		t.Fatal("untyped and nil errors have no typed form")
	}
}

func TestHasCodeWalksChain(t *testing.T) {
	typed := New(CodeNotFound, "user missing")
	wrapped := fmt.Errorf("remove user: %w", typed)

	if !HasCode(wrapped, CodeNotFound) {
		t.Fatalf("expected wrapped error to carry %s", CodeNotFound)
	}
	if HasCode(wrapped, CodeInternal) {
		t.Fatalf("did not expect %s", CodeInternal)
	}
	if HasCode(stdErrors.New("plain"), CodeNotFound) {
		t.Fatalf("plain errors carry no code")
	}
}

func TestNewfFormatsMessage(t *testing.T) {
	err := Newf(CodeValidation, "%s is required", "answer")
	if err.Message() != "answer is required" {
		t.Fatalf("unexpected message %q", err.Message())
	}
}

func TestClassify(t *testing.T) {
	if got := Classify(stdErrors.New("boom")); got.Code() != CodeInternal {
		t.Fatalf("untyped error should classify as internal, got %s", got.Code())
	}
	typed := New(CodeNotFound, "chat missing")
	if got := Classify(fmt.Errorf("handler: %w", typed)); got != typed {
		t.Fatal("Classify should return the typed error from the chain")
	}
	if got := Classify(nil); got.Code() != CodeInternal {
		t.Fatalf("nil should classify as internal, got %s", got.Code())
	}
}

func TestPublicMessage(t *testing.T) {
	if got := New(CodeValidation, "text is required").PublicMessage(); got != "text is required" {
		t.Fatalf("client errors expose their message, got %q", got)
	}
	if got := New(CodeInternal, "sql: no rows").PublicMessage(); got != "internal server error" {
		t.Fatalf("internal errors must not expose their message, got %q", got)
	}
	if got := New(CodeForbidden, "").PublicMessage(); got != "access denied" {
		t.Fatalf("empty message should fall back, got %q", got)
	}
}

func TestHasCodeFindsInnerCode(t *testing.T) {
	inner := New(CodeNotFound, "user missing")
	outer := Wrap(CodePartialFailure, inner, "remove user")

	if !HasCode(outer, CodePartialFailure) || !HasCode(outer, CodeNotFound) {
		t.Fatal("expected both codes to be found in the chain")
	}
}

func TestInspect(t *testing.T) {
	if diag := Inspect(nil); diag.Message != "" || diag.DB != nil {
		t.Fatalf("nil error should produce empty diagnostics, got %+v", diag)
	}

	err := Wrap(CodeDependency, stdErrors.New("dial tcp: refused"), "ping redis")
	diag := Inspect(fmt.Errorf("ready: %w", err))
	if diag.Code != CodeDependency {
		t.Fatalf("unexpected code %s", diag.Code)
	}
	if len(diag.Chain) != 3 {
		t.Fatalf("expected 3 links in chain, got %v", diag.Chain)
	}
	if diag.DB != nil {
		t.Fatal("non-database error should have no db fault")
	}
	fields := diag.Fields()
	if fields["error_code"] != CodeDependency {
		t.Fatalf("unexpected fields %v", fields)
	}
	if _, ok := fields["db_engine"]; ok {
		t.Fatal("db fields should be omitted")
	}
}
