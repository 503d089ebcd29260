package errs

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"usage", Usage("bad key %q", "a b"), 64},
		{"selection", Selection("no entry %d", 3), 2},
		{"internal", Internal(os.ErrPermission, "write state"), 70},
		{"untagged", errors.New("boom"), 70},
		{"wrapped usage", fmt.Errorf("add: %w", Usage("bad key")), 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestError_Message(t *testing.T) {
	err := Internal(os.ErrNotExist, "read %s", "history.json")
	if got := err.Error(); got != "read history.json: file does not exist" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("Internal error should unwrap to its cause")
	}

	if got := Usage("key must not be empty").Error(); got != "key must not be empty" {
		t.Errorf("Error() = %q", got)
	}
}

func TestIs(t *testing.T) {
	if !Is(Selection("x"), KindSelection) {
		t.Error("Is(selection, KindSelection) = false")
	}
	if Is(nil, KindInternal) {
		t.Error("Is(nil, KindInternal) should be false")
	}
	if Is(Usage("x"), KindSelection) {
		t.Error("Is(usage, KindSelection) should be false")
	}
}

func TestKind_String(t *testing.T) {
	if KindUsage.String() != "usage" {
		t.Errorf("KindUsage.String() = %q", KindUsage.String())
	}
	if Kind(42).String() != "kind(42)" {
		t.Errorf("Kind(42).String() = %q", Kind(42).String())
	}
}
