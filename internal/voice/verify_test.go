package voice

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/example/chatterbox-serve/internal/api"
)

func TestVerifyReferencePath(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ref.wav"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	resolved, err := VerifyReferencePath(dir, "ref.wav")
	if err != nil {
		t.Fatalf("VerifyReferencePath error: %v", err)
	}
	if resolved != filepath.Join(dir, "ref.wav") {
		t.Errorf("resolved = %q", resolved)
	}
}

func TestVerifyReferencePath_Rejections(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ref.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		ref  string
	}{
		{"empty", ""},
		{"absolute", "/etc/passwd"},
		{"traversal", "../../etc/passwd.wav"},
		{"bad extension", "ref.txt"},
		{"missing file", "ghost.wav"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyReferencePath(dir, tt.ref)
			if err == nil {
				t.Fatal("expected error")
			}
			if api.KindOf(err) != api.KindValidation {
				t.Errorf("kind = %q; want validation_error", api.KindOf(err))
			}
		})
	}
}
