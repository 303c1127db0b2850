package voice

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/chatterbox-serve/internal/api"
)

// audioExts is the allowlist of reference-audio file extensions.
var audioExts = map[string]bool{
	".wav": true, ".mp3": true, ".m4a": true, ".ogg": true,
	".flac": true, ".webm": true, ".aac": true, ".opus": true,
}

// VerifyReferencePath resolves a reference-audio path relative to baseDir
// and validates it: the resolved path must stay inside baseDir, carry a
// supported audio extension, and exist on disk. Absolute inputs and
// traversal via ".." are rejected.
func VerifyReferencePath(baseDir, ref string) (string, error) {
	if ref == "" {
		return "", api.Validationf("voice", "empty reference audio path")
	}
	if filepath.IsAbs(ref) {
		return "", api.Validationf("voice", "reference audio path must be relative")
	}

	base, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("resolve base dir: %w", err)
	}

	resolved := filepath.Clean(filepath.Join(base, ref))
	if resolved != base && !strings.HasPrefix(resolved, base+string(filepath.Separator)) {
		return "", api.Validationf("voice", "reference audio path escapes the prompts directory")
	}

	if !audioExts[strings.ToLower(filepath.Ext(resolved))] {
		return "", api.Validationf("voice", "unsupported audio format %q", filepath.Ext(resolved))
	}

	if _, err := os.Stat(resolved); err != nil {
		return "", api.Validationf("voice", "reference audio not found: %s", ref)
	}

	return resolved, nil
}
