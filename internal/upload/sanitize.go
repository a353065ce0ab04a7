package upload

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrPathOutsideRoot indicates a sanitized path resolved outside the upload
// root. The sanitizer makes this unreachable by construction, so hitting it
// is a defect, not a user error.
var ErrPathOutsideRoot = errors.New("resolved path escapes upload root")

// SanitizeFilename turns an untrusted client filename into a bare on-disk
// name: directory components are stripped, NUL bytes removed, anything
// outside [A-Za-z0-9._-] replaced with '_', and a random 8-char prefix added
// so repeated uploads of the same name never collide.
func SanitizeFilename(filename string) (string, error) {
	if filename == "" {
		return "", &ValidationError{Rule: RuleFilename, Detail: "filename is required"}
	}

	// Clients on any platform may send either separator; normalize both to
	// '/' so Base strips every directory component.
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	name = strings.ReplaceAll(name, "\x00", "")

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name = b.String()

	if name == "" || name == "." || name == ".." {
		return "", &ValidationError{Rule: RuleFilename, Detail: "filename is invalid after sanitization"}
	}

	prefix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return prefix + "_" + name, nil
}

// ResolveWithin joins name onto root and verifies the result, after symlink
// resolution, still lives under root. It returns the absolute joined path.
func ResolveWithin(root, name string) (string, error) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving upload root: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(rootAbs); err == nil {
		rootAbs = resolved
	}

	joined := filepath.Join(rootAbs, name)

	// The file itself does not exist yet; resolve the parent directory and
	// re-join so a symlinked component cannot slip the path outside root.
	parent := filepath.Dir(joined)
	if resolved, err := filepath.EvalSymlinks(parent); err == nil {
		joined = filepath.Join(resolved, filepath.Base(joined))
	}

	rel, err := filepath.Rel(rootAbs, joined)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathOutsideRoot, name)
	}

	return joined, nil
}
