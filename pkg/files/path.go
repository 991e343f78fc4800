package files

import (
	"path"
	"path/filepath"
	"strings"
)

// CleanRelPath normalizes a client supplied path ("", ".", "/a/b", "a//b",
// "a\\b") into a slash separated relative path with no leading slash.
// The empty string means the root itself.
func CleanRelPath(p string) string {
	p = strings.TrimSpace(p)
	p = strings.ReplaceAll(p, "\\", "/")
	if p == "" || p == "." || p == "/" {
		return ""
	}
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if p == "." {
		return ""
	}
	return p
}

// ResolveDirectory maps remotePath onto the filesystem below root.
//
// Any ".." segment or NUL byte is rejected with ErrDirectoryUnreadable,
// so the result always lies within root.
func ResolveDirectory(root, remotePath string) (string, error) {
	if strings.ContainsRune(remotePath, 0) {
		return "", NewError(ErrDirectoryUnreadable, "invalid directory path", remotePath, nil)
	}
	for _, seg := range strings.FieldsFunc(remotePath, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return "", NewError(ErrDirectoryUnreadable, "directory path escapes site root", remotePath, nil)
		}
	}

	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", NewError(ErrDirectoryUnreadable, "invalid site root", root, err)
	}

	rel := CleanRelPath(remotePath)
	if rel == "" {
		return rootAbs, nil
	}

	abs := filepath.Clean(filepath.Join(rootAbs, filepath.FromSlash(rel)))
	if abs != rootAbs && !strings.HasPrefix(abs, rootAbs+string(filepath.Separator)) {
		return "", NewError(ErrDirectoryUnreadable, "directory path escapes site root", remotePath, nil)
	}
	return abs, nil
}
