// Package upload persists batches of client supplied files into a site
// directory, optionally mirroring every stored file to object storage.
package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/filebrowse/internal/logger"
	"github.com/marmos91/filebrowse/pkg/files"
)

// Kind is the content kind of an uploaded file.
type Kind int

const (
	// KindUnsupported is any type tag the writer does not know how to store.
	KindUnsupported Kind = iota

	// KindText is UTF-8 text written verbatim.
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	default:
		return "unsupported"
	}
}

// ParseKind maps a type tag to a Kind, case-insensitively.
func ParseKind(tag string) Kind {
	switch strings.ToLower(tag) {
	case "text":
		return KindText
	default:
		return KindUnsupported
	}
}

// File is one entry of an upload request.
type File struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

// FileResult is the outcome for one uploaded file.
type FileResult struct {
	Name     string `json:"name"`
	HasError bool   `json:"hasError"`
	Message  string `json:"message,omitempty"`

	// Err is the typed failure behind Message, for callers that need the code.
	Err error `json:"-"`
}

// Result is the outcome of a whole batch.
type Result struct {
	Files     []FileResult `json:"files"`
	HasErrors bool         `json:"hasErrors"`
}

// Target names where a batch is written.
type Target struct {
	// Site is the configured site receiving the batch. Only used for the
	// mirror key and logging.
	Site string

	// Dir is the absolute directory to write into. It must already exist.
	Dir string

	// RemotePath is the client supplied directory, used to build mirror keys.
	RemotePath string
}

// Writer stores upload batches.
//
// Thread Safety: Safe for concurrent use if the Mirror is.
type Writer struct {
	mirror Mirror
}

// NewWriter creates a Writer. mirror may be nil.
func NewWriter(mirror Mirror) *Writer {
	return &Writer{mirror: mirror}
}

// WriteBatch writes every file of batch into target.Dir.
//
// Files are processed independently and in order: a failure is recorded
// on that file's result and the next file is still attempted. Each file is
// written to a temporary name in the target directory and renamed into
// place, so a reader never sees a partial file.
func (w *Writer) WriteBatch(ctx context.Context, target Target, batch []File) *Result {
	result := &Result{Files: make([]FileResult, 0, len(batch))}

	for _, f := range batch {
		fr := FileResult{Name: f.Name}
		if err := w.writeOne(ctx, target, f); err != nil {
			fr.HasError = true
			fr.Message = err.Error()
			fr.Err = err
			result.HasErrors = true
		}
		result.Files = append(result.Files, fr)
	}

	return result
}

func (w *Writer) writeOne(ctx context.Context, target Target, f File) error {
	if err := ctx.Err(); err != nil {
		return files.NewError(files.ErrFileWriteFailure, "upload cancelled", f.Name, err)
	}

	switch ParseKind(f.Type) {
	case KindText:
		dest, err := destination(target.Dir, f.Name)
		if err != nil {
			return err
		}
		if err := writeAtomic(dest, []byte(f.Content)); err != nil {
			return files.NewError(files.ErrFileWriteFailure, "cannot write file", f.Name, err)
		}
		w.mirrorFile(ctx, target, f)
		return nil
	default:
		return files.NewError(files.ErrUnsupportedFileType,
			fmt.Sprintf("file type [%s] is unknown, file was not processed", f.Type), "", nil)
	}
}

func (w *Writer) mirrorFile(ctx context.Context, target Target, f File) {
	if w.mirror == nil {
		return
	}
	key := MirrorKey(target.Site, target.RemotePath, f.Name)
	if err := w.mirror.Put(ctx, key, []byte(f.Content)); err != nil {
		logger.Warn("Mirror upload failed: site=%s key=%s: %v", target.Site, key, err)
		return
	}
	logger.Debug("Mirrored upload: site=%s key=%s", target.Site, key)
}

// destination validates name as a plain file name and joins it onto dir.
func destination(dir, name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return "", files.NewError(files.ErrFileWriteFailure, "invalid file name", name, nil)
	}
	return filepath.Join(dir, name), nil
}

func writeAtomic(dest string, data []byte) error {
	dir := filepath.Dir(dest)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+"-*.upload")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, dest)
}
