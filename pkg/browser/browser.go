// Package browser orchestrates listing and upload requests for one site.
//
// A listing request either starts fresh from a directory or resumes a
// frozen session:
//
//	fresh:  ReadDirectory -> Criteria.Apply -> SortByModified -> page
//	        (results larger than one page are frozen in a new session)
//	resume: Store.Resolve -> page at offset
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/marmos91/filebrowse/internal/logger"
	"github.com/marmos91/filebrowse/pkg/files"
	"github.com/marmos91/filebrowse/pkg/paging"
	"github.com/marmos91/filebrowse/pkg/session"
	"github.com/marmos91/filebrowse/pkg/upload"
)

// ErrInvalidSettings is returned when request settings fail validation.
var ErrInvalidSettings = errors.New("invalid request settings")

// Listing modes reported to Metrics.
const (
	ModeFresh  = "fresh"
	ModeResume = "resume"
)

// Metrics receives per-site service events. All methods must be safe for
// concurrent use. A nil Metrics disables collection.
type Metrics interface {
	RecordListing(site, mode string, duration time.Duration, items int, err error)
	RecordSessionCreated(site string)
	RecordUpload(site, kind string, err error)
}

// Options configures a Service.
type Options struct {
	// Site is the configured site name, used for logging, metrics and
	// mirror keys.
	Site string `validate:"required"`

	// Root is the directory every remote path is resolved under.
	Root string `validate:"required"`

	// DefaultLimit is the page size when a request does not lower it.
	DefaultLimit int `validate:"gt=0"`

	// DefaultFilters is the extension filter applied when a request sets none.
	DefaultFilters string

	Sessions session.Store `validate:"required"`

	// Uploads writes PostFiles batches. Defaults to a writer without mirror.
	Uploads *upload.Writer

	Metrics Metrics
}

// Service serves listing and upload requests for one site.
//
// Thread Safety: Safe for concurrent use.
type Service struct {
	site           string
	root           string
	defaultLimit   int
	defaultFilters string
	sessions       session.Store
	uploads        *upload.Writer
	metrics        Metrics
	validate       *validator.Validate
}

// New creates a Service.
func New(opts Options) (*Service, error) {
	validate := validator.New()
	if err := validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("browser options: %w", err)
	}
	if opts.Uploads == nil {
		opts.Uploads = upload.NewWriter(nil)
	}
	return &Service{
		site:           opts.Site,
		root:           opts.Root,
		defaultLimit:   opts.DefaultLimit,
		defaultFilters: opts.DefaultFilters,
		sessions:       opts.Sessions,
		uploads:        opts.Uploads,
		metrics:        opts.Metrics,
		validate:       validate,
	}, nil
}

// Site returns the site name.
func (s *Service) Site() string {
	return s.site
}

// DefaultLimit returns the site's page size.
func (s *Service) DefaultLimit() int {
	return s.defaultLimit
}

// Sessions returns the site's session store.
func (s *Service) Sessions() session.Store {
	return s.sessions
}

// DefaultSettings returns the settings a request starts from before its
// parameters are applied.
func (s *Service) DefaultSettings() Settings {
	return Settings{
		Limit:           s.defaultLimit,
		Filters:         s.defaultFilters,
		FileNameFilters: []string{},
	}
}

// ListFiles returns one page of files.
//
// Errors:
//   - ErrInvalidSettings: settings failed validation
//   - files.ErrDirectoryUnreadable: the directory cannot be listed
//   - session.ErrSessionNotFound: the session is unknown or expired
//   - paging.ErrOffsetOutOfRange: the offset is past the frozen set
//   - files.ErrFileUnreadable: a file of the page could not be read
func (s *Service) ListFiles(ctx context.Context, settings Settings) (*PageResult, error) {
	start := time.Now()
	mode := ModeFresh
	if settings.Session != nil {
		mode = ModeResume
	}

	page, err := s.listFiles(ctx, settings)

	if s.metrics != nil {
		items := 0
		if page != nil {
			items = len(page.Files)
		}
		s.metrics.RecordListing(s.site, mode, time.Since(start), items, err)
	}
	return page, err
}

func (s *Service) listFiles(ctx context.Context, settings Settings) (*PageResult, error) {
	if err := s.validate.Struct(settings); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}

	if ref := settings.Session; ref != nil {
		return s.resume(ctx, ref, settings.Limit)
	}
	return s.fresh(ctx, settings)
}

func (s *Service) resume(ctx context.Context, ref *SessionRef, limit int) (*PageResult, error) {
	records, err := s.sessions.Resolve(ctx, ref.ID)
	if err != nil {
		return nil, err
	}

	window, err := paging.Compute(len(records), ref.Offset, limit)
	if err != nil {
		return nil, err
	}

	payloads, err := files.Materialize(records[window.Start:window.End])
	if err != nil {
		return nil, err
	}

	logger.Debug("Resumed session: site=%s session=%s window=[%d,%d) total=%d",
		s.site, ref.ID, window.Start, window.End, len(records))

	return &PageResult{
		Files:   payloads,
		HasMore: window.HasMore,
		Next:    paging.NewCursor(ref.ID, window, limit, s.defaultLimit),
	}, nil
}

func (s *Service) fresh(ctx context.Context, settings Settings) (*PageResult, error) {
	dir, err := files.ResolveDirectory(s.root, settings.RemotePath)
	if err != nil {
		return nil, err
	}

	records, err := files.ReadDirectory(dir)
	if err != nil {
		return nil, err
	}
	records = files.SortByModified(settings.Criteria().Apply(records))

	if !paging.Split(len(records), settings.Limit) {
		payloads, err := files.Materialize(records)
		if err != nil {
			return nil, err
		}
		return &PageResult{Files: payloads}, nil
	}

	id, err := s.sessions.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	window, err := paging.Compute(len(records), 0, settings.Limit)
	if err != nil {
		return nil, err
	}
	payloads, err := files.Materialize(records[window.Start:window.End])
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Freeze(ctx, id, records); err != nil {
		return nil, fmt.Errorf("freeze session %s: %w", id, err)
	}
	if s.metrics != nil {
		s.metrics.RecordSessionCreated(s.site)
	}

	logger.Debug("Created session: site=%s session=%s dir=%s total=%d limit=%d",
		s.site, id, dir, len(records), settings.Limit)

	return &PageResult{
		Files:   payloads,
		HasMore: window.HasMore,
		Next:    paging.NewCursor(id, window, settings.Limit, s.defaultLimit),
	}, nil
}

// PostFiles writes batch into the directory named by remotePath.
//
// Directory resolution failures (escape, missing directory, not a
// directory) fail the whole request with files.ErrDirectoryUnreadable;
// everything after that is reported per file in the Result.
func (s *Service) PostFiles(ctx context.Context, remotePath string, batch []upload.File) (*upload.Result, error) {
	dir, err := files.ResolveDirectory(s.root, remotePath)
	if err != nil {
		return nil, err
	}
	if err := requireDirectory(dir); err != nil {
		return nil, err
	}

	result := s.uploads.WriteBatch(ctx, upload.Target{Site: s.site, Dir: dir, RemotePath: remotePath}, batch)

	if s.metrics != nil {
		for i, fr := range result.Files {
			s.metrics.RecordUpload(s.site, upload.ParseKind(batch[i].Type).String(), fr.Err)
		}
	}
	if result.HasErrors {
		logger.Warn("Upload finished with errors: site=%s dir=%s files=%d", s.site, dir, len(batch))
	} else {
		logger.Debug("Upload finished: site=%s dir=%s files=%d", s.site, dir, len(batch))
	}
	return result, nil
}
