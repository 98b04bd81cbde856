package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tsawler/pagenum/model"
	"github.com/tsawler/pagenum/observability"
	"github.com/tsawler/pagenum/pdferr"
	"github.com/tsawler/pagenum/reader"
)

// Options configures a Loader.
type Options struct {
	// CacheTTL is how long a successful read is remembered. A file is
	// re-read when its size or modification time changes. Negative
	// disables the cache; zero means the default of five minutes.
	CacheTTL time.Duration

	// Logger receives debug and warning messages
	Logger observability.Logger
}

func defaultOptions() Options {
	return Options{
		CacheTTL: 5 * time.Minute,
		Logger:   observability.NopLogger{},
	}
}

// Result is the outcome of one read. Snapshot is always set; after a
// failed read its label table is empty. The snapshot is frozen, so results
// can be shared.
type Result struct {
	Path      string
	Snapshot  *model.Snapshot
	PageCount int

	Succeeded    bool
	ErrorMessage string
	Err          error

	OutlineSucceeded    bool
	OutlineErrorMessage string
}

// Loader reads documents, caching successful results.
type Loader struct {
	opts  Options
	cache *cache.Cache
}

// New creates a loader. A nil opts uses the defaults.
func New(opts *Options) *Loader {
	o := defaultOptions()
	if opts != nil {
		if opts.CacheTTL != 0 {
			o.CacheTTL = opts.CacheTTL
		}
		o.Logger = observability.OrNop(opts.Logger)
	}
	l := &Loader{opts: o}
	if o.CacheTTL > 0 {
		l.cache = cache.New(o.CacheTTL, 2*o.CacheTTL)
	}
	return l
}

// Load reads the labels and outline of the file at path.
func (l *Loader) Load(path string) *Result {
	log := l.opts.Logger.With(observability.String("path", path))

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return failed(path, pdferr.Wrap(pdferr.CodeNotFound, "input missing", err).WithPath(path))
		}
		return failed(path, pdferr.Wrap(pdferr.CodeIO, "cannot stat input", err).WithPath(path))
	}

	key := cacheKey(path, info)
	if l.cache != nil {
		if cached, ok := l.cache.Get(key); ok {
			log.Debug("loader cache hit")
			res := *cached.(*Result)
			return &res
		}
	}

	res := l.read(path, log)
	if res.Succeeded && l.cache != nil {
		l.cache.Set(key, res, cache.DefaultExpiration)
	}
	out := *res
	return &out
}

// Forget drops every cached result for path.
func (l *Loader) Forget(path string) {
	if l.cache == nil {
		return
	}
	abs, _ := filepath.Abs(path)
	for key := range l.cache.Items() {
		if strings.HasPrefix(key, abs+"|") {
			l.cache.Delete(key)
		}
	}
}

func cacheKey(path string, info fs.FileInfo) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return fmt.Sprintf("%s|%d|%d", abs, info.Size(), info.ModTime().UnixNano())
}

func failed(path string, err error) *Result {
	return &Result{
		Path:         path,
		Snapshot:     model.NewSnapshot(model.NewLabelTable(), nil, nil),
		ErrorMessage: pdferr.Message(err),
		Err:          err,
	}
}

func (l *Loader) read(path string, log observability.Logger) *Result {
	r, err := reader.Open(path)
	if err != nil {
		log.Warn("cannot parse input", observability.Err(err))
		return failed(path, pdferr.Wrap(pdferr.CodeMalformed, "cannot parse PDF", err).WithPath(path))
	}
	defer r.Close()

	if r.IsEncrypted() {
		return failed(path, pdferr.New(pdferr.CodeEncrypted, "document is encrypted").WithPath(path))
	}

	catalog, err := r.Catalog()
	if err != nil {
		return failed(path, pdferr.Wrap(pdferr.CodeMalformed, "cannot read catalog", err).WithPath(path))
	}
	tree, err := r.PageTree()
	if err != nil {
		return failed(path, pdferr.Wrap(pdferr.CodeMalformed, "cannot read page tree", err).WithPath(path))
	}
	count, err := tree.Count()
	if err != nil {
		return failed(path, pdferr.Wrap(pdferr.CodeMalformed, "cannot read page tree", err).WithPath(path))
	}

	labels, err := ReadLabels(r, catalog)
	if err != nil {
		return failed(path, pdferr.Wrap(pdferr.CodeMalformed, "cannot read page labels", err).WithPath(path))
	}

	res := &Result{
		Path:             path,
		PageCount:        count,
		Succeeded:        true,
		OutlineSucceeded: true,
	}
	outline, err := ReadOutline(r, catalog, tree)
	if err != nil {
		log.Warn("outline not readable", observability.Err(err))
		outline = nil
		res.OutlineSucceeded = false
		res.OutlineErrorMessage = pdferr.Message(err)
	}
	res.Snapshot = model.NewSnapshot(labels, outline, nil)

	log.Debug("document read",
		observability.Int("pages", count),
		observability.Int("ranges", labels.Len()),
		observability.Bool("outline", res.OutlineSucceeded))
	return res
}
