package writer

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/tsawler/pagenum/model"
	"github.com/tsawler/pagenum/observability"
	"github.com/tsawler/pagenum/pdferr"
	"github.com/tsawler/pagenum/reader"
)

// Options configures a Writer
type Options struct {
	// Logger receives debug messages for each phase
	Logger observability.Logger

	// FileMode is the permission of newly created outputs (default 0644)
	FileMode fs.FileMode
}

func defaultOptions() Options {
	return Options{
		Logger:   observability.NopLogger{},
		FileMode: 0o644,
	}
}

// Writer writes snapshots into PDF files. It holds no per-call state, so
// one Writer may serve concurrent writes.
type Writer struct {
	opts Options
}

// New creates a writer. A nil opts uses the defaults.
func New(opts *Options) *Writer {
	o := defaultOptions()
	if opts != nil {
		o.Logger = observability.OrNop(opts.Logger)
		if opts.FileMode != 0 {
			o.FileMode = opts.FileMode
		}
	}
	return &Writer{opts: o}
}

// Write copies input to output with the labels, outline and crop box of
// snap applied. A nil snap.Outline keeps the input's outline; a nil
// snap.CropBox keeps the page boxes. Without overwrite an existing output
// is an error. The context is checked between phases; cancellation yields
// an error for which pdferr.Message returns "Interrupted.".
func (w *Writer) Write(ctx context.Context, input, output string, overwrite bool, snap *model.Snapshot) error {
	log := w.opts.Logger.With(observability.String("input", input), observability.String("output", output))

	if err := checkContext(ctx); err != nil {
		return err
	}

	log.Debug("reading")
	data, err := os.ReadFile(input)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return pdferr.Wrap(pdferr.CodeNotFound, "input missing", err).WithPath(input)
		}
		return pdferr.Wrap(pdferr.CodeIO, "cannot read input", err).WithPath(input)
	}

	r, err := reader.OpenBytes(data)
	if err != nil {
		return pdferr.Wrap(pdferr.CodeMalformed, "cannot parse PDF", err).WithPath(input)
	}
	defer r.Close()
	if r.IsEncrypted() {
		return pdferr.New(pdferr.CodeEncrypted, "document is encrypted").WithPath(input)
	}

	if err := checkContext(ctx); err != nil {
		return err
	}

	log.Debug("building update")
	upd, err := newUpdate(r)
	if err != nil {
		return err
	}
	if err := upd.apply(snap); err != nil {
		return err
	}

	if err := checkContext(ctx); err != nil {
		return err
	}

	var tail bytes.Buffer
	if len(data) > 0 && data[len(data)-1] != '\n' && data[len(data)-1] != '\r' {
		tail.WriteByte('\n')
	}
	if err := upd.serialize(&tail, int64(len(data))); err != nil {
		return pdferr.Wrap(pdferr.CodeIO, "cannot serialize update", err)
	}

	if err := checkContext(ctx); err != nil {
		return err
	}

	log.Debug("saving", observability.Int("objects", len(upd.objects)), observability.Int("bytes", tail.Len()))
	return w.writeFile(output, overwrite, data, tail.Bytes())
}

// writeFile creates output and writes the original bytes followed by the
// update. A partially written file is removed.
func (w *Writer) writeFile(output string, overwrite bool, original, update []byte) error {
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(output, flags, w.opts.FileMode)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return pdferr.Wrap(pdferr.CodeAlreadyExists, "output exists", err).WithPath(output)
		}
		return pdferr.Wrap(pdferr.CodeIO, "cannot create output", err).WithPath(output)
	}

	_, err = f.Write(original)
	if err == nil {
		_, err = f.Write(update)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(output)
		return pdferr.Wrap(pdferr.CodeIO, "cannot write output", err).WithPath(output)
	}
	return nil
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return pdferr.Wrap(pdferr.CodeInterrupted, "save interrupted", err)
	}
	return nil
}
