// Command pagenum inspects and edits the page labels, outline and crop box
// of PDF files.
//
// Usage:
//
//	pagenum inspect -in book.pdf
//	pagenum edit -in book.pdf -out numbered.pdf -label 0:r -label 12:D:Chapter\ :1
//	pagenum serve -in book.pdf -out numbered.pdf -addr :8080
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tsawler/pagenum"
	"github.com/tsawler/pagenum/httpapi"
	"github.com/tsawler/pagenum/observability"
	"github.com/tsawler/pagenum/outlinemd"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "inspect":
		err = runInspect(os.Args[2:])
	case "edit":
		err = runEdit(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "-h", "-help", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: pagenum <command> [flags]

commands:
  inspect   print the page labels and outline of a PDF
  edit      change labels, outline or crop box and write a new PDF
  serve     edit a PDF interactively over HTTP

Run "pagenum <command> -h" for the flags of a command.`)
}

func newLogger(verbose bool) observability.Logger {
	min := observability.LevelInfo
	if verbose {
		min = observability.LevelDebug
	}
	return observability.NewStdLogger(log.New(os.Stderr, "", log.LstdFlags), min)
}

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	in := fs.String("in", "", "Path to input PDF file")
	verbose := fs.Bool("verbose", false, "Enable verbose logging")
	fs.Parse(args)
	if *in == "" {
		return errors.New("-in flag is required")
	}

	res, err := pagenum.Open(*in).WithLogger(newLogger(*verbose)).Inspect()
	if err != nil {
		return err
	}

	fmt.Printf("File: %s\n", res.Path)
	fmt.Printf("Pages: %d\n\n", res.PageCount)
	fmt.Println("Labels:")
	for _, e := range res.Snapshot.Labels.Entries() {
		fmt.Printf("  page %-5d %s\n", e.Index+1, formatLabel(e.Range))
	}

	fmt.Println("\nOutline:")
	switch {
	case !res.OutlineSucceeded:
		fmt.Printf("  (%s)\n", res.OutlineErrorMessage)
	case res.Snapshot.Outline.IsEmpty():
		fmt.Println("  (none)")
	default:
		fmt.Print(outlinemd.Format(res.Snapshot.Outline))
	}
	return nil
}

func runEdit(args []string) error {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	var labels labelFlags
	var removals indexFlags
	in := fs.String("in", "", "Path to input PDF file")
	out := fs.String("out", "", "Path to output PDF file")
	overwrite := fs.Bool("overwrite", false, "Replace the output file if it exists")
	reset := fs.Bool("reset-labels", false, "Discard the existing labels before applying -label")
	crop := fs.String("crop", "", "Crop box x1,y1,x2,y2 applied to every page")
	outline := fs.String("outline", "", "Markdown file replacing the outline")
	timeout := fs.Duration("timeout", 2*time.Minute, "Give up writing after this long")
	verbose := fs.Bool("verbose", false, "Enable verbose logging")
	fs.Var(&labels, "label", "Label range page:style[:prefix[:start]], page is one-based (repeatable)")
	fs.Var(&removals, "remove-label", "One-based page whose label range is removed (repeatable)")
	fs.Parse(args)

	if *in == "" {
		return errors.New("-in flag is required")
	}
	if *out == "" {
		return errors.New("-out flag is required")
	}

	e := pagenum.Open(*in).To(*out).WithLogger(newLogger(*verbose))
	if *overwrite {
		e = e.Overwrite()
	}
	if *reset {
		e = e.ResetLabels()
	}
	for _, l := range labels {
		e = e.Label(l.index, l.rng)
	}
	for _, index := range removals {
		e = e.RemoveLabel(index)
	}
	if *crop != "" {
		box, err := parseRect(*crop)
		if err != nil {
			return err
		}
		e = e.CropBox(box)
	}
	if *outline != "" {
		src, err := os.ReadFile(*outline)
		if err != nil {
			return err
		}
		e = e.OutlineMarkdown(src)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := e.Save(ctx); err != nil {
		return err
	}
	log.Printf("Wrote %s", *out)
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	in := fs.String("in", "", "Path to input PDF file")
	out := fs.String("out", "", "Path to output PDF file")
	overwrite := fs.Bool("overwrite", false, "Replace the output file if it exists")
	addr := fs.String("addr", "127.0.0.1:8080", "Listen address")
	rate := fs.Int("rate", 60, "Mutating requests per minute and client, negative for no limit")
	verbose := fs.Bool("verbose", false, "Enable verbose logging")
	fs.Parse(args)

	logger := newLogger(*verbose)
	s := pagenum.NewSession(&pagenum.SessionOptions{
		OutputPath: *out,
		Overwrite:  *overwrite,
		Logger:     logger,
	})
	if *in != "" {
		if ev := s.Open(*in); !ev.Result.Succeeded {
			return fmt.Errorf("cannot read %s: %s", *in, ev.Result.ErrorMessage)
		}
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           httpapi.New(s, &httpapi.Options{RateLimit: *rate, Logger: logger}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		stop()
	}()

	// The main goroutine owns the session from here on
	s.Loop().Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	s.Loop().Drain()
	if err := s.Close(shutdownCtx); err != nil {
		return err
	}

	select {
	case err := <-serveErr:
		return err
	default:
		return nil
	}
}
