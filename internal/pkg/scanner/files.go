package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/endorses/lexicat/internal/pkg/constants"
	"github.com/endorses/lexicat/internal/pkg/logger"
	"github.com/endorses/lexicat/internal/pkg/report"
)

// ErrTooLarge is reported for inputs above the configured size limit.
var ErrTooLarge = errors.New("input exceeds size limit")

type result struct {
	source  string
	records []report.Record
}

// ScanFiles scans paths with a pool of workers. Directories are walked and
// "-" reads standard input. Files that cannot be read or are too large are
// logged and counted in Stats but do not stop the scan. Records of one file
// are emitted together and in order; files complete in any order.
func (s *Scanner) ScanFiles(ctx context.Context, paths []string, emit EmitFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan string, s.cfg.Workers*constants.JobsPerWorker)
	results := make(chan result, s.cfg.Workers*constants.ResultsPerWorker)

	logger.Debug("Starting scan", "scan_id", s.cfg.ScanID, "workers", s.cfg.Workers, "inputs", len(paths))

	var workerWg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		workerWg.Add(1)
		go s.worker(ctx, i, jobs, results, &workerWg)
	}

	go func() {
		defer close(jobs)
		for _, path := range paths {
			if err := s.enqueue(ctx, path, jobs); err != nil {
				return
			}
		}
	}()

	go func() {
		workerWg.Wait()
		close(results)
	}()

	var emitErr error
	for res := range results {
		if emitErr != nil {
			continue
		}
		for _, rec := range res.records {
			if err := s.Emit(rec, emit); err != nil {
				emitErr = fmt.Errorf("%s: %w", res.source, err)
				cancel()
				break
			}
		}
	}

	if emitErr != nil {
		return emitErr
	}
	return ctx.Err()
}

// enqueue sends path, or every regular file below it, to jobs.
func (s *Scanner) enqueue(ctx context.Context, path string, jobs chan<- string) error {
	send := func(p string) error {
		select {
		case jobs <- p:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if path == StdinName {
		return send(path)
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		// Errors surface when the worker opens the file.
		return send(path)
	}

	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			s.stats.Errors.Add(1)
			logger.Warn("Cannot read directory entry", "path", p, "error", err)
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return send(p)
	})
}

func (s *Scanner) worker(ctx context.Context, id int, jobs <-chan string, results chan<- result, wg *sync.WaitGroup) {
	defer wg.Done()
	logger.Debug("Scan worker started", "worker_id", id)

	for path := range jobs {
		if ctx.Err() != nil {
			continue
		}

		text, err := s.readInput(path)
		switch {
		case errors.Is(err, ErrTooLarge):
			s.stats.Skipped.Add(1)
			logger.Warn("Skipping large input", "path", path, "max_size", s.cfg.MaxFileSize)
			continue
		case err != nil:
			s.stats.Errors.Add(1)
			logger.Warn("Cannot read input", "path", path, "error", err)
			continue
		}
		s.stats.Files.Add(1)

		res := result{source: path, records: s.Records(path, text)}
		select {
		case results <- res:
		case <-ctx.Done():
		}
	}
}

// readInput reads a file or stdin, refusing anything above MaxFileSize.
func (s *Scanner) readInput(path string) (string, error) {
	var r io.Reader
	if path == StdinName {
		r = s.cfg.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()

		if info, err := f.Stat(); err == nil && info.Size() > s.cfg.MaxFileSize {
			return "", ErrTooLarge
		}
		r = f
	}

	data, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxFileSize+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > s.cfg.MaxFileSize {
		return "", ErrTooLarge
	}
	return string(data), nil
}
