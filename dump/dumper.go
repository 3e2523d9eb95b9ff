package dump

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"autoria-scraper/config"
	"autoria-scraper/storage"
	"autoria-scraper/utils"
)

// ErrToolMissing is returned when pg_dump is not on PATH.
var ErrToolMissing = errors.New("pg_dump not found in system PATH")

const (
	filePrefix      = "dump_"
	timestampFormat = "2006-01-02_15-04-05"
)

// Dumper exports the database into compressed files under a directory and
// keeps only the newest ones.
type Dumper struct {
	databaseURL string
	dir         string
	format      string
	maxDumps    int
	reader      storage.ListingReader
	logger      *utils.Logger
	now         func() time.Time
}

// New creates a Dumper. reader is used by the CSV format; pg_dump talks to
// the database on its own.
func New(cfg *config.Config, reader storage.ListingReader, logger *utils.Logger) *Dumper {
	return &Dumper{
		databaseURL: cfg.DatabaseURL,
		dir:         cfg.DumpDir,
		format:      cfg.DumpFormat,
		maxDumps:    cfg.MaxDumps,
		reader:      reader,
		logger:      logger,
		now:         time.Now,
	}
}

// Dump writes one compressed dump and prunes old ones. It returns the path of
// the new file.
func (d *Dumper) Dump(ctx context.Context) (string, error) {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return "", fmt.Errorf("dump: create dir: %w", err)
	}

	format := d.format
	if format == config.DumpFormatPgDump && !isPostgres(d.databaseURL) {
		d.logger.Warn("[dump] pg_dump needs PostgreSQL, writing CSV instead")
		format = config.DumpFormatCSV
	}

	ts := d.now().Format(timestampFormat)
	var (
		path string
		err  error
	)
	switch format {
	case config.DumpFormatCSV:
		path, err = d.dumpCSV(ctx, ts)
	default:
		path, err = d.dumpPostgres(ctx, ts)
	}
	if err != nil {
		return "", err
	}
	d.logger.Info("[dump] Database dump completed successfully: %s", path)

	if _, err := d.Prune(); err != nil {
		d.logger.Error("[dump] Cleanup failed: %v", err)
	}
	return path, nil
}

func (d *Dumper) dumpPostgres(ctx context.Context, ts string) (string, error) {
	bin, err := exec.LookPath("pg_dump")
	if err != nil {
		return "", ErrToolMissing
	}

	raw := filepath.Join(d.dir, filePrefix+ts+".sql")
	d.logger.Info("[dump] Creating database dump: %s", raw)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, d.databaseURL, "-f", raw)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = os.Remove(raw)
		return "", fmt.Errorf("dump: pg_dump: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	compressed, err := compressFile(raw)
	if err != nil {
		return "", err
	}
	if err := os.Remove(raw); err != nil {
		d.logger.Warn("[dump] Could not remove %s: %v", raw, err)
	}
	return compressed, nil
}

func (d *Dumper) dumpCSV(ctx context.Context, ts string) (path string, err error) {
	listings, err := d.reader.FetchAll(ctx)
	if err != nil {
		return "", fmt.Errorf("dump: %w", err)
	}

	path = filepath.Join(d.dir, filePrefix+ts+".csv.gz")
	d.logger.Info("[dump] Writing %d listings to %s", len(listings), path)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("dump: create %q: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("dump: close %q: %w", path, cerr)
		}
		if err != nil {
			_ = os.Remove(path)
			path = ""
		}
	}()

	gz, err := gzip.NewWriterLevel(f, gzip.BestCompression)
	if err != nil {
		return "", fmt.Errorf("dump: gzip: %w", err)
	}
	w, err := storage.NewCSVWriter(gz)
	if err != nil {
		return "", err
	}
	if err := w.WriteRecords(listings); err != nil {
		return "", err
	}
	// Closes the gzip stream as well.
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("dump: finish %q: %w", path, err)
	}
	return path, nil
}

// compressFile gzips src next to itself as src+".gz".
func compressFile(src string) (string, error) {
	dst := src + ".gz"

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("dump: open %q: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("dump: create %q: %w", dst, err)
	}

	gz, err := gzip.NewWriterLevel(out, gzip.BestCompression)
	if err == nil {
		_, err = io.Copy(gz, in)
		if cerr := gz.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("dump: compress %q: %w", src, err)
	}
	return dst, nil
}

// Prune removes the oldest dump files so that at most maxDumps remain and
// returns the removed paths.
func (d *Dumper) Prune() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(d.dir, filePrefix+"*"))
	if err != nil {
		return nil, fmt.Errorf("dump: list: %w", err)
	}
	if len(matches) <= d.maxDumps {
		return nil, nil
	}

	type dumpFile struct {
		path    string
		modTime time.Time
	}
	files := make([]dumpFile, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, dumpFile{path: m, modTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})

	var removed []string
	for i := 0; i < len(files)-d.maxDumps; i++ {
		if err := os.Remove(files[i].path); err != nil {
			d.logger.Error("[dump] Error removing old dump %s: %v", files[i].path, err)
			continue
		}
		d.logger.Info("[dump] Removed old dump: %s", files[i].path)
		removed = append(removed, files[i].path)
	}
	return removed, nil
}

func isPostgres(databaseURL string) bool {
	return strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://")
}
