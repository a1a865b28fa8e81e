package loader

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"stock-lookup/models"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"
)

// ErrCatalogUnavailable is returned (wrapped) when any catalog source could
// not be read. A partial catalog is never returned.
var ErrCatalogUnavailable = errors.New("catalog unavailable")

// minFields is symbol, name, market. Anything after the third field is ignored.
const minFields = 3

// S3Config configures access to s3:// catalog sources. Empty fields fall back
// to the default AWS credential chain and region.
type S3Config struct {
	Region         string
	Endpoint       string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
}

// Loader fetches and parses catalog sources.
type Loader struct {
	httpClient *http.Client
	s3cfg      S3Config
	logger     *slog.Logger

	s3Once   sync.Once
	s3Client *s3.Client
	s3Err    error
}

type Option func(*Loader)

func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.httpClient = c }
}

func WithS3Config(cfg S3Config) Option {
	return func(l *Loader) { l.s3cfg = cfg }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

func New(opts ...Option) *Loader {
	l := &Loader{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads every source in parallel and concatenates the parsed rows in
// source order. If one source fails the whole load fails.
func Load(ctx context.Context, sources []string, opts ...Option) (models.Catalog, error) {
	return New(opts...).Load(ctx, sources)
}

func (l *Loader) Load(ctx context.Context, sources []string) (models.Catalog, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no sources configured", ErrCatalogUnavailable)
	}

	parts := make([]models.Catalog, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			rows, err := l.loadSource(ctx, src)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrCatalogUnavailable, src, err)
			}
			parts[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, p := range parts {
		total += len(p)
	}
	catalog := make(models.Catalog, 0, total)
	for _, p := range parts {
		catalog = append(catalog, p...)
	}
	l.logger.Info("catalog loaded", "sources", len(sources), "securities", len(catalog))
	return catalog, nil
}

func (l *Loader) loadSource(ctx context.Context, src string) (models.Catalog, error) {
	start := time.Now()
	rc, err := l.open(ctx, src)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	rows, dropped, err := parse(rc)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("catalog source parsed",
		"source", src,
		"rows", len(rows),
		"dropped", dropped,
		"duration", time.Since(start),
	)
	return rows, nil
}

// ParseCatalog parses one comma-separated source. The first line is a
// header and is discarded. Each later line is parsed on its own; lines with
// fewer than three fields are skipped without error.
func ParseCatalog(r io.Reader) (models.Catalog, error) {
	rows, _, err := parse(r)
	return rows, err
}

// maxLineSize bounds a single catalog line.
const maxLineSize = 1 << 20

func parse(r io.Reader) (models.Catalog, int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		rows    models.Catalog
		dropped int
		header  = true
	)
	for scanner.Scan() {
		line := stripCR(scanner.Text())
		if header {
			header = false
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		record, ok := splitLine(line)
		if !ok || len(record) < minFields {
			dropped++
			continue
		}
		rows = append(rows, models.Security{
			Symbol: strings.TrimSpace(record[0]),
			Name:   strings.TrimSpace(record[1]),
			Market: models.Market(strings.TrimSpace(record[2])).Normalize(),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, dropped, fmt.Errorf("read catalog: %w", err)
	}
	return rows, dropped, nil
}

// splitLine parses a single line. Its reader never sees the next line, so
// an unbalanced quote costs only this row.
func splitLine(line string) ([]string, bool) {
	reader := csv.NewReader(strings.NewReader(line))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	record, err := reader.Read()
	if err != nil {
		return nil, false
	}
	return record, true
}

func stripCR(s string) string {
	return strings.TrimRight(s, "\r")
}
