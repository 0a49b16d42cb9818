package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/events"
	"github.com/xenking/storefront/internal/storage/postgres"
	"github.com/xenking/storefront/internal/wire"
)

func main() {
	var (
		databaseURL  string
		productsFile string
		dryRun       bool
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file, optionally gzip-compressed (.gz)")
	flag.BoolVar(&dryRun, "dry-run", false, "validate the file without writing")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" && !dryRun {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, dryRun); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string, dryRun bool) error {
	inputs, err := readProducts(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products")
	}
	slog.Info("products file is valid", slog.Int("count", len(inputs)))
	if dryRun {
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return seedProducts(ctx, product.NewService(postgres.NewProductRepository(pool), events.Nop{}), inputs)
}

// readProducts decodes and validates every product of the file. Files
// ending in .gz are decompressed.
func readProducts(path string) ([]product.Input, error) {
	slog.Info("reading products file", slog.String("path", path))

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open products file")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip stream")
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read products file")
	}

	var inputs []product.Input
	err = jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		var p product.Product
		if err := wire.DecodeProduct(d, &p); err != nil {
			return err
		}
		in := product.Input{
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Stock:       p.Stock,
			Category:    p.Category,
			Tags:        p.Tags,
			ImageURL:    p.ImageURL,
		}
		if err := in.Validate(); err != nil {
			return errors.Wrapf(err, "product %d (%q)", len(inputs), p.Name)
		}
		inputs = append(inputs, in)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "parse products JSON")
	}
	return inputs, nil
}

// seedProducts creates the products whose name is not in the catalog yet,
// so the tool can be re-run safely.
func seedProducts(ctx context.Context, svc *product.Service, inputs []product.Input) error {
	existing, err := svc.GetAdminProducts(ctx)
	if err != nil {
		return errors.Wrap(err, "list catalog")
	}
	names := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		names[strings.ToLower(p.Name)] = struct{}{}
	}

	var created int
	for _, in := range inputs {
		key := strings.ToLower(strings.TrimSpace(in.Name))
		if _, ok := names[key]; ok {
			slog.Info("skipping existing product", slog.String("name", in.Name))
			continue
		}
		id, err := svc.CreateProduct(ctx, in)
		if err != nil {
			return errors.Wrapf(err, "create product %q", in.Name)
		}
		names[key] = struct{}{}
		created++
		slog.Info("created product", slog.String("id", id), slog.String("name", in.Name))
	}

	slog.Info("catalog seeded", slog.Int("created", created), slog.Int("skipped", len(inputs)-created))
	return nil
}
