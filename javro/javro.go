package javro

import (
	"context"
	"github.com/pkg/errors"
	"github.com/siegeai/javro/avro"
	"github.com/siegeai/javro/jsonschema"
	"github.com/siegeai/javro/mapper"
	"github.com/siegeai/javro/merge"
	"github.com/siegeai/javro/resolve"
	"github.com/wI2L/jsondiff"
	"log/slog"
	"path"
	"strings"
	"time"
)

// ErrNoPreviousSchema is returned by an AvroFetcher when nothing was published yet.
var ErrNoPreviousSchema = errors.New("no previous avro schema")

var ErrNoName = errors.New("no record name: set a name, a root title or a schema file")

// AvroFetcher gives access to the last published version of the schema being built.
type AvroFetcher interface {
	FetchPreviousAvro(ctx context.Context) (string, error)
	CheckCompatibility(ctx context.Context, avro string) (bool, error)
}

// SchemaResolver turns an input document into a node without references. A nil
// document is read from locator.
type SchemaResolver interface {
	Resolve(ctx context.Context, locator string, document any) (*jsonschema.Node, error)
}

type Options struct {
	// SchemaFile locates the JSON Schema. With Schema set it only anchors relative
	// references and the default name.
	SchemaFile string
	Schema     any

	Namespace          string
	Name               string
	AllowMultipleTypes bool

	// AvroFetcher is optional. Without it the result is neither reordered nor checked.
	AvroFetcher AvroFetcher
	Resolver    SchemaResolver
	Metrics     *Metrics
	Logger      *slog.Logger
}

type Result struct {
	Compatibility Compatibility `json:"isCompatible"`
	Avro          *avro.Record  `json:"avsc"`

	Previous *avro.Record   `json:"-"`
	Removed  []string       `json:"removed,omitempty"`
	Diff     jsondiff.Patch `json:"diff,omitempty"`
}

// Run resolves the JSON Schema, maps it to an Avro record, keeps the field order of the
// previously published version and checks the result for compatibility with it.
func Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	res, err := run(ctx, opts)
	opts.Metrics.observe(res, err, time.Since(start))
	return res, err
}

func run(ctx context.Context, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	resolver := opts.Resolver
	if resolver == nil {
		r := resolve.NewResolver(nil)
		r.Logger = logger
		resolver = r
	}

	node, err := resolver.Resolve(ctx, opts.SchemaFile, opts.Schema)
	if err != nil {
		return nil, errors.Wrap(err, "resolving references")
	}

	name := avroName(opts.Name, opts.SchemaFile, node)
	if name == "" {
		return nil, ErrNoName
	}
	record, err := mapper.MapSchema(node, opts.Namespace, name, opts.AllowMultipleTypes)
	if err != nil {
		return nil, errors.Wrapf(err, "mapping %s", name)
	}

	res := Result{Compatibility: CompatibilityUnknown, Avro: record}
	if opts.AvroFetcher == nil {
		logger.Debug("no avro fetcher, skipping field order and compatibility", "name", name)
		return &res, nil
	}

	prev, err := fetchPrevious(ctx, opts.AvroFetcher)
	if errors.Is(err, ErrNoPreviousSchema) {
		logger.Info("no previous avro schema", "name", name)
		res.Compatibility = Compatible
		return &res, nil
	}
	if err != nil {
		return nil, err
	}

	res.Previous = prev
	res.Avro = merge.Schema(prev, record)
	res.Removed = merge.Removed(prev.Fields, record.Fields)
	if len(res.Removed) > 0 {
		logger.Warn("fields removed since the previous version", "name", name, "fields", res.Removed)
	}

	bs, err := avro.Marshal(res.Avro)
	if err != nil {
		return nil, err
	}
	if res.Diff, err = diff(prev, bs); err != nil {
		return nil, err
	}

	ok, err := opts.AvroFetcher.CheckCompatibility(ctx, string(bs))
	if err != nil {
		return nil, errors.Wrap(err, "checking compatibility")
	}
	res.Compatibility = CompatibilityOf(ok)
	return &res, nil
}

func fetchPrevious(ctx context.Context, f AvroFetcher) (*avro.Record, error) {
	s, err := f.FetchPreviousAvro(ctx)
	if err != nil {
		if errors.Is(err, ErrNoPreviousSchema) {
			return nil, err
		}
		return nil, errors.Wrap(err, "fetching previous avro")
	}
	prev, err := avro.ParseRecord(s)
	if err != nil {
		return nil, errors.Wrap(err, "parsing previous avro")
	}
	return prev, nil
}

func diff(prev *avro.Record, next []byte) (jsondiff.Patch, error) {
	bs, err := avro.Marshal(prev)
	if err != nil {
		return nil, err
	}
	patch, err := jsondiff.CompareJSON(bs, next)
	return patch, errors.Wrap(err, "diffing against previous avro")
}

// avroName picks the explicit name, then the root title, then the file name up to
// ".json".
func avroName(name, file string, node *jsonschema.Node) string {
	if name != "" {
		return name
	}
	if node != nil && node.Title != "" {
		return node.Title
	}

	if file == "" {
		return ""
	}
	base := path.Base(strings.ReplaceAll(file, "\\", "/"))
	if i := strings.Index(base, ".json"); i >= 0 {
		return base[:i]
	}
	return strings.TrimSuffix(base, path.Ext(base))
}
