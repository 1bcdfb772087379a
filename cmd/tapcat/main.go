// Command tapcat prints the tuples stored behind a tap as a table.
//
//	tapcat -path data/users.csv -fields id:int64,name -header
//	tapcat -descriptor users.yaml -split-size 64KiB
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/prxssh/tap"
	"github.com/prxssh/tap/api"
	"github.com/prxssh/tap/pkg/flow"
	"github.com/prxssh/tap/pkg/props"
	"github.com/prxssh/tap/pkg/scheme"
	"github.com/prxssh/tap/pkg/tuple"
	"storj.io/common/memory"
)

type options struct {
	path       string
	scheme     string
	fields     string
	delimiter  string
	header     bool
	props      string
	descriptor string
	set        props.Properties
	splitSize  memory.Size
	limit      int
	verbose    bool
}

func main() {
	var opts options
	flag.StringVar(&opts.path, "path", "", "File or directory to read")
	flag.StringVar(&opts.scheme, "scheme", scheme.TypeDelimited, "Record layout: 'flat' or 'delimited'")
	flag.StringVar(&opts.fields, "fields", "", "Comma separated fields, each 'name' or 'name:type'")
	flag.StringVar(&opts.delimiter, "delimiter", ",", "Field delimiter for the delimited scheme")
	flag.BoolVar(&opts.header, "header", false, "Delimited files start with a header line")
	flag.StringVar(&opts.props, "props", "", "YAML file with runtime properties")
	flag.StringVar(&opts.descriptor, "descriptor", "", "YAML tap descriptor, replaces -scheme/-fields/-delimiter/-header")
	flag.Var(propsValue{&opts.set}, "set", "Property override 'key=value', applied over -props (repeatable)")
	flag.Var(sizeValue{&opts.splitSize}, "split-size", "Read the tap in concurrent splits of this size (e.g. 64KiB)")
	flag.IntVar(&opts.limit, "limit", 0, "Stop after this many rows, 0 for all")
	flag.BoolVar(&opts.verbose, "v", false, "Log tap sessions")
	flag.Parse()

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	)

	if err := run(opts, logger, os.Stdout); err != nil {
		logger.Error("tapcat failed", "err", err)
		os.Exit(1)
	}
}

func run(opts options, logger *slog.Logger, out io.Writer) error {
	t, err := buildTap(opts)
	if err != nil {
		return err
	}

	p, err := loadProps(opts.props, opts.set)
	if err != nil {
		return err
	}
	logger.Debug("loaded properties", "keys", p.Keys())

	proc := flow.NewProcess(
		flow.WithProperties(p),
		flow.WithLogger(logger),
	)

	var rows []table.Row
	if opts.splitSize > 0 {
		rows, err = readSplits(t, proc, opts.splitSize)
	} else {
		rows, err = read(t, proc, opts.limit)
	}
	if err != nil {
		return err
	}

	if opts.limit > 0 && len(rows) > opts.limit {
		rows = rows[:opts.limit]
	}

	render(out, t.SourceFields(), rows)
	return nil
}

func buildTap(opts options) (*tap.Tap, error) {
	if opts.descriptor != "" {
		data, err := os.ReadFile(opts.descriptor)
		if err != nil {
			return nil, fmt.Errorf("read descriptor: %w", err)
		}

		t, err := tap.Decode(data, nil)
		if err != nil {
			return nil, err
		}
		if opts.path == "" || opts.path == t.Identifier() {
			return t, nil
		}

		return tap.New(t.Scheme(), opts.path, tap.WithSinkMode(t.SinkMode()), tap.WithSinkParts(t.SinkParts()))
	}

	fields, err := parseFields(opts.fields)
	if err != nil {
		return nil, err
	}

	s, err := scheme.Resolve(api.SchemeDescriptor{
		Type:      opts.scheme,
		Fields:    fields,
		Delimiter: opts.delimiter,
		Header:    opts.header,
	})
	if err != nil {
		return nil, err
	}

	return tap.New(s, opts.path)
}

// parseFields reads "id:int64,name" into typed fields.
func parseFields(list string) (tuple.Fields, error) {
	if strings.TrimSpace(list) == "" {
		return nil, api.ErrInvalidConfiguration.New("-fields is required without -descriptor")
	}

	var fields tuple.Fields
	for _, part := range strings.Split(list, ",") {
		name, typ, _ := strings.Cut(strings.TrimSpace(part), ":")

		t, err := tuple.ParseType(typ)
		if err != nil {
			return nil, api.ErrInvalidConfiguration.Wrap(err)
		}
		fields = append(fields, tuple.Field{Name: name, Type: t})
	}

	return fields, nil
}

// loadProps reads the -props file, if any, and lays overrides on top.
func loadProps(path string, overrides props.Properties) (props.Properties, error) {
	base := props.Properties{}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open props: %w", err)
		}
		defer f.Close()

		if base, err = props.Load(f); err != nil {
			return nil, api.ErrInvalidConfiguration.Wrap(err)
		}
	}

	return base.Merge(overrides), nil
}

// sizeValue is a flag.Value for memory sizes.
type sizeValue struct {
	size *memory.Size
}

func (v sizeValue) String() string {
	if v.size == nil {
		return ""
	}
	return v.size.String()
}

func (v sizeValue) Set(s string) error {
	size, err := props.ParseSize(s)
	if err != nil {
		return err
	}
	*v.size = size
	return nil
}

// propsValue collects repeated key=value flags.
type propsValue struct {
	p *props.Properties
}

func (v propsValue) String() string {
	if v.p == nil {
		return ""
	}

	pairs := make([]string, 0, len(*v.p))
	for _, k := range v.p.Keys() {
		pairs = append(pairs, k+"="+(*v.p)[k])
	}
	return strings.Join(pairs, ",")
}

func (v propsValue) Set(s string) error {
	key, value, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return fmt.Errorf("expected key=value, got %q", s)
	}

	if *v.p == nil {
		*v.p = props.Properties{}
	}
	(*v.p)[strings.TrimSpace(key)] = value
	return nil
}

func read(t *tap.Tap, proc *flow.Process, limit int) ([]table.Row, error) {
	it, err := t.OpenForRead(proc, nil)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var rows []table.Row
	for e, err := range it.All() {
		if err != nil {
			return nil, err
		}

		rows = append(rows, table.Row(e.Tuple))
		if limit > 0 && len(rows) == limit {
			break
		}
	}

	return rows, nil
}

// readSplits reads every split concurrently and returns the rows in split
// order.
func readSplits(t *tap.Tap, proc *flow.Process, size memory.Size) ([]table.Row, error) {
	var mu sync.Mutex
	bySplit := make(map[int64][]table.Row)

	err := t.ReadSplits(proc, size, func(s tap.Split, it *tap.TupleEntryIterator) error {
		var rows []table.Row
		for e, err := range it.All() {
			if err != nil {
				return err
			}
			rows = append(rows, table.Row(e.Tuple))
		}

		mu.Lock()
		bySplit[s.ID] = rows
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(bySplit))
	for id := range bySplit {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var rows []table.Row
	for _, id := range ids {
		rows = append(rows, bySplit[id]...)
	}
	return rows, nil
}

func render(out io.Writer, fields tuple.Fields, rows []table.Row) {
	header := make(table.Row, len(fields))
	for i, f := range fields {
		header[i] = f.Name
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.AppendHeader(header)
	tw.AppendRows(rows)
	tw.SetStyle(table.StyleLight)
	tw.Style().Format = table.FormatOptions{
		Footer: text.FormatDefault,
		Header: text.FormatDefault,
		Row:    text.FormatDefault,
	}
	tw.Style().Options.DrawBorder = false
	tw.Render()
}
