package graph

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

// Default column names of an edge list header.
const (
	DefaultFromColumn = "from-node-id"
	DefaultToColumn   = "to-node-id"
)

// ErrMissingColumn is returned when the header lacks a configured column.
var ErrMissingColumn = errors.New("edge list column not found")

// EdgeListOptions controls how an edge list is parsed.
type EdgeListOptions struct {
	FromColumn string
	ToColumn   string
	// Delimiter defaults to ','.
	Delimiter rune
	// NoHeader treats the first two fields of every row as source and
	// target.
	NoHeader bool
}

func (o EdgeListOptions) withDefaults() EdgeListOptions {
	if o.FromColumn == "" {
		o.FromColumn = DefaultFromColumn
	}
	if o.ToColumn == "" {
		o.ToColumn = DefaultToColumn
	}
	if o.Delimiter == 0 {
		o.Delimiter = ','
	}
	return o
}

// ReadEdgeList builds a graph from delimited rows of source and target node
// keys. Lines starting with '#' are skipped.
func ReadEdgeList(r io.Reader, opts EdgeListOptions) (*Graph, error) {
	opts = opts.withDefaults()

	cr := csv.NewReader(r)
	cr.Comma = opts.Delimiter
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	fromIdx, toIdx := 0, 1
	if !opts.NoHeader {
		header, err := cr.Read()
		if err == io.EOF {
			return New(), nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "read edge list header")
		}
		fromIdx, toIdx = -1, -1
		for i, name := range header {
			switch strings.TrimSpace(name) {
			case opts.FromColumn:
				fromIdx = i
			case opts.ToColumn:
				toIdx = i
			}
		}
		if fromIdx < 0 {
			return nil, errors.Wrapf(ErrMissingColumn, "%q", opts.FromColumn)
		}
		if toIdx < 0 {
			return nil, errors.Wrapf(ErrMissingColumn, "%q", opts.ToColumn)
		}
	}

	g := New()
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read edge list")
		}
		line, _ := cr.FieldPos(0)
		if len(record) <= max(fromIdx, toIdx) {
			return nil, errors.Newf("line %d: expected at least %d fields, got %d", line, max(fromIdx, toIdx)+1, len(record))
		}
		from := strings.TrimSpace(record[fromIdx])
		to := strings.TrimSpace(record[toIdx])
		if from == "" || to == "" {
			return nil, errors.Newf("line %d: empty node key", line)
		}
		g.AddEdge(from, to)
	}
	return g, nil
}

// LoadEdgeListFile reads an edge list from path.
func LoadEdgeListFile(path string, opts EdgeListOptions) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open edge list")
	}
	defer f.Close()

	g, err := ReadEdgeList(f, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return g, nil
}
