package exec

import (
	"bytes"
	"context"
	"hash/fnv"
	"sort"

	"github.com/dshills/cfplan/internal/config"
	"github.com/dshills/cfplan/internal/engine"
	"github.com/dshills/cfplan/internal/errors"
	"github.com/dshills/cfplan/internal/schema"
	"github.com/dshills/cfplan/internal/sql/kvschema"
	"github.com/dshills/cfplan/internal/sql/tuple"
	"github.com/dshills/cfplan/internal/sql/types"
)

// Store reads and writes the rows of catalog tables. Rows are addressed
// by physical column position, hidden leading columns included.
type Store interface {
	Insert(ctx context.Context, table *schema.Table, values []types.Value) error
	Scan(ctx context.Context, table *schema.Table) (Iterator, error)
}

// KVStore lays rows out on an ordered key-value engine, one cell per row
// and column family:
//
//	key   = "t/" + table name + 0x00 + row key + family name
//	value = the family's columns packed with a kvschema.Schema
//
// The row key is the order preserving encoding of the primary key
// columns. Salted tables get their salt column computed from the rest of
// the row key, and tables with a view index id get it filled in.
type KVStore struct {
	engine               engine.Engine
	compressionThreshold int
}

// NewKVStore creates a store on eng.
func NewKVStore(eng engine.Engine, cfg config.TupleConfig) *KVStore {
	s := &KVStore{engine: eng}
	if cfg.EnableCompression {
		s.compressionThreshold = cfg.CompressionThreshold
	}
	return s
}

func tablePrefix(table *schema.Table) []byte {
	return append([]byte("t/"+table.FullName()), 0)
}

// family is one column family of a table layout.
type family struct {
	name      string
	positions []int
	schema    *kvschema.Schema
}

// columnField describes a stored column to the packed row builder.
type columnField struct {
	col *schema.Column
}

func (c columnField) DataType() types.DataType    { return c.col.DataType }
func (c columnField) MaxLength() int              { return c.col.MaxLength }
func (c columnField) Nullable() bool              { return c.col.Nullable }
func (c columnField) SortOrder() schema.SortOrder { return c.col.SortOrder }

func (s *KVStore) families(table *schema.Table) []*family {
	byName := make(map[string]*family)
	var families []*family
	for _, col := range table.Columns {
		if col.PrimaryKey {
			continue
		}
		f, ok := byName[col.Family]
		if !ok {
			f = &family{name: col.Family}
			byName[col.Family] = f
			families = append(families, f)
		}
		f.positions = append(f.positions, col.Position)
	}
	sort.Slice(families, func(i, j int) bool { return families[i].name < families[j].name })
	if len(families) == 0 {
		// key only tables still need one cell per row
		families = append(families, &family{})
	}

	for _, f := range families {
		b := kvschema.NewBuilder().Compression(s.compressionThreshold)
		for _, pos := range f.positions {
			b.AddField(columnField{table.Columns[pos]})
		}
		f.schema = b.Build()
	}
	return families
}

// Insert writes one row. values must cover every column of table; the
// salt and view index id columns are filled in by the store.
func (s *KVStore) Insert(ctx context.Context, table *schema.Table, values []types.Value) error {
	if len(values) != len(table.Columns) {
		return errors.Newf(errors.DataException, "table %s has %d columns, got %d values",
			table.Name, len(table.Columns), len(values)).WithTable(table.SchemaName, table.Name)
	}
	row := make([]types.Value, len(values))
	copy(row, values)

	pos := 0
	if table.BucketNum > 0 {
		pos++
	}
	if table.MultiTenant {
		pos++
	}
	if table.ViewIndexID != nil {
		row[pos] = types.NewValue(*table.ViewIndexID)
	}

	for i, col := range table.Columns {
		if i == 0 && table.BucketNum > 0 {
			continue
		}
		if !col.DataType.IsValid(row[i]) {
			return errors.DataTypeMismatchError(col.DataType.Name(), row[i].Type().Name()).
				WithTable(table.SchemaName, table.Name).
				WithColumn(col.Name)
		}
	}

	key, err := s.rowKey(table, row)
	if err != nil {
		return err
	}

	for _, f := range s.families(table) {
		fv := make([]types.Value, len(f.positions))
		for i, p := range f.positions {
			fv[i] = row[p]
		}
		packed, err := f.schema.Encode(fv)
		if err != nil {
			return err
		}

		cell := make([]byte, 0, len(key)+len(f.name))
		cell = append(append(cell, key...), f.name...)
		if err := s.engine.Put(ctx, cell, packed); err != nil {
			return err
		}
	}
	return nil
}

// rowKey encodes the primary key of row, computing the salt when needed.
func (s *KVStore) rowKey(table *schema.Table, row []types.Value) ([]byte, error) {
	salted := table.BucketNum > 0

	var rest []byte
	for i, col := range table.Columns {
		if !col.PrimaryKey || (salted && i == 0) {
			continue
		}
		var err error
		if rest, err = appendKeyValue(rest, col, row[i]); err != nil {
			return nil, err
		}
	}

	key := tablePrefix(table)
	if salted {
		h := fnv.New32a()
		_, _ = h.Write(rest)
		salt := int16(h.Sum32() % uint32(table.BucketNum)) //nolint:gosec // bucket count fits
		row[0] = types.NewValue(salt)

		var err error
		if key, err = appendKeyValue(key, table.Columns[0], row[0]); err != nil {
			return nil, err
		}
	}
	return append(key, rest...), nil
}

// Scan returns the rows of table in row key order.
func (s *KVStore) Scan(ctx context.Context, table *schema.Table) (Iterator, error) {
	prefix := tablePrefix(table)
	it, err := s.engine.Scan(ctx, prefix, engine.PrefixEnd(prefix))
	if err != nil {
		return nil, err
	}

	families := make(map[string]*family)
	for _, f := range s.families(table) {
		families[f.name] = f
	}
	return &scanIterator{table: table, prefix: prefix, families: families, it: it}, nil
}

type scanIterator struct {
	table    *schema.Table
	prefix   []byte
	families map[string]*family
	it       engine.Iterator
	// pending is set when the engine iterator is positioned on the first
	// cell of the next row.
	pending bool
}

func (s *scanIterator) Next() (tuple.Tuple, error) {
	if !s.pending && !s.it.Next() {
		return nil, s.it.Error()
	}
	s.pending = false

	values := make([]types.Value, len(s.table.Columns))
	for i := range values {
		values[i] = types.NewNullValue()
	}

	rowKey, err := s.readCell(values)
	if err != nil {
		return nil, err
	}
	for s.it.Next() {
		if !bytes.HasPrefix(s.it.Key()[len(s.prefix):], rowKey) {
			s.pending = true
			break
		}
		if _, err := s.readCell(values); err != nil {
			return nil, err
		}
	}
	if err := s.it.Error(); err != nil {
		return nil, err
	}
	return tuple.New(values...), nil
}

// readCell decodes the key and family of the current cell into values and
// returns the row key bytes.
func (s *scanIterator) readCell(values []types.Value) ([]byte, error) {
	key := s.it.Key()[len(s.prefix):]

	rest := key
	for i, col := range s.table.Columns {
		if !col.PrimaryKey {
			continue
		}
		v, r, err := decodeKeyValue(rest, col)
		if err != nil {
			return nil, err
		}
		values[i] = v
		rest = r
	}

	f, ok := s.families[string(rest)]
	if !ok {
		return nil, errors.StorageCorruptionError("unknown column family \"" + string(rest) + "\" in " + s.table.Name)
	}
	fv, err := f.schema.Decode(s.it.Value())
	if err != nil {
		return nil, err
	}
	for i, p := range f.positions {
		values[p] = fv[i]
	}

	rowKey := make([]byte, len(key)-len(rest))
	copy(rowKey, key)
	return rowKey, nil
}

func (s *scanIterator) Close() error {
	return s.it.Close()
}
