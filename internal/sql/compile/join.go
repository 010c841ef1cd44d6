package compile

import (
	pkgerrors "github.com/pkg/errors"

	"github.com/dshills/cfplan/internal/schema"
)

// JoinType represents the type of join.
type JoinType int

const (
	// InnerJoin keeps matching pairs only.
	InnerJoin JoinType = iota
	// LeftJoin keeps every left row.
	LeftJoin
	// RightJoin keeps every right row.
	RightJoin
	// FullJoin keeps every row of both sides.
	FullJoin
	// SemiJoin keeps left rows that have a match, without right columns.
	SemiJoin
	// AntiJoin keeps left rows that have no match, without right columns.
	AntiJoin
)

func (j JoinType) String() string {
	switch j {
	case InnerJoin:
		return "INNER"
	case LeftJoin:
		return "LEFT"
	case RightJoin:
		return "RIGHT"
	case FullJoin:
		return "FULL"
	case SemiJoin:
		return "SEMI"
	case AntiJoin:
		return "ANTI"
	default:
		return "UNKNOWN"
	}
}

// ProjectsRight reports whether rows of this join carry right columns.
func (j JoinType) ProjectsRight() bool {
	return j != SemiJoin && j != AntiJoin
}

// JoinProjectedTables describes the rows produced by joining left and
// right: the left columns followed by the right columns. Columns of a side
// that may be NULL-extended become nullable. The joined table keeps the
// hidden leading columns of left; right must not have any, since they
// would land in the middle of the joined row.
func JoinProjectedTables(left, right *schema.Table, joinType JoinType) (*schema.Table, error) {
	if start := schema.StartingColumnPosition(right); start != 0 {
		return nil, pkgerrors.Errorf("right side of %s join has %d hidden leading columns", joinType, start)
	}

	nullLeft := joinType == RightJoin || joinType == FullJoin
	nullRight := joinType == LeftJoin || joinType == FullJoin

	columns := make([]*schema.Column, 0, len(left.Columns)+len(right.Columns))
	columns = appendJoinColumns(columns, left.Columns, nullLeft)
	if joinType.ProjectsRight() {
		columns = appendJoinColumns(columns, right.Columns, nullRight)
	}

	t, err := schema.NewTable(schema.TableDef{
		Kind:        schema.KindJoin,
		Columns:     columns,
		BucketNum:   left.BucketNum,
		MultiTenant: left.MultiTenant,
		ViewIndexID: left.ViewIndexID,
		Timestamp:   schema.MinTableTimestamp,
	})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "join %s", joinType)
	}
	return t, nil
}

func appendJoinColumns(dst, src []*schema.Column, nullable bool) []*schema.Column {
	for _, c := range src {
		col := *c
		if nullable {
			col.Nullable = true
		}
		dst = append(dst, &col)
	}
	return dst
}
