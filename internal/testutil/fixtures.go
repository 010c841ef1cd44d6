// Package testutil provides catalogs and rows shared by package tests.
package testutil

import (
	"testing"

	"github.com/dshills/cfplan/internal/catalog"
	"github.com/dshills/cfplan/internal/schema"
	"github.com/dshills/cfplan/internal/sql/types"
)

// Table names created by NewCatalog.
const (
	EmpTable    = "EMP"
	DeptTable   = "DEPT"
	SaltedTable = "EVENTS"
	TenantTable = "TENANT_DOCS"
)

// TenantViewIndexID is the view index id of TenantTable.
var TenantViewIndexID int16 = 7

// NewCatalog returns a catalog with four tables:
//
//	EMP(ID INTEGER PK, NAME VARCHAR(20), DEPT_ID INTEGER, SALARY DOUBLE NULL)
//	DEPT(ID INTEGER PK, NAME VARCHAR(20))
//	EVENTS salted into 4 buckets: (_SALT, TS BIGINT PK, KIND TEXT)
//	TENANT_DOCS multi-tenant with a view index:
//	  (TENANT_ID VARCHAR(15) PK, _INDEX_ID, DOC_ID INTEGER PK, BODY TEXT NULL)
func NewCatalog(t *testing.T) *catalog.MemoryCatalog {
	t.Helper()

	cat := catalog.NewMemoryCatalog()
	defs := []*catalog.TableSchema{
		{
			TableName: EmpTable,
			Columns: []catalog.ColumnDef{
				{Name: "ID", TypeName: "INTEGER", PrimaryKey: true},
				{Name: "NAME", TypeName: "VARCHAR(20)"},
				{Name: "DEPT_ID", TypeName: "INTEGER"},
				{Name: "SALARY", TypeName: "DOUBLE", Nullable: true},
			},
		},
		{
			TableName: DeptTable,
			Columns: []catalog.ColumnDef{
				{Name: "ID", TypeName: "INTEGER", PrimaryKey: true},
				{Name: "NAME", TypeName: "VARCHAR(20)"},
			},
		},
		{
			TableName:   SaltedTable,
			SaltBuckets: 4,
			Columns: []catalog.ColumnDef{
				{Name: "TS", TypeName: "BIGINT", PrimaryKey: true},
				{Name: "KIND", TypeName: "TEXT"},
			},
		},
		{
			TableName:   TenantTable,
			MultiTenant: true,
			ViewIndexID: &TenantViewIndexID,
			Columns: []catalog.ColumnDef{
				{Name: "TENANT_ID", TypeName: "VARCHAR(15)", PrimaryKey: true},
				{Name: "DOC_ID", TypeName: "INTEGER", PrimaryKey: true},
				{Name: "BODY", TypeName: "TEXT", Nullable: true},
			},
		},
	}
	for _, def := range defs {
		if _, err := cat.CreateTable(def); err != nil {
			t.Fatalf("failed to create %s: %v", def.TableName, err)
		}
	}
	return cat
}

// Resolve returns a reference to a fixture table, failing the test if it
// does not exist.
func Resolve(t *testing.T, cat catalog.Catalog, table, alias string) *schema.TableRef {
	t.Helper()

	ref, err := cat.Resolve("", table, alias)
	if err != nil {
		t.Fatalf("failed to resolve %s: %v", table, err)
	}
	return ref
}

// EmpRows returns the rows of EMP in key order.
func EmpRows() [][]types.Value {
	return [][]types.Value{
		{types.NewIntegerValue(1), types.NewTextValue("alice"), types.NewIntegerValue(10), types.NewDoubleValue(100)},
		{types.NewIntegerValue(2), types.NewTextValue("bob"), types.NewIntegerValue(20), types.NewDoubleValue(80)},
		{types.NewIntegerValue(3), types.NewTextValue("carol"), types.NewIntegerValue(10), types.NewNullValue()},
		{types.NewIntegerValue(4), types.NewTextValue("dave"), types.NewIntegerValue(30), types.NewDoubleValue(120)},
	}
}

// DeptRows returns the rows of DEPT in key order.
func DeptRows() [][]types.Value {
	return [][]types.Value{
		{types.NewIntegerValue(10), types.NewTextValue("eng")},
		{types.NewIntegerValue(20), types.NewTextValue("sales")},
		{types.NewIntegerValue(40), types.NewTextValue("legal")},
	}
}
