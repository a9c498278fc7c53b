package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/homedeliver/api/internal/catalog"
	"github.com/homedeliver/api/internal/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
	commits     int
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr == nil {
		m.commits++
	}
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// staticSource serves fixed catalog rows.
type staticSource struct {
	menu    []database.CatalogItem
	boxes   []database.BoxType
	vendors []database.Vendor
}

func (s *staticSource) ListMenuItems(ctx context.Context) ([]database.CatalogItem, error) {
	return s.menu, nil
}
func (s *staticSource) ListMealItems(ctx context.Context) ([]database.CatalogItem, error) {
	return nil, nil
}
func (s *staticSource) ListBoxTypes(ctx context.Context) ([]database.BoxType, error) {
	return s.boxes, nil
}
func (s *staticSource) ListVendors(ctx context.Context) ([]database.Vendor, error) {
	return s.vendors, nil
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

// Fixed ids shared by the service tests.
var (
	vendorV1  = uuid.MustParse("00000000-0000-0000-0000-0000000000a1")
	vendorV2  = uuid.MustParse("00000000-0000-0000-0000-0000000000a2")
	itemI1    = uuid.MustParse("00000000-0000-0000-0000-0000000000b1")
	itemI2    = uuid.MustParse("00000000-0000-0000-0000-0000000000b2")
	boxTypeB1 = uuid.MustParse("00000000-0000-0000-0000-0000000000c1")
)

// testCatalogSource has V1 (Monday, Wednesday), V2 (no days on file),
// I1 at 5.00, I2 at 2.50 and box type B1 at 30.00 from V1.
func testCatalogSource() *staticSource {
	return &staticSource{
		menu: []database.CatalogItem{
			{ID: itemI1, VendorID: pgUUID(vendorV1), Name: "Chicken Soup", PriceEach: makeNumeric("5.00"), IsActive: true},
			{ID: itemI2, VendorID: pgUUID(vendorV1), Name: "Bread", Value: makeNumeric("2.50"), IsActive: true},
		},
		boxes: []database.BoxType{
			{ID: boxTypeB1, VendorID: pgUUID(vendorV1), Name: "Produce Box", PriceEach: makeNumeric("30.00"), IsActive: true},
		},
		vendors: []database.Vendor{
			{ID: vendorV1, Name: "Fresh Kitchen", DeliveryDays: []string{"Monday", "Wednesday"}, IsActive: true},
			{ID: vendorV2, Name: "Corner Deli", IsActive: true},
		},
	}
}

func testCatalog() *catalog.Catalog {
	cat, err := catalog.Load(context.Background(), testCatalogSource())
	if err != nil {
		panic(err)
	}
	return cat
}

func testCatalogCache() *catalog.Cache {
	return catalog.NewCache(testCatalogSource(), 0)
}
