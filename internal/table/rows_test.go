package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nithinv16/dukaaon-extractor/constants"
)

func invoiceMapping() ColumnMapping {
	return ColumnMapping{NameIdx: 0, QuantityIdx: 1, UnitIdx: 2, AmountIdx: 3, Confidence: 0.9}
}

func TestExtractRowHappyPath(t *testing.T) {
	p := ExtractRow([]string{"Parle-G Gold Biscuit 75g", "6", "Pcs", "218.16"}, invoiceMapping())

	require.NotNil(t, p)
	assert.Equal(t, "Parle-G Gold Biscuit 75g", p.Name, "size token must survive name cleaning")
	assert.Equal(t, 6.0, p.Quantity)
	assert.Equal(t, constants.UnitPiece, p.Unit)
	assert.Equal(t, 218.16, p.NetAmount)
	assert.InDelta(t, 36.36, p.UnitPrice, 0.001)
	assert.False(t, p.NeedsReview)
	assert.Equal(t, constants.RowConfidenceOK, p.Confidence)
}

func TestExtractRowSkipsBoilerplate(t *testing.T) {
	for _, name := range []string{
		"Total",
		"Sub-Total",
		"Grand Total",
		"GSTIN: 29ABCDE1234F1Z5",
		"Thank you for your business",
		"Route 12 / Salesman Kumar",
		"Bank: HDFC A/C No 1234",
	} {
		p := ExtractRow([]string{name, "1", "", "5000"}, invoiceMapping())
		assert.Nil(t, p, "row %q should be skipped", name)
	}
}

func TestExtractRowSkipsRepeatedHeader(t *testing.T) {
	p := ExtractRow([]string{"Item Description", "Qty", "Unit", "Amount"}, invoiceMapping())
	assert.Nil(t, p)
}

func TestExtractRowUnitFromQuantitySuffix(t *testing.T) {
	p := ExtractRow([]string{"Red Label Tea", "6 Pe", "", "150"}, invoiceMapping())

	require.NotNil(t, p)
	assert.Equal(t, 6.0, p.Quantity)
	assert.Equal(t, constants.UnitPiece, p.Unit)
}

func TestExtractRowUnitFromNameKeywords(t *testing.T) {
	p := ExtractRow([]string{"Sona Masoori Rice", "2", "", "180"}, invoiceMapping())

	require.NotNil(t, p)
	assert.Equal(t, constants.UnitKilogram, p.Unit)
}

func TestExtractRowQuantityDefaultsToOne(t *testing.T) {
	p := ExtractRow([]string{"Loose Jaggery", "", "", "80"}, invoiceMapping())

	require.NotNil(t, p)
	assert.Equal(t, 1.0, p.Quantity)
	assert.Equal(t, 80.0, p.UnitPrice)
}

func TestExtractRowZeroAmountNeedsReview(t *testing.T) {
	p := ExtractRow([]string{"Free Sample Sachet", "2", "", "0"}, invoiceMapping())

	require.NotNil(t, p)
	assert.True(t, p.NeedsReview)
	assert.Equal(t, constants.RowConfidenceLow, p.Confidence)
	assert.Zero(t, p.UnitPrice)
}

func TestExtractRowCodeOnlyNameKeptWhenAmountPresent(t *testing.T) {
	// Cleaning strips the code token to nothing; with a real amount the raw
	// name is kept rather than dropping the line item.
	p := ExtractRow([]string{"89012345", "1", "", "120"}, invoiceMapping())
	require.NotNil(t, p)
	assert.Equal(t, "89012345", p.Name)

	// Without an amount the row carries no usable signal at all.
	assert.Nil(t, ExtractRow([]string{"89012345", "1", "", ""}, invoiceMapping()))
}

func TestCleanProductName(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"8901234567 MAGGI Masala Noodles 70g", "MAGGI Masala Noodles 70g"},
		{"Parle-G Gold Biscuit 75g HSN1905", "Parle-G Gold Biscuit 75g"},
		{"Tata Salt 1kg", "Tata Salt 1kg"},
		{"  Amul Butter 500g  ", "Amul Butter 500g"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, CleanProductName(tc.raw), "raw=%q", tc.raw)
	}
}

func TestExtractProductsWholeTable(t *testing.T) {
	tbl := StructuredTable{
		Headers: []string{"Item Description", "Qty", "Unit", "Amount"},
		Rows: [][]string{
			{"Parle-G Gold Biscuit 75g", "6", "Pcs", "218.16"},
			{"Tata Salt 1kg Pouch", "10", "Pe", "250.00"},
			{"Total", "", "", "468.16"},
		},
	}

	products, mapping := ExtractProducts(tbl)

	require.Len(t, products, 2)
	assert.Equal(t, "Parle-G Gold Biscuit 75g", products[0].Name)
	assert.Equal(t, 25.0, products[1].UnitPrice)
	assert.InDelta(t, 1.0, mapping.Confidence, 0.001)
}

func TestExtractProductsPromotesHeaderFromSecondRow(t *testing.T) {
	tbl := StructuredTable{
		Rows: [][]string{
			{"", "", "TAX INVOICE", ""},
			{"Item", "Qty", "Rate", "Amount"},
			{"Aashirvaad Atta 5kg", "2", "240.00", "480.00"},
		},
	}

	products, mapping := ExtractProducts(tbl)

	require.Len(t, products, 1)
	assert.Equal(t, "Aashirvaad Atta 5kg", products[0].Name)
	assert.Equal(t, 0, mapping.NameIdx)
	assert.Equal(t, 1, mapping.QuantityIdx)
	assert.Equal(t, 3, mapping.AmountIdx)
}

func TestSplitHeaderKeepsFirstRowByDefault(t *testing.T) {
	rows := [][]string{
		{"Item", "Qty", "Amount"},
		{"Tata Tea 250g", "3", "330.00"},
	}
	headers, data := SplitHeader(rows)
	assert.Equal(t, rows[0], headers)
	assert.Equal(t, rows[1:], data)
}

func TestIsHeaderLike(t *testing.T) {
	assert.True(t, IsHeaderLike([]string{"Item", "Qty", "Rate", "Amount"}))
	assert.False(t, IsHeaderLike([]string{"Tata Salt", "10", "25.00", "250.00"}))
}
