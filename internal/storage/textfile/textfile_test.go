package textfile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/flatshop/internal/domain/order"
	"github.com/xenking/flatshop/internal/domain/product"
	"github.com/xenking/flatshop/internal/domain/promotion"
	"github.com/xenking/flatshop/internal/domain/validate"
)

// --- Helpers ---

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func testProducts() []product.Product {
	return []product.Product{
		product.New(1, "Mechanical Keyboard", d("49.9"), 3),
		product.New(2, "USB-C Mouse", d("19.99"), 0),
	}
}

func testOrders() []order.Order {
	return []order.Order{
		{
			ID:       1,
			Customer: "alice",
			Items: []order.Item{
				{Product: product.Snapshot{ID: 1, Name: "Mechanical Keyboard", Price: d("49.9")}, Quantity: 2},
				{Product: product.Snapshot{ID: 2, Name: "USB-C Mouse", Price: d("19.99")}, Quantity: 1},
			},
			Total:   d("117.79"),
			Phone:   "0123456789",
			Address: "12 Main St",
			Status:  order.StatusProcessing,
		},
		{
			ID:       4,
			Customer: "bob",
			Total:    d("0"),
			Phone:    "555",
			Address:  "Elm Rd",
			Status:   order.StatusCanceled,
		},
	}
}

func requireSameProducts(t *testing.T, want, got []product.Product) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Name, got[i].Name)
		assert.True(t, want[i].Price.Equal(got[i].Price), "price of %d: want %s, got %s", want[i].ID, want[i].Price, got[i].Price)
		assert.Equal(t, want[i].Stock, got[i].Stock)
	}
}

func requireSameOrders(t *testing.T, want, got []order.Order) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		w, g := want[i], got[i]
		assert.Equal(t, w.ID, g.ID)
		assert.Equal(t, w.Customer, g.Customer)
		assert.Equal(t, w.Status, g.Status)
		assert.True(t, w.Total.Equal(g.Total), "total of %d: want %s, got %s", w.ID, w.Total, g.Total)
		assert.Equal(t, w.Phone, g.Phone)
		assert.Equal(t, w.Address, g.Address)
		require.Len(t, g.Items, len(w.Items))
		for j := range w.Items {
			assert.Equal(t, w.Items[j].Product.ID, g.Items[j].Product.ID)
			assert.Equal(t, w.Items[j].Product.Name, g.Items[j].Product.Name)
			assert.True(t, w.Items[j].Product.Price.Equal(g.Items[j].Product.Price))
			assert.Equal(t, w.Items[j].Quantity, g.Items[j].Quantity)
		}
	}
}

// --- Tests ---

func TestEncodeProducts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeProducts(&buf, testProducts()))
	assert.Equal(t, "1,Mechanical Keyboard,49.9,3\n2,USB-C Mouse,19.99,0\n", buf.String())
}

func TestProducts_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeProducts(&buf, testProducts()))

	got, err := DecodeProducts(&buf)
	require.NoError(t, err)
	requireSameProducts(t, testProducts(), got)
}

func TestEncodeProducts_RejectsReservedCharacters(t *testing.T) {
	var buf bytes.Buffer
	err := EncodeProducts(&buf, []product.Product{product.New(1, "Pens, blue", d("1"), 1)})

	var verr *validate.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
}

func TestDecodeProducts_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
	}{
		{name: "too few fields", input: "1,Pen,2\n", wantLine: 1},
		{name: "too many fields", input: "1,Pen,2,3,4\n", wantLine: 1},
		{name: "bad id", input: "x,Pen,2,3\n", wantLine: 1},
		{name: "bad price", input: "1,Pen,two,3\n", wantLine: 1},
		{name: "negative price", input: "1,Pen,-2,3\n", wantLine: 1},
		{name: "negative stock", input: "1,Pen,2,-3\n", wantLine: 1},
		{name: "duplicate id", input: "1,Pen,2,3\n\n1,Ink,4,5\n", wantLine: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeProducts(strings.NewReader(tt.input))

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.wantLine, perr.Line)
		})
	}
}

func TestDecodeProducts_SkipsBlankLines(t *testing.T) {
	got, err := DecodeProducts(strings.NewReader("\n1,Pen,2,3\r\n   \n2,Ink,4,5"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Ink", got[1].Name)
	assert.Equal(t, 5, got[1].Stock)
}

func TestPromotions_RoundTrip(t *testing.T) {
	in := []promotion.Promotion{
		{ID: 1, Description: "Summer sale", DiscountPercent: d("12.5"), ProductIDs: []int{1, 2}},
		{ID: 2, Description: "Mouse week", DiscountPercent: d("10"), ProductIDs: []int{2}},
	}
	var buf bytes.Buffer
	require.NoError(t, EncodePromotions(&buf, in))
	assert.Equal(t, "1,Summer sale,12.5,1,2\n2,Mouse week,10,2\n", buf.String())

	got, err := DecodePromotions(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range in {
		assert.Equal(t, in[i].ID, got[i].ID)
		assert.Equal(t, in[i].Description, got[i].Description)
		assert.True(t, in[i].DiscountPercent.Equal(got[i].DiscountPercent))
		assert.Equal(t, in[i].ProductIDs, got[i].ProductIDs)
	}
}

func TestDecodePromotions_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "no product ids", input: "1,Sale,10\n"},
		{name: "too few fields", input: "1,Sale\n"},
		{name: "discount above 100", input: "1,Sale,101,1\n"},
		{name: "negative discount", input: "1,Sale,-1,1\n"},
		{name: "bad product id", input: "1,Sale,10,one\n"},
		{name: "duplicate id", input: "1,Sale,10,1\n1,Other,5,2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePromotions(strings.NewReader(tt.input))

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
		})
	}
}

func TestEncodePromotions_RequiresProducts(t *testing.T) {
	var buf bytes.Buffer
	err := EncodePromotions(&buf, []promotion.Promotion{{ID: 1, Description: "Sale", DiscountPercent: d("5")}})

	var verr *validate.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "product ids", verr.Field)
}

func TestEncodeOrders(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeOrders(&buf, testOrders()[:1]))

	want := "1,alice,Processing,117.79,0123456789,12 Main St\n" +
		"ID: 1, Name: Mechanical Keyboard, Price: 49.9-2;ID: 2, Name: USB-C Mouse, Price: 19.99-1;\n"
	assert.Equal(t, want, buf.String())
}

func TestOrders_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeOrders(&buf, testOrders()))

	got, err := DecodeOrders(&buf, testProducts())
	require.NoError(t, err)
	requireSameOrders(t, testOrders(), got)
}

func TestDecodeOrders_KeepsRecordedSnapshot(t *testing.T) {
	input := "1,alice,Completed,10,555,Elm Rd\nID: 2, Name: Old Mouse, Price: 5-2;\n"

	got, err := DecodeOrders(strings.NewReader(input), testProducts())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Items, 1)
	assert.Equal(t, "Old Mouse", got[0].Items[0].Product.Name)
	assert.True(t, d("5").Equal(got[0].Items[0].Product.Price))
	assert.Equal(t, order.StatusCompleted, got[0].Status)
}

func TestDecodeOrders_UnknownProduct(t *testing.T) {
	input := "1,alice,Pending,10,555,Elm Rd\nID: 99, Name: Ghost, Price: 5-2;\n"

	_, err := DecodeOrders(strings.NewReader(input), testProducts())
	require.ErrorIs(t, err, product.ErrNotFound)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Line)
}

func TestDecodeOrders_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "missing items line", input: "1,alice,Pending,10,555,Elm Rd\n"},
		{name: "unknown status", input: "1,alice,Shipped,10,555,Elm Rd\n\n", wantErr: order.ErrInvalidStatus},
		{name: "header field count", input: "1,alice,Pending,10,555\n\n"},
		{name: "unterminated item", input: "1,alice,Pending,10,555,Elm Rd\nID: 1, Name: Pen, Price: 5-2\n"},
		{name: "missing price marker", input: "1,alice,Pending,10,555,Elm Rd\nID: 1, Name: Pen-2;\n"},
		{name: "missing quantity", input: "1,alice,Pending,10,555,Elm Rd\nID: 1, Name: Pen, Price: 5;\n"},
		{name: "zero quantity", input: "1,alice,Pending,10,555,Elm Rd\nID: 1, Name: Pen, Price: 5-0;\n"},
		{name: "duplicate id", input: "1,a,Pending,1,5,x\n\n1,b,Pending,1,5,y\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeOrders(strings.NewReader(tt.input), testProducts())

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestDecodeOrders_EmptyItemsLine(t *testing.T) {
	got, err := DecodeOrders(strings.NewReader("3,alice,Pending,0,555,Elm Rd\n\n"), nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Items)
}

func TestEncodeOrders_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *order.Order)
	}{
		{name: "reserved character in address", mutate: func(o *order.Order) { o.Address = "1; Main" }},
		{name: "newline in customer", mutate: func(o *order.Order) { o.Customer = "al\nice" }},
		{name: "unknown status", mutate: func(o *order.Order) { o.Status = order.Status(9) }},
		{name: "zero quantity", mutate: func(o *order.Order) { o.Items[0].Quantity = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := testOrders()[0]
			tt.mutate(&o)

			var buf bytes.Buffer
			require.Error(t, EncodeOrders(&buf, []order.Order{o}))
		})
	}
}

func TestCredentials_SplitAtFirstComma(t *testing.T) {
	got, err := DecodeCredentials(strings.NewReader("alice,pa,ss\nbob,\n"))
	require.NoError(t, err)
	assert.Equal(t, []Credential{
		{Username: "alice", Password: "pa,ss"},
		{Username: "bob", Password: ""},
	}, got)

	_, err = DecodeCredentials(strings.NewReader("nocomma\n"))
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestFiles_MissingFileIsEmpty(t *testing.T) {
	dir := t.TempDir()

	products, err := LoadCatalog(filepath.Join(dir, "products.txt"))
	require.NoError(t, err)
	assert.Empty(t, products)

	promotions, err := LoadPromotions(filepath.Join(dir, "promotions.txt"))
	require.NoError(t, err)
	assert.Empty(t, promotions)

	orders, err := LoadOrders(filepath.Join(dir, "orders.txt"), nil)
	require.NoError(t, err)
	assert.Empty(t, orders)

	reviews, err := LoadReviews(filepath.Join(dir, "reviews.txt"))
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestFiles_SaveAndLoad(t *testing.T) {
	for _, name := range []string{"plain.txt", "compressed.txt.gz"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			productsPath := filepath.Join(dir, "products-"+name)
			ordersPath := filepath.Join(dir, "orders-"+name)

			require.NoError(t, SaveCatalog(testProducts(), productsPath))
			require.NoError(t, SaveOrders(testOrders(), ordersPath))

			products, err := LoadCatalog(productsPath)
			require.NoError(t, err)
			requireSameProducts(t, testProducts(), products)

			orders, err := LoadOrders(ordersPath, products)
			require.NoError(t, err)
			requireSameOrders(t, testOrders(), orders)
		})
	}
}

func TestFiles_ParseErrorCarriesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "promotions.txt")
	require.NoError(t, os.WriteFile(path, []byte("1,Sale,10\n"), 0o644))

	_, err := LoadPromotions(path)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, path, perr.Path)
	assert.Equal(t, 1, perr.Line)
}

func TestFiles_FailedSaveKeepsPreviousContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "products.txt")
	require.NoError(t, SaveCatalog(testProducts(), path))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	err = SaveCatalog([]product.Product{product.New(3, "bad;name", d("1"), 1)}, path)
	require.Error(t, err)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestFiles_AppendReview(t *testing.T) {
	for _, name := range []string{"reviews.txt", "reviews.txt.gz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			p := testProducts()[0]

			require.NoError(t, AppendReview(p, "alice", 5, path))
			require.NoError(t, AppendReview(p, "bob", 3, path))

			reviews, err := LoadReviews(path)
			require.NoError(t, err)
			require.Len(t, reviews, 2)
			assert.Equal(t, 1, reviews[0].ProductID)
			assert.Equal(t, "alice", reviews[0].Reviewer)
			assert.Equal(t, 5, reviews[0].Rating)
			assert.Equal(t, "bob", reviews[1].Reviewer)
		})
	}
}

func TestFiles_AppendReviewRejectsReserved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.txt")
	err := AppendReview(testProducts()[0], "eve,admin", 5, path)

	var verr *validate.Error
	require.ErrorAs(t, err, &verr)
	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestFiles_Credentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.txt")
	require.NoError(t, AppendCredential(Credential{Username: "alice", Password: "secret"}, path))
	require.NoError(t, AppendCredential(Credential{Username: "bob", Password: "hunter2"}, path))

	creds, err := LoadCredentials(path)
	require.NoError(t, err)
	require.Len(t, creds, 2)
	assert.Equal(t, "bob", creds[1].Username)

	require.NoError(t, SaveCredentials(creds[:1], path))
	creds, err = LoadCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, []Credential{{Username: "alice", Password: "secret"}}, creds)
}

func TestFiles_SaveSucceeds(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, SaveCatalog(testProducts(), filepath.Join(dir, "products.txt")))
	require.NoError(t, SavePromotions([]promotion.Promotion{
		{ID: 1, Description: "Sale", DiscountPercent: d("5"), ProductIDs: []int{1}},
	}, filepath.Join(dir, "promotions.txt")))
	require.NoError(t, SaveOrders(testOrders(), filepath.Join(dir, "orders.txt")))
	require.NoError(t, SaveCredentials([]Credential{{Username: "alice", Password: "x"}}, filepath.Join(dir, "users.txt")))
	require.NoError(t, SaveReviews(testProducts(), filepath.Join(dir, "reviews.txt")))
}

func TestFiles_LongLinesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.txt")
	name := strings.Repeat("k", 1<<20+16)
	in := []product.Product{product.New(1, name, d("1"), 1), product.New(2, "Pen", d("2"), 2)}

	require.NoError(t, SaveCatalog(in, path))

	got, err := LoadCatalog(path)
	require.NoError(t, err)
	requireSameProducts(t, in, got)
}

func TestDecodeReviews_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "rating above range", input: "1,Pen,alice,6\n"},
		{name: "rating below range", input: "1,Pen,alice,0\n"},
		{name: "empty reviewer", input: "1,Pen, ,3\n"},
		{name: "field count", input: "1,Pen,alice\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeReviews(strings.NewReader(tt.input))

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
		})
	}
}

func TestFiles_SaveReviewsRewritesLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.txt")
	products := testProducts()
	require.NoError(t, AppendReview(products[0], "alice", 5, path))
	require.NoError(t, AppendReview(products[1], "bob", 2, path))

	// Product 1 lost its reviews, product 2 kept one.
	products[1].AddReview("bob", 2)
	require.NoError(t, SaveReviews(products, path))

	reviews, err := LoadReviews(path)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, 2, reviews[0].ProductID)
	assert.Equal(t, "bob", reviews[0].Reviewer)
}
