package lidl

import (
	"bytes"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/joseph-ayodele/grocery-receipts/internal/locale"
	"github.com/joseph-ayodele/grocery-receipts/internal/receipt"
)

const (
	lineIDPrefix  = "purchase_list_line_"
	barcodePrefix = "lidl-"

	attrCurrency    = "data-currency"
	attrArticleID   = "data-art-id"
	attrUnitPrice   = "data-unit-price"
	attrDescription = "data-art-description"
	attrQuantity    = "data-art-quantity"
)

// HTMLExtractor rebuilds a receipt from the scraped receipt page.
type HTMLExtractor struct {
	Logger *slog.Logger
}

func NewHTMLExtractor(logger *slog.Logger) *HTMLExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTMLExtractor{Logger: logger}
}

// ParseHTMLReceipt extracts a receipt from an HTML document. The page does
// not carry the receipt id, date or store, so the caller supplies them.
func ParseHTMLReceipt(id string, date time.Time, store receipt.Store, r io.Reader) (*receipt.Detailed, error) {
	return NewHTMLExtractor(nil).Extract(id, date, store, r)
}

// ParseHTMLReceiptBytes is ParseHTMLReceipt for raw bytes.
func ParseHTMLReceiptBytes(id string, date time.Time, store receipt.Store, doc []byte) (*receipt.Detailed, error) {
	return NewHTMLExtractor(nil).Extract(id, date, store, bytes.NewReader(doc))
}

func (x *HTMLExtractor) Extract(id string, date time.Time, store receipt.Store, r io.Reader) (*receipt.Detailed, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, &ParseError{Kind: KindMalformed, Detail: "html", Err: err}
	}

	lines := selectLines(root)

	var currency *receipt.Currency
	items := make([]receipt.Item, 0, len(lines))

	for i, el := range lines {
		// The backend sometimes wraps one line in several elements with the
		// same id; only the last one is authoritative.
		if i+1 < len(lines) && attr(lines[i+1], "id") == attr(el, "id") {
			continue
		}

		for _, class := range strings.Fields(attr(el, "class")) {
			switch class {
			case "currency":
				symbol, err := requireAttr(el, attrCurrency)
				if err != nil {
					return nil, err
				}
				next := receipt.Currency{ID: strings.TrimSpace(textContent(el)), Symbol: symbol}
				if currency != nil && !currency.Equal(next) {
					x.Logger.Warn("lidl.html.currency_overridden",
						"receipt_id", id, "previous", currency.ID, "current", next.ID)
				}
				currency = &next

			case "article":
				if isSubLine(el) {
					continue
				}
				item, err := parseArticle(el)
				if err != nil {
					return nil, err
				}
				items = append(items, item)

			case "discount":
				amount, err := parseDiscount(el)
				if err != nil {
					return nil, err
				}
				if len(items) == 0 {
					return nil, ErrDiscountWithoutPrecedingItem
				}
				last := &items[len(items)-1]
				last.Discounts = append(last.Discounts, receipt.Discount{Amount: amount})
			}
		}
	}

	if currency == nil {
		return nil, ErrMissingCurrency
	}

	return &receipt.Detailed{
		ID:       id,
		Items:    items,
		Date:     date,
		Currency: *currency,
		Store:    store,
	}, nil
}

func parseArticle(el *html.Node) (receipt.Item, error) {
	artID, err := requireAttr(el, attrArticleID)
	if err != nil {
		return receipt.Item{}, err
	}
	rawPrice, err := requireAttr(el, attrUnitPrice)
	if err != nil {
		return receipt.Item{}, err
	}
	unitPrice, err := locale.ParseDecimal(rawPrice)
	if err != nil {
		return receipt.Item{}, unparsableNumber("unit price", err)
	}
	name, err := requireAttr(el, attrDescription)
	if err != nil {
		return receipt.Item{}, err
	}

	// The quantity attribute is omitted for a single piece. A decimal comma
	// is the only remaining hint that the line is sold by weight.
	quantity, isWeight := 1.0, false
	if rawQuantity, ok := lookupAttr(el, attrQuantity); ok {
		isWeight = locale.IsFractional(rawQuantity)
		quantity, err = locale.ParseDecimal(rawQuantity)
		if err != nil {
			return receipt.Item{}, unparsableNumber("quantity", err)
		}
	}

	return receipt.Item{
		UnitPrice: unitPrice,
		Quantity:  quantity,
		IsWeight:  isWeight,
		Name:      name,
		Barcode:   barcodePrefix + artID,
		Discounts: []receipt.Discount{},
	}, nil
}

// parseDiscount reads the last token of the line, which may be printed negative.
func parseDiscount(el *html.Node) (float64, error) {
	fields := strings.Fields(textContent(el))
	if len(fields) == 0 {
		return 0, unparsableNumber("discount amount", nil)
	}
	amount, err := locale.ParseDecimal(fields[len(fields)-1])
	if err != nil {
		return 0, unparsableNumber("discount amount", err)
	}
	return math.Abs(amount), nil
}

// isSubLine reports whether the element continues the previous article:
// its first text node starts with whitespace.
func isSubLine(el *html.Node) bool {
	text, ok := firstText(el)
	if !ok || text == "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text)
	return unicode.IsSpace(r)
}

// selectLines returns every element whose id starts with the line prefix, in
// document order.
func selectLines(root *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && strings.HasPrefix(attr(n, "id"), lineIDPrefix) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func firstText(n *html.Node) (string, bool) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			return c.Data, true
		}
		if s, ok := firstText(c); ok {
			return s, true
		}
	}
	return "", false
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func attr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func requireAttr(n *html.Node, key string) (string, error) {
	v, ok := lookupAttr(n, key)
	if !ok {
		return "", missingAttribute(key)
	}
	return v, nil
}
