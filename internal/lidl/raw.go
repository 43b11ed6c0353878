package lidl

// Raw* mirror the ticket payload field for field. Every numeric field is a
// comma-decimal string and only becomes a number in Normalize.

type RawCurrency struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
}

type RawStore struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type RawDiscount struct {
	Description string `json:"description,omitempty"`
	Amount      string `json:"amount"`
}

type RawItem struct {
	CurrentUnitPrice string        `json:"currentUnitPrice"`
	Quantity         string        `json:"quantity"`
	IsWeight         bool          `json:"isWeight"`
	OriginalAmount   string        `json:"originalAmount,omitempty"`
	Name             string        `json:"name"`
	CodeInput        string        `json:"codeInput"`
	Discounts        []RawDiscount `json:"discounts"`
}

type RawReceipt struct {
	ID        string      `json:"id"`
	Date      string      `json:"date"`
	Store     RawStore    `json:"store"`
	Currency  RawCurrency `json:"currency"`
	ItemsLine []RawItem   `json:"itemsLine"`
}

// Listing payload. Amounts here are plain JSON numbers.

type RawSummary struct {
	ID            string      `json:"id"`
	Date          string      `json:"date"`
	Currency      RawCurrency `json:"currency"`
	TotalAmount   float64     `json:"totalAmount"`
	ArticlesCount *int        `json:"articlesCount,omitempty"`
}

type RawReceiptsPage struct {
	Page     int          `json:"page"`
	Size     int          `json:"size"`
	Total    int          `json:"totalCount"`
	Receipts []RawSummary `json:"receipts"`
}
