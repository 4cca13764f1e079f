package domain

// Token identifies an SPL token by its mint address.
type Token struct {
	Address  string // base58 mint address
	Symbol   string
	Decimals uint8
}

// TokenPair identifies a tradeable instrument. Order matters: prices are
// quoted as quote units per base unit.
type TokenPair struct {
	Base  Token
	Quote Token
}

// String returns the conventional BASE/QUOTE display form.
func (p TokenPair) String() string {
	return p.Base.Symbol + "/" + p.Quote.Symbol
}
