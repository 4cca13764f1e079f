package domain

// FlashLoanProtocol identifies a lending protocol usable for borrowed-capital
// routes.
type FlashLoanProtocol string

const (
	ProtocolSolend   FlashLoanProtocol = "solend"
	ProtocolPort     FlashLoanProtocol = "port"
	ProtocolMarinade FlashLoanProtocol = "marinade"
)

// FlashLoanParams describes one borrow leg. Transient: constructed only while
// building a borrowed-capital route.
type FlashLoanParams struct {
	Token    Token
	Amount   uint64
	Protocol FlashLoanProtocol
}
