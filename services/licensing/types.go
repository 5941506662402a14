package licensing

// PriceQuote is the pricing service answer for a single strategy.
// Price is kept as the display string the service produced; a missing
// price field renders as the literal "unknown".
type PriceQuote struct {
	StrategyID string
	Price      string
}

// License is one purchased license as returned by the license service.
type License struct {
	StrategyID     string `json:"strategy_id"`
	ActivationCode string `json:"activation_code"`
}

// PriceUnknown is the placeholder used when the pricing service answers
// without a price field.
const PriceUnknown = "unknown"
