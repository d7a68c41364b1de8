package kalshi

// --------------------------------------------------------------------------
// Kalshi API DTOs
// --------------------------------------------------------------------------

// KalshiMarket represents a market as returned by the Kalshi REST API.
// Quotes are in cents and are nil when the field is absent.
type KalshiMarket struct {
	Ticker      string   `json:"ticker"`
	EventTicker string   `json:"event_ticker"`
	Title       string   `json:"title"`
	Subtitle    string   `json:"subtitle"`
	Status      string   `json:"status"`
	YesBid      *float64 `json:"yes_bid"`
	YesAsk      *float64 `json:"yes_ask"`
	NoBid       *float64 `json:"no_bid"`
	NoAsk       *float64 `json:"no_ask"`
	LastPrice   *float64 `json:"last_price"`
	Volume      float64  `json:"volume"`
	Volume24H   float64  `json:"volume_24h"`
	CloseTime   string   `json:"close_time"`
}

// MarketsPage is one page of GET /markets.
type MarketsPage struct {
	Markets []KalshiMarket `json:"markets"`
	Cursor  string         `json:"cursor"`
}

// KalshiErrorResponse represents a Kalshi API error response.
type KalshiErrorResponse struct {
	Detail struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e KalshiErrorResponse) String() string {
	code, msg := e.Code, e.Message
	if code == "" {
		code = e.Detail.Code
	}
	if msg == "" {
		msg = e.Detail.Message
	}
	return msg + " (" + code + ")"
}
