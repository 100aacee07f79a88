package kalshi

import (
	"time"

	"github.com/predictos/predictbot/internal/domain"
)

// --------------------------------------------------------------------------
// Kalshi API DTOs
// --------------------------------------------------------------------------

// APIMarket represents a market as returned by the Kalshi REST API. All
// prices are quoted in cents (1-99).
type APIMarket struct {
	Ticker         string  `json:"ticker"`
	EventTicker    string  `json:"event_ticker"`
	Title          string  `json:"title"`
	Status         string  `json:"status"` // "open", "closed", "settled"
	YesBid         float64 `json:"yes_bid"`
	YesAsk         float64 `json:"yes_ask"`
	NoBid          float64 `json:"no_bid"`
	NoAsk          float64 `json:"no_ask"`
	LastPrice      float64 `json:"last_price"`
	Volume         int64   `json:"volume"`
	Result         string  `json:"result"` // "yes", "no", "" (unsettled)
	ExpirationTime string  `json:"expiration_time"`
	CloseTime      string  `json:"close_time"`
}

// ToDomainMarket normalizes the Kalshi shape into the shared Market model.
// Kalshi quotes cents; prices are divided by 100 so every outcome carries a
// probability in [0, 1] like the other platforms. A settled market reports
// terminal prices (1.0 for the winner, 0.0 for the loser).
func (m *APIMarket) ToDomainMarket() (domain.Market, error) {
	status := m.status()

	yesPrice := m.yesProbability()
	noPrice := m.NoAsk / 100
	if noPrice <= 0 {
		noPrice = 1 - yesPrice
	}

	yes := domain.Outcome{TokenID: m.Ticker + ":yes", Label: "Yes", Price: yesPrice}
	no := domain.Outcome{TokenID: m.Ticker + ":no", Label: "No", Price: noPrice}

	if status == domain.MarketStatusResolved {
		switch m.Result {
		case "yes":
			yes.Winner, yes.Price, no.Price = true, 1, 0
		case "no":
			no.Winner, no.Price, yes.Price = true, 1, 0
		}
	}

	market := domain.Market{
		Platform:    domain.PlatformKalshi,
		ID:          m.Ticker,
		ConditionID: m.Ticker,
		Slug:        m.Ticker,
		Question:    m.Title,
		Outcomes:    []domain.Outcome{yes, no},
		Status:      status,
		Volume:      float64(m.Volume),
		FetchedAt:   time.Now().UTC(),
	}

	expiry := m.ExpirationTime
	if expiry == "" {
		expiry = m.CloseTime
	}
	if t, err := time.Parse(time.RFC3339, expiry); err == nil {
		market.Expiry = t
	}

	return market, nil
}

func (m *APIMarket) status() domain.MarketStatus {
	switch m.Status {
	case "settled", "finalized":
		return domain.MarketStatusResolved
	case "closed":
		return domain.MarketStatusClosing
	default:
		return domain.MarketStatusOpen
	}
}

// yesProbability picks the best available Yes quote: ask, then last trade,
// then bid.
func (m *APIMarket) yesProbability() float64 {
	switch {
	case m.YesAsk > 0:
		return m.YesAsk / 100
	case m.LastPrice > 0:
		return m.LastPrice / 100
	default:
		return m.YesBid / 100
	}
}

// APIPosition represents one row from the Kalshi portfolio positions
// endpoint. Position is a signed contract count: positive means Yes,
// negative means No.
type APIPosition struct {
	Ticker         string `json:"ticker"`
	Position       int64  `json:"position"`
	TotalTraded    int64  `json:"total_traded"`    // lifetime cents spent
	MarketExposure int64  `json:"market_exposure"` // current value in cents
}

// ToDomainHolding converts a positions row to a Holding. The signed
// contract count maps to an outcome label; the entry price is recovered
// from cents spent per contract.
func (p *APIPosition) ToDomainHolding() domain.Holding {
	shares := float64(p.Position)
	label := "Yes"
	side := "yes"
	if p.Position < 0 {
		shares = -shares
		label = "No"
		side = "no"
	}

	var avgPrice float64
	if shares > 0 {
		avgPrice = float64(p.TotalTraded) / 100 / shares
	}

	return domain.Holding{
		TokenID:  p.Ticker + ":" + side,
		Outcome:  label,
		Shares:   shares,
		AvgPrice: avgPrice,
	}
}

// APIError represents a Kalshi API error response body.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
