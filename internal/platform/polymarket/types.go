package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/predictos/predictbot/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIMarket represents a market as returned by the Polymarket Gamma API.
type APIMarket struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	ConditionID   string   `json:"conditionId"`
	Slug          string   `json:"slug"`
	Active        flexBool `json:"active"` // API may send bool or "true"/"false" string
	Closed        bool     `json:"closed"`
	Outcomes      string   `json:"outcomes"`      // JSON-encoded: e.g. "[\"Up\",\"Down\"]"
	OutcomePrices string   `json:"outcomePrices"` // JSON-encoded: e.g. "[\"0.5\",\"0.5\"]"
	ClobTokenIDs  string   `json:"clobTokenIds"`  // JSON-encoded: e.g. "[\"123\",\"456\"]"
	Tokens        []Token  `json:"tokens"`
	Volume        string   `json:"volume"`
	EndDateISO    string   `json:"endDate"`
}

// Token represents a token entry inside the Gamma API market response.
type Token struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
	Winner  bool   `json:"winner"`
}

// ToDomainMarket normalizes the Gamma shape into the shared Market model.
// Gamma quotes outcome prices as probabilities already, but delivers
// outcome labels, prices, and token IDs as JSON-encoded string arrays that
// must be unpacked in parallel.
func (m *APIMarket) ToDomainMarket() (domain.Market, error) {
	labels, err := decodeStringArray(m.Outcomes)
	if err != nil {
		return domain.Market{}, &DecodeError{Field: "outcomes", Raw: m.Outcomes, Err: err}
	}
	rawPrices, err := decodeStringArray(m.OutcomePrices)
	if err != nil {
		return domain.Market{}, &DecodeError{Field: "outcomePrices", Raw: m.OutcomePrices, Err: err}
	}
	tokenIDs, err := decodeStringArray(m.ClobTokenIDs)
	if err != nil {
		return domain.Market{}, &DecodeError{Field: "clobTokenIds", Raw: m.ClobTokenIDs, Err: err}
	}
	if len(labels) != len(rawPrices) {
		return domain.Market{}, &DecodeError{Field: "outcomePrices", Raw: m.OutcomePrices,
			Err: errMismatchedArrays}
	}

	outcomes := make([]domain.Outcome, 0, len(labels))
	for i, label := range labels {
		price, err := strconv.ParseFloat(rawPrices[i], 64)
		if err != nil {
			return domain.Market{}, &DecodeError{Field: "outcomePrices", Raw: rawPrices[i], Err: err}
		}
		o := domain.Outcome{Label: label, Price: price}
		if i < len(tokenIDs) {
			o.TokenID = tokenIDs[i]
		}
		for _, t := range m.Tokens {
			if t.Outcome == label {
				o.Winner = t.Winner
				if o.TokenID == "" {
					o.TokenID = t.TokenID
				}
			}
		}
		outcomes = append(outcomes, o)
	}

	market := domain.Market{
		Platform:    domain.PlatformPolymarket,
		ID:          m.ID,
		ConditionID: m.ConditionID,
		Slug:        m.Slug,
		Question:    m.Question,
		Outcomes:    outcomes,
		Status:      m.status(),
		FetchedAt:   time.Now().UTC(),
	}
	if market.ConditionID == "" {
		market.ConditionID = market.ID
	}
	if v, err := strconv.ParseFloat(m.Volume, 64); err == nil {
		market.Volume = v
	}
	if t, err := time.Parse(time.RFC3339, m.EndDateISO); err == nil {
		market.Expiry = t
	}
	return market, nil
}

func (m *APIMarket) status() domain.MarketStatus {
	switch {
	case m.Closed:
		return domain.MarketStatusResolved
	case !bool(m.Active):
		return domain.MarketStatusClosing
	default:
		return domain.MarketStatusOpen
	}
}

// decodeStringArray unpacks Gamma's JSON-encoded string arrays.
func decodeStringArray(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// --------------------------------------------------------------------------
// Data API DTOs
// --------------------------------------------------------------------------

// APIPosition represents one holding row from the Polymarket Data API
// positions endpoint.
type APIPosition struct {
	Asset       string  `json:"asset"` // ERC-1155 token ID
	ConditionID string  `json:"conditionId"`
	Outcome     string  `json:"outcome"`
	Size        float64 `json:"size"`
	AvgPrice    float64 `json:"avgPrice"`
	CurPrice    float64 `json:"curPrice"`
}

// ToDomainHolding converts a Data API position row to a Holding.
func (p *APIPosition) ToDomainHolding() domain.Holding {
	return domain.Holding{
		TokenID:  p.Asset,
		Outcome:  p.Outcome,
		Shares:   p.Size,
		AvgPrice: p.AvgPrice,
	}
}

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// APIOrderResult is the response from placing an order via the CLOB API.
type APIOrderResult struct {
	Success     bool   `json:"success"`
	ErrorMsg    string `json:"errorMsg,omitempty"`
	OrderID     string `json:"orderID,omitempty"`
	Status      string `json:"status,omitempty"`
	ShouldRetry bool   `json:"shouldRetry,omitempty"`
}

// --------------------------------------------------------------------------
// WebSocket DTOs
// --------------------------------------------------------------------------

// WSCommand is a subscription command sent over the market WebSocket.
type WSCommand struct {
	Type     string   `json:"type"`
	Channel  string   `json:"channel,omitempty"`
	AssetIDs []string `json:"assets_ids"`
}

// WSMessage is the outer envelope of every frame from the market channel.
type WSMessage struct {
	EventType string `json:"event_type"` // "price_change", "last_trade_price", "book"
	AssetID   string `json:"asset_id"`
	Price     string `json:"price"`
	Timestamp string `json:"timestamp"`
}
