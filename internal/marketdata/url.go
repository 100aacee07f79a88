package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/predictos/predictbot/internal/domain"
)

// ParseMarketURL detects the platform from a market page URL and extracts
// the native identifier: the event slug for polymarket.com, the ticker for
// kalshi.com.
func ParseMarketURL(rawURL string) (domain.MarketRef, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return domain.MarketRef{}, fmt.Errorf("marketdata: parse url: %w", err)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	segments := splitPath(u.Path)
	if len(segments) == 0 {
		return domain.MarketRef{}, fmt.Errorf("marketdata: url %q has no market path", rawURL)
	}
	last := segments[len(segments)-1]

	switch {
	case host == "polymarket.com" || strings.HasSuffix(host, ".polymarket.com"):
		return domain.MarketRef{Platform: domain.PlatformPolymarket, ID: last}, nil
	case host == "kalshi.com" || strings.HasSuffix(host, ".kalshi.com"):
		// Kalshi tickers are uppercase in the API but lowercase in URLs.
		return domain.MarketRef{Platform: domain.PlatformKalshi, ID: strings.ToUpper(last)}, nil
	default:
		return domain.MarketRef{}, fmt.Errorf("marketdata: unrecognized market host %q", host)
	}
}

// ResolveMarketByURL resolves a market straight from its page URL.
func (s *Service) ResolveMarketByURL(ctx context.Context, rawURL string) (domain.Market, error) {
	ref, err := ParseMarketURL(rawURL)
	if err != nil {
		return domain.Market{}, err
	}
	return s.ResolveMarket(ctx, ref)
}

func splitPath(p string) []string {
	var out []string
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
