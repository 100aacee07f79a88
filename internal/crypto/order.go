package crypto

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"

	"github.com/predictos/predictbot/internal/domain"
)

// usdcScale converts dollar amounts to USDC's 6-decimal integer units.
const usdcScale = 1e6

// zeroAddress is the open taker for public CLOB orders.
const zeroAddress = "0x0000000000000000000000000000000000000000"

// maxSalt bounds the random order salt (2^62, well inside uint256).
var maxSalt = new(big.Int).Lsh(big.NewInt(1), 62)

// OrderAmounts converts a plan level's probability price and USD size into
// the CLOB's integer maker/taker amounts. A buy gives USDC and takes
// shares; a sell is the reverse.
func OrderAmounts(side domain.OrderSide, price, size float64) (maker, taker string) {
	usd := big.NewInt(int64(math.Round(size * usdcScale)))
	shares := big.NewInt(int64(math.Round(size / price * usdcScale)))

	if side == domain.OrderSideSell {
		return shares.String(), usd.String()
	}
	return usd.String(), shares.String()
}

// SignLevel builds and signs the submission-ready order request for one
// plan level. The salt is random per call; signing the same level twice
// yields distinct valid orders.
func (s *Signer) SignLevel(level domain.OrderLevel) (domain.SignedOrderRequest, error) {
	if level.Price <= 0 || level.Price >= 1 {
		return domain.SignedOrderRequest{}, fmt.Errorf("crypto: %w: level price %.4f outside (0, 1)",
			domain.ErrSigningFailed, level.Price)
	}

	salt, err := rand.Int(rand.Reader, maxSalt)
	if err != nil {
		return domain.SignedOrderRequest{}, fmt.Errorf("crypto: %w: generating salt: %v",
			domain.ErrSigningFailed, err)
	}

	sideCode := 0 // BUY
	if level.Side == domain.OrderSideSell {
		sideCode = 1
	}
	makerAmt, takerAmt := OrderAmounts(level.Side, level.Price, level.Size)

	maker := s.Address().Hex()
	payload := OrderPayload{
		Salt:          salt.String(),
		Maker:         maker,
		Signer:        maker,
		Taker:         zeroAddress,
		TokenID:       level.TokenID,
		MakerAmount:   makerAmt,
		TakerAmount:   takerAmt,
		Expiration:    "0",
		Nonce:         "0",
		FeeRateBps:    "0",
		Side:          sideCode,
		SignatureType: 0,
	}

	sig, err := s.SignOrder(payload)
	if err != nil {
		return domain.SignedOrderRequest{}, fmt.Errorf("crypto: %w: %v", domain.ErrSigningFailed, err)
	}

	return domain.SignedOrderRequest{
		Level:     level,
		Maker:     maker,
		Salt:      salt.String(),
		Signature: sig,
	}, nil
}
