package exchange

import (
	"context"
	"strconv"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/avolkov/bandbot/internal/domain"
)

// BinanceTrader implements Trader for Binance spot.
type BinanceTrader struct {
	client *binance.Client
}

func NewBinanceTrader(client *binance.Client) *BinanceTrader {
	return &BinanceTrader{client: client}
}

func (t *BinanceTrader) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	svc := t.client.NewCreateOrderService().
		Symbol(req.Pair.Symbol()).
		Side(binance.SideType(req.Side)).
		Type(binance.OrderType(req.Type)).
		Quantity(req.Quantity.String()).
		NewClientOrderID(req.ClientOrderID)

	if req.Type == domain.OrderTypeLimit {
		svc = svc.Price(req.Price.String()).TimeInForce(binance.TimeInForceTypeGTC)
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		return domain.OrderResult{}, errors.Wrapf(err, "failed to place binance %s %s order", req.Side, req.Type)
	}

	executedQty, err := decimal.NewFromString(resp.ExecutedQuantity)
	if err != nil {
		return domain.OrderResult{}, errors.Wrap(err, "failed to parse executed quantity")
	}

	fills := make([]domain.Fill, 0, len(resp.Fills))
	for _, f := range resp.Fills {
		price, err := decimal.NewFromString(f.Price)
		if err != nil {
			return domain.OrderResult{}, errors.Wrap(err, "failed to parse fill price")
		}
		qty, err := decimal.NewFromString(f.Quantity)
		if err != nil {
			return domain.OrderResult{}, errors.Wrap(err, "failed to parse fill quantity")
		}
		fills = append(fills, domain.Fill{Price: price, Quantity: qty})
	}

	return domain.OrderResult{
		OrderID:       strconv.FormatInt(resp.OrderID, 10),
		ClientOrderID: resp.ClientOrderID,
		Status:        mapBinanceStatus(resp.Status),
		ExecutedQty:   executedQty,
		Fills:         fills,
	}, nil
}

func (t *BinanceTrader) GetOrder(ctx context.Context, pair domain.Pair, clientOrderID string) (domain.OrderResult, error) {
	order, err := t.client.NewGetOrderService().
		Symbol(pair.Symbol()).
		OrigClientOrderID(clientOrderID).
		Do(ctx)
	if err != nil {
		if apiErr, ok := err.(*common.APIError); ok && apiErr.Code == -2013 {
			// order does not exist
			return domain.OrderResult{ClientOrderID: clientOrderID, Status: domain.OrderStatusNotFound}, nil
		}
		return domain.OrderResult{}, errors.Wrap(err, "failed to query binance order status")
	}

	executedQty, err := decimal.NewFromString(order.ExecutedQuantity)
	if err != nil {
		return domain.OrderResult{}, errors.Wrap(err, "failed to parse executed quantity")
	}
	quoteSpent, err := decimal.NewFromString(order.CummulativeQuoteQuantity)
	if err != nil {
		return domain.OrderResult{}, errors.Wrap(err, "failed to parse cumulative quote quantity")
	}

	return domain.OrderResult{
		OrderID:       strconv.FormatInt(order.OrderID, 10),
		ClientOrderID: order.ClientOrderID,
		Status:        mapBinanceStatus(order.Status),
		ExecutedQty:   executedQty,
		QuoteSpent:    quoteSpent,
	}, nil
}

func (t *BinanceTrader) GetBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	account, err := t.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to get binance account balance")
	}

	for _, balance := range account.Balances {
		if balance.Asset == asset {
			free, err := decimal.NewFromString(balance.Free)
			if err != nil {
				return decimal.Zero, errors.Wrap(err, "failed to parse balance")
			}
			return free, nil
		}
	}

	return decimal.Zero, nil
}

func (t *BinanceTrader) GetSymbolRules(ctx context.Context, pair domain.Pair) (domain.SymbolRules, error) {
	info, err := t.client.NewExchangeInfoService().Symbols(pair.Symbol()).Do(ctx)
	if err != nil {
		return domain.SymbolRules{}, errors.Wrapf(err, "failed to fetch binance exchange info for %s", pair.String())
	}

	for _, s := range info.Symbols {
		if s.Symbol != pair.Symbol() {
			continue
		}

		var rules domain.SymbolRules

		if pf := s.PriceFilter(); pf != nil {
			if rules.TickSize, err = decimal.NewFromString(pf.TickSize); err != nil {
				return domain.SymbolRules{}, errors.Wrap(err, "failed to parse tick size")
			}
		}
		if lf := s.LotSizeFilter(); lf != nil {
			if rules.StepSize, err = decimal.NewFromString(lf.StepSize); err != nil {
				return domain.SymbolRules{}, errors.Wrap(err, "failed to parse step size")
			}
			if rules.MinQty, err = decimal.NewFromString(lf.MinQuantity); err != nil {
				return domain.SymbolRules{}, errors.Wrap(err, "failed to parse min quantity")
			}
		}
		if nf := s.NotionalFilter(); nf != nil {
			if rules.MinNotional, err = decimal.NewFromString(nf.MinNotional); err != nil {
				return domain.SymbolRules{}, errors.Wrap(err, "failed to parse min notional")
			}
		} else if mnf := s.MinNotionalFilter(); mnf != nil {
			if rules.MinNotional, err = decimal.NewFromString(mnf.MinNotional); err != nil {
				return domain.SymbolRules{}, errors.Wrap(err, "failed to parse min notional")
			}
		}

		return rules, nil
	}

	return domain.SymbolRules{}, errors.Errorf("symbol %s not found in binance exchange info", pair.Symbol())
}

func mapBinanceStatus(status binance.OrderStatusType) domain.OrderStatus {
	switch status {
	case binance.OrderStatusTypeNew:
		return domain.OrderStatusNew
	case binance.OrderStatusTypePartiallyFilled:
		return domain.OrderStatusPartiallyFilled
	case binance.OrderStatusTypeFilled:
		return domain.OrderStatusFilled
	case binance.OrderStatusTypeCanceled, binance.OrderStatusTypePendingCancel:
		return domain.OrderStatusCanceled
	case binance.OrderStatusTypeRejected:
		return domain.OrderStatusRejected
	case binance.OrderStatusTypeExpired:
		return domain.OrderStatusExpired
	default:
		return domain.OrderStatusNew
	}
}
