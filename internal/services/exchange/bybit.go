package exchange

import (
	"context"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/avolkov/bandbot/internal/domain"
)

// BybitTrader implements Trader for Bybit spot (V5 unified account).
type BybitTrader struct {
	client *bybit.Client
}

func NewBybitTrader(client *bybit.Client) *BybitTrader {
	return &BybitTrader{client: client}
}

func (t *BybitTrader) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	side := bybit.SideBuy
	if req.Side == domain.SideSell {
		side = bybit.SideSell
	}
	orderType := bybit.OrderTypeMarket
	if req.Type == domain.OrderTypeLimit {
		orderType = bybit.OrderTypeLimit
	}

	param := bybit.V5CreateOrderParam{
		Category:    bybit.CategoryV5Spot,
		Symbol:      bybit.SymbolV5(req.Pair.Symbol()),
		Side:        side,
		OrderType:   orderType,
		Qty:         req.Quantity.String(),
		OrderLinkID: &req.ClientOrderID,
	}
	if req.Type == domain.OrderTypeLimit {
		price := req.Price.String()
		param.Price = &price
	}

	resp, err := t.client.V5().Order().CreateOrder(param)
	if err != nil {
		return domain.OrderResult{}, errors.Wrapf(err, "failed to place bybit %s %s order", req.Side, req.Type)
	}

	// Bybit acks with the order id only; fills arrive via the order query.
	return domain.OrderResult{
		OrderID:       resp.Result.OrderID,
		ClientOrderID: req.ClientOrderID,
		Status:        domain.OrderStatusNew,
		ExecutedQty:   decimal.Zero,
	}, nil
}

func (t *BybitTrader) GetOrder(ctx context.Context, pair domain.Pair, clientOrderID string) (domain.OrderResult, error) {
	symbol := bybit.SymbolV5(pair.Symbol())

	open, err := t.client.V5().Order().GetOpenOrders(bybit.V5GetOpenOrdersParam{
		Category:    bybit.CategoryV5Spot,
		Symbol:      &symbol,
		OrderLinkID: &clientOrderID,
	})
	if err != nil {
		return domain.OrderResult{}, errors.Wrap(err, "failed to query bybit open orders")
	}
	for _, o := range open.Result.List {
		if o.OrderLinkID == clientOrderID {
			return bybitOrderResult(o.OrderID, o.OrderLinkID, string(o.OrderStatus), o.CumExecQty, o.CumExecValue)
		}
	}

	hist, err := t.client.V5().Order().GetHistoryOrders(bybit.V5GetHistoryOrdersParam{
		Category:    bybit.CategoryV5Spot,
		Symbol:      &symbol,
		OrderLinkID: &clientOrderID,
	})
	if err != nil {
		return domain.OrderResult{}, errors.Wrap(err, "failed to query bybit order history")
	}
	for _, o := range hist.Result.List {
		if o.OrderLinkID == clientOrderID {
			return bybitOrderResult(o.OrderID, o.OrderLinkID, string(o.OrderStatus), o.CumExecQty, o.CumExecValue)
		}
	}

	return domain.OrderResult{ClientOrderID: clientOrderID, Status: domain.OrderStatusNotFound}, nil
}

func bybitOrderResult(orderID, linkID, status, cumExecQty, cumExecValue string) (domain.OrderResult, error) {
	executedQty := decimal.Zero
	if cumExecQty != "" {
		var err error
		if executedQty, err = decimal.NewFromString(cumExecQty); err != nil {
			return domain.OrderResult{}, errors.Wrap(err, "failed to parse executed quantity")
		}
	}
	quoteSpent := decimal.Zero
	if cumExecValue != "" {
		var err error
		if quoteSpent, err = decimal.NewFromString(cumExecValue); err != nil {
			return domain.OrderResult{}, errors.Wrap(err, "failed to parse executed value")
		}
	}

	return domain.OrderResult{
		OrderID:       orderID,
		ClientOrderID: linkID,
		Status:        mapBybitStatus(status),
		ExecutedQty:   executedQty,
		QuoteSpent:    quoteSpent,
	}, nil
}

func mapBybitStatus(status string) domain.OrderStatus {
	switch status {
	case "Filled":
		return domain.OrderStatusFilled
	case "PartiallyFilled":
		return domain.OrderStatusPartiallyFilled
	case "Cancelled", "PartiallyFilledCanceled":
		return domain.OrderStatusCanceled
	case "Rejected":
		return domain.OrderStatusRejected
	case "Deactivated":
		return domain.OrderStatusExpired
	default:
		return domain.OrderStatusNew
	}
}

func (t *BybitTrader) GetBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	resp, err := t.client.V5().Account().GetWalletBalance(bybit.AccountTypeV5("UNIFIED"), []bybit.Coin{bybit.Coin(asset)})
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to get bybit wallet balance")
	}

	for _, account := range resp.Result.List {
		for _, coin := range account.Coin {
			if string(coin.Coin) != asset {
				continue
			}
			raw := coin.WalletBalance
			if raw == "" {
				return decimal.Zero, nil
			}
			free, err := decimal.NewFromString(raw)
			if err != nil {
				return decimal.Zero, errors.Wrap(err, "failed to parse balance")
			}
			return free, nil
		}
	}

	return decimal.Zero, nil
}

func (t *BybitTrader) GetSymbolRules(ctx context.Context, pair domain.Pair) (domain.SymbolRules, error) {
	symbol := bybit.SymbolV5(pair.Symbol())

	resp, err := t.client.V5().Market().GetInstrumentsInfo(bybit.V5GetInstrumentsInfoParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   &symbol,
	})
	if err != nil {
		return domain.SymbolRules{}, errors.Wrapf(err, "failed to fetch bybit instrument info for %s", pair.String())
	}
	if resp.Result.Spot == nil || len(resp.Result.Spot.List) == 0 {
		return domain.SymbolRules{}, errors.Errorf("symbol %s not found in bybit instrument info", pair.Symbol())
	}

	item := resp.Result.Spot.List[0]

	var rules domain.SymbolRules
	if rules.TickSize, err = decimal.NewFromString(item.PriceFilter.TickSize); err != nil {
		return domain.SymbolRules{}, errors.Wrap(err, "failed to parse tick size")
	}
	// spot instruments express the quantity step as base precision
	if rules.StepSize, err = decimal.NewFromString(item.LotSizeFilter.BasePrecision); err != nil {
		return domain.SymbolRules{}, errors.Wrap(err, "failed to parse step size")
	}
	if rules.MinQty, err = decimal.NewFromString(item.LotSizeFilter.MinOrderQty); err != nil {
		return domain.SymbolRules{}, errors.Wrap(err, "failed to parse min quantity")
	}
	if item.LotSizeFilter.MinOrderAmt != "" {
		if rules.MinNotional, err = decimal.NewFromString(item.LotSizeFilter.MinOrderAmt); err != nil {
			return domain.SymbolRules{}, errors.Wrap(err, "failed to parse min notional")
		}
	}

	return rules, nil
}
