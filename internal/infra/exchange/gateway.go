package exchange

import (
	"context"
	"fmt"
	"strconv"

	"racebot/internal/domain"
)

type limitOrder struct {
	Size            string `json:"size"`
	Price           string `json:"price"`
	PersistenceType string `json:"persistenceType"`
}

type placeInstruction struct {
	OrderType   string     `json:"orderType"`
	SelectionID int64      `json:"selectionId"`
	Side        string     `json:"side"`
	LimitOrder  limitOrder `json:"limitOrder"`
}

type placeOrdersRequest struct {
	MarketID     string             `json:"marketId"`
	Instructions []placeInstruction `json:"instructions"`
}

type instructionReport struct {
	Status              string  `json:"status"`
	BetID               string  `json:"betId"`
	AveragePriceMatched float64 `json:"averagePriceMatched"`
}

type placeOrdersResponse struct {
	Status  string              `json:"status"`
	Reports []instructionReport `json:"instructionReports"`
}

// Gateway submits orders over the exchange REST API. It implements
// domain.OrderGateway and may block; never call it under the cache lock.
type Gateway struct {
	client *Client
}

// NewGateway creates an order gateway.
func NewGateway(client *Client) *Gateway {
	return &Gateway{client: client}
}

// PlaceOrder submits a single limit order and returns the gateway report.
func (g *Gateway) PlaceOrder(ctx context.Context, o *domain.Order) (domain.PlacementReport, error) {
	selectionID, err := strconv.ParseInt(o.SelectionID, 10, 64)
	if err != nil {
		return domain.PlacementReport{}, fmt.Errorf("bad selection id %q: %w", o.SelectionID, err)
	}

	req := placeOrdersRequest{
		MarketID: o.MarketID,
		Instructions: []placeInstruction{{
			OrderType:   "LIMIT",
			SelectionID: selectionID,
			Side:        o.Side,
			LimitOrder: limitOrder{
				Size:            o.Size.String(),
				Price:           o.Price.String(),
				PersistenceType: o.Persistence,
			},
		}},
	}

	var resp placeOrdersResponse
	if err := g.client.doRequest(ctx, "/placeOrders", req, &resp); err != nil {
		return domain.PlacementReport{}, err
	}
	if len(resp.Reports) == 0 {
		return domain.PlacementReport{}, fmt.Errorf("empty placement report, status=%s", resp.Status)
	}

	report := resp.Reports[0]
	return domain.PlacementReport{
		Status:       report.Status,
		BetID:        report.BetID,
		MatchedPrice: report.AveragePriceMatched,
	}, nil
}
