package workflow

import (
	"context"

	"github.com/google/uuid"

	"scanner-approval/internal/interfaces"
	"scanner-approval/internal/logger"
	"scanner-approval/internal/metrics"
	"scanner-approval/internal/tradelog"
	"scanner-approval/internal/types"
)

// orderSubmitter places a finalized batch and records every attempt.
type orderSubmitter struct {
	broker interfaces.Broker
	newID  func() string
}

func newOrderSubmitter(broker interfaces.Broker) *orderSubmitter {
	return &orderSubmitter{
		broker: broker,
		newID:  func() string { return uuid.NewString() },
	}
}

// submit places orders in list order, buy before sell within a symbol.
// A failed placement is recorded and the batch continues.
func (s *orderSubmitter) submit(ctx context.Context, orders []types.FinalizedOrder) *Report {
	rep := &Report{BatchID: s.newID()}
	tag := batchTag(rep.BatchID)

	for _, o := range orders {
		for _, side := range o.Action.Sides() {
			p := s.place(ctx, rep.BatchID, tag, o, side)
			rep.Placements = append(rep.Placements, p)
			if p.OK() {
				rep.Succeeded++
			} else {
				rep.Failed++
			}
		}
	}

	metrics.ObserveBatchSize(len(rep.Placements))
	logger.Info(ctx, "Batch submitted",
		"batch_id", rep.BatchID,
		"placements", len(rep.Placements),
		"succeeded", rep.Succeeded,
		"failed", rep.Failed,
	)
	return rep
}

func (s *orderSubmitter) place(ctx context.Context, batchID, tag string, o types.FinalizedOrder, side types.Side) Placement {
	req := types.LimitOrder{
		Symbol: o.Row.Symbol,
		Side:   side,
		Price:  o.Price(side),
		Qty:    o.Quantity,
		Tag:    tag,
	}
	p := Placement{Symbol: req.Symbol, Side: side, Price: req.Price, Qty: req.Qty}

	id, err := s.broker.PlaceLimitOrder(ctx, req)
	p.OrderID, p.Err = id, err

	entry := tradelog.Entry{
		BatchID: batchID,
		Symbol:  req.Symbol,
		Side:    string(side),
		Qty:     req.Qty,
		Price:   req.Price,
		OrderID: id,
		Status:  tradelog.StatusPlaced,
	}
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to place order", err,
			"symbol", req.Symbol,
			"side", side,
			"qty", req.Qty,
			"price", req.Price,
		)
		entry.Status = tradelog.StatusFailed
		entry.Error = err.Error()
	}
	if lerr := tradelog.Append(entry); lerr != nil {
		logger.Warn(ctx, "Could not append trade log", "error", lerr)
	}
	return p
}

// batchTag fits the broker's 20 character order tag limit.
func batchTag(batchID string) string {
	if len(batchID) > 8 {
		batchID = batchID[:8]
	}
	return "scan-" + batchID
}
