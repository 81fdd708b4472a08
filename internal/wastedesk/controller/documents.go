package controller

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/gartstein/wastedesk/internal/wastedesk/documents"
	"github.com/gartstein/wastedesk/internal/wastedesk/models"
)

func (s *Service) documentLookup(ctx context.Context) (documents.Lookup, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return documents.Lookup{}, err
	}
	return documents.NewLookup(snap.entities, snap.wasteTypes, snap.orderTypes), nil
}

// TransportLetter renders the Begeleidingsbrief of an order as PDF.
func (s *Service) TransportLetter(ctx context.Context, orderID string) ([]byte, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	lookup, err := s.documentLookup(ctx)
	if err != nil {
		return nil, err
	}
	data, err := s.letters.Generate(documents.NewLetter(order, lookup))
	if err != nil {
		s.logger.Error("Failed to render transport letter", zap.String("order_id", orderID), zap.Error(err))
		return nil, err
	}
	return data, nil
}

// ExportOrders writes the orders passing filter to an xlsx workbook.
func (s *Service) ExportOrders(ctx context.Context, filter models.OrderFilter) ([]byte, error) {
	orders, err := s.ListOrders(ctx, filter)
	if err != nil {
		return nil, err
	}
	lookup, err := s.documentLookup(ctx)
	if err != nil {
		return nil, err
	}
	data, err := s.exports.Generate(orders, lookup)
	if err != nil {
		return nil, fmt.Errorf("failed to export orders: %w", err)
	}
	s.logger.Info("Orders exported", zap.Int("orders", len(orders)))
	return data, nil
}
