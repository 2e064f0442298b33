// Package events holds the payloads published by the catalog.
package events

import (
	"encoding/json"
	"time"

	"github.com/dongyi/catalog/pkg/messaging"
)

// StockAdjustedEvent is published after a stock adjustment batch commits.
// Carrier holds the propagated trace context of the request that adjusted the stock.
type StockAdjustedEvent struct {
	Carrier    map[string]string   `json:"carrier,omitempty"`
	Items      []StockAdjustedItem `json:"items"`
	AdjustedAt time.Time           `json:"adjusted_at"`
}

// StockAdjustedItem is one product of the batch with the decremented quantities per variant.
type StockAdjustedItem struct {
	ProductID int64            `json:"product_id"`
	Spec      map[string]int32 `json:"spec"`
}

func (e StockAdjustedEvent) Subject() string {
	return messaging.ProductsStockAdjustedSubject
}

func (e StockAdjustedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
