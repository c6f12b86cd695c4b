/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures that don't map one-to-one onto inventory types.
  Products, warehouses, documents and movements are served as the inventory
  types themselves; their json tags are the persisted layout.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Stock:
    StockDTO, AvailabilityDTO

  Transitions:
    StatusRequest, TransitionDTO

  Lines:
    LinesRequest, AdjustmentLinesRequest

  Scenarios:
    LoadScenarioRequest

VALIDATION:
  Field validation happens in the inventory package (validator tags on the
  *Input types). DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - inventory/catalog.go, inventory/documents.go: input types
*/
package api

import (
	"github.com/warp/stock-master/inventory"
)

// StockDTO is a product's stock across warehouses.
type StockDTO struct {
	ProductID    inventory.ProductID       `json:"productId"`
	Total        int                       `json:"total"`
	ReorderLevel int                       `json:"reorderLevel"`
	Locations    []inventory.StockLocation `json:"locations"`
}

// AvailabilityDTO answers "can this much be taken from there?".
type AvailabilityDTO struct {
	ProductID   inventory.ProductID   `json:"productId"`
	WarehouseID inventory.WarehouseID `json:"warehouseId"`
	Requested   int                   `json:"requested"`
	Available   int                   `json:"available"`
	Sufficient  bool                  `json:"sufficient"`
}

// StatusRequest moves an open document between Draft, Waiting and Ready.
type StatusRequest struct {
	Status inventory.Status `json:"status"`
}

// TransitionDTO is the outcome of validate, cancel or a status change.
type TransitionDTO struct {
	DocumentType string `json:"documentType"`
	inventory.Result
}

// LinesRequest replaces the lines of a receipt, delivery or transfer.
type LinesRequest struct {
	Lines []inventory.LineInput `json:"lines"`
}

// AdjustmentLinesRequest replaces the lines of an adjustment.
type AdjustmentLinesRequest struct {
	Lines []inventory.AdjustmentLineInput `json:"lines"`
}

// LoadScenarioRequest selects a demo scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func toTransitionDTO(res inventory.Result) TransitionDTO {
	return TransitionDTO{DocumentType: res.Kind.String(), Result: res}
}
