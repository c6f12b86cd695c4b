package inventory

import (
	"sort"

	"github.com/shopspring/decimal"
)

// RecentMovementsLimit is how many movements the dashboard lists.
const RecentMovementsLimit = 10

// DashboardFilter narrows the dashboard. Zero fields match everything.
type DashboardFilter struct {
	Category     Category     `json:"category,omitempty"`
	WarehouseID  WarehouseID  `json:"warehouseId,omitempty"`
	DocumentKind DocumentKind `json:"-"`
	Status       Status       `json:"-"`
}

// KPIs are the headline counters.
type KPIs struct {
	TotalProducts      int `json:"totalProducts"`
	LowStock           int `json:"lowStockCount"`
	OutOfStock         int `json:"outOfStockCount"`
	PendingReceipts    int `json:"pendingReceipts"`
	PendingDeliveries  int `json:"pendingDeliveries"`
	ScheduledTransfers int `json:"scheduledTransfers"`
}

type CategoryStock struct {
	Category Category `json:"category"`
	Quantity int      `json:"value"`
}

type StatusShare struct {
	Status     Status `json:"status"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// Dashboard is a read model computed from a State snapshot.
type Dashboard struct {
	KPIs               KPIs            `json:"kpis"`
	StockByCategory    []CategoryStock `json:"stockByCategory"`
	RecentMovements    []StockMovement `json:"recentMovements"`
	StatusDistribution []StatusShare   `json:"statusDistribution"`
}

// Summarize computes the dashboard for s.
//
// A product with zero stock counts as out of stock, one below its reorder
// level as low stock. Stock sums honor the warehouse filter. The status
// distribution omits empty statuses, is sorted by count descending, and
// rounds percentages half-up.
func Summarize(s State, f DashboardFilter) Dashboard {
	d := Dashboard{
		StockByCategory:    []CategoryStock{},
		StatusDistribution: []StatusShare{},
	}

	stock := make(map[ProductID]int)
	for _, loc := range s.StockLocations {
		if f.WarehouseID != "" && loc.WarehouseID != f.WarehouseID {
			continue
		}
		stock[loc.ProductID] += loc.Quantity
	}

	byCategory := make(map[Category]int)
	var categories []Category
	for _, p := range s.Products {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		d.KPIs.TotalProducts++
		total := stock[p.ID]
		switch {
		case total == 0:
			d.KPIs.OutOfStock++
		case total < p.ReorderLevel:
			d.KPIs.LowStock++
		}
		if _, seen := byCategory[p.Category]; !seen {
			categories = append(categories, p.Category)
		}
		byCategory[p.Category] += total
	}
	for _, c := range categories {
		d.StockByCategory = append(d.StockByCategory, CategoryStock{Category: c, Quantity: byCategory[c]})
	}

	kindAllowed := func(k DocumentKind) bool { return f.DocumentKind == 0 || f.DocumentKind == k }
	atWarehouse := func(w WarehouseID) bool { return f.WarehouseID == "" || w == f.WarehouseID }

	counts := make(map[Status]int)
	total := 0
	countDoc := func(k DocumentKind, st Status) {
		if !kindAllowed(k) || (f.Status != statusUnknown && st != f.Status) {
			return
		}
		counts[st]++
		total++
	}

	for _, r := range s.Receipts {
		if !atWarehouse(r.WarehouseID) {
			continue
		}
		if kindAllowed(KindReceipt) && (r.Status == StatusDraft || r.Status == StatusWaiting) {
			d.KPIs.PendingReceipts++
		}
		countDoc(KindReceipt, r.Status)
	}
	for _, del := range s.Deliveries {
		if !atWarehouse(del.WarehouseID) {
			continue
		}
		if kindAllowed(KindDelivery) && !del.Status.IsTerminal() {
			d.KPIs.PendingDeliveries++
		}
		countDoc(KindDelivery, del.Status)
	}
	for _, t := range s.Transfers {
		if !atWarehouse(t.SourceWarehouseID) && !atWarehouse(t.DestinationWarehouseID) {
			continue
		}
		if kindAllowed(KindTransfer) && (t.Status == StatusDraft || t.Status == StatusWaiting) {
			d.KPIs.ScheduledTransfers++
		}
		countDoc(KindTransfer, t.Status)
	}
	for _, a := range s.Adjustments {
		if !atWarehouse(a.WarehouseID) {
			continue
		}
		countDoc(KindAdjustment, a.Status)
	}

	for _, st := range AllStatuses {
		n := counts[st]
		if n == 0 {
			continue
		}
		d.StatusDistribution = append(d.StatusDistribution, StatusShare{
			Status:     st,
			Count:      n,
			Percentage: percentOf(n, total),
		})
	}
	sort.SliceStable(d.StatusDistribution, func(i, j int) bool {
		return d.StatusDistribution[i].Count > d.StatusDistribution[j].Count
	})

	d.RecentMovements = recentMovements(s, f)
	return d
}

// percentOf returns n/total as a whole percentage, rounded half-up.
func percentOf(n, total int) int {
	if total == 0 {
		return 0
	}
	pct := decimal.NewFromInt(int64(n)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(0)
	return int(pct.IntPart())
}

func recentMovements(s State, f DashboardFilter) []StockMovement {
	category := make(map[ProductID]Category, len(s.Products))
	for _, p := range s.Products {
		category[p.ID] = p.Category
	}
	l := NewLedger(nil, nil)
	for _, m := range s.Movements {
		if f.Category != "" && category[m.ProductID] != f.Category {
			continue
		}
		l.movements = append(l.movements, m)
	}
	return l.RecentMovements(MovementFilter{WarehouseID: f.WarehouseID}, RecentMovementsLimit)
}
