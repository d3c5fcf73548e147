package repository

import (
	"sort"

	"github.com/mamadbah2/xchicks/internal/domain/models"
)

func sortBatches(batches []models.ChickStockBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		if batches[i].Quantity != batches[j].Quantity {
			return batches[i].Quantity > batches[j].Quantity
		}
		return batches[i].BatchName < batches[j].BatchName
	})
}

// HasStatus reports whether status is in statuses. An empty list matches all.
func HasStatus(statuses []models.RequestStatus, status models.RequestStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
