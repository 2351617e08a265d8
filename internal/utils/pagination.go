package utils

import (
	bichon_errors "github.com/therolffr/bichon/errors"
)

// DataPage is the paginated wrapper returned by list endpoints and index
// queries.
type DataPage[T any] struct {
	Page       uint64 `json:"page"`
	PageSize   uint64 `json:"pageSize"`
	TotalItems uint64 `json:"totalItems"`
	TotalPages uint64 `json:"totalPages"`
	Data       []T    `json:"data"`
}

// Paginate slices items into a DataPage. Both page and pageSize must be
// positive; an offset past the end yields an empty data slice.
func Paginate[T any](items []T, page, pageSize uint64) (*DataPage[T], error) {
	if page == 0 || pageSize == 0 {
		return nil, bichon_errors.New(bichon_errors.InvalidParameter,
			"'page' and 'page_size' must be greater than 0")
	}

	totalItems := uint64(len(items))
	totalPages := uint64(0)
	if totalItems > 0 {
		totalPages = (totalItems + pageSize - 1) / pageSize
	}

	offset := (page - 1) * pageSize
	var data []T
	if offset < totalItems {
		end := offset + pageSize
		if end > totalItems {
			end = totalItems
		}
		data = items[offset:end]
	} else {
		data = []T{}
	}

	return &DataPage[T]{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
		Data:       data,
	}, nil
}

// NewDataPage wraps an already-sliced result set, carrying the totals
// computed by the storage layer.
func NewDataPage[T any](page, pageSize, totalItems uint64, data []T) *DataPage[T] {
	totalPages := uint64(0)
	if totalItems > 0 {
		totalPages = (totalItems + pageSize - 1) / pageSize
	}
	return &DataPage[T]{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
		Data:       data,
	}
}
