package converter

import (
	"pharmacy-backend/internal/delivery/dto"
	"pharmacy-backend/internal/domain/entity"
)

// ItemToResponse converts Item entity to ItemResponse DTO
func ItemToResponse(item *entity.Item) *dto.ItemResponse {
	if item == nil {
		return nil
	}
	return &dto.ItemResponse{
		ID:                   item.ID,
		Name:                 item.Name,
		Description:          item.Description,
		Price:                item.Price,
		Stock:                item.Stock,
		RequiresPrescription: item.RequiresPrescription,
		CreatedAt:            item.CreatedAt,
		UpdatedAt:            item.UpdatedAt,
	}
}

// ItemsToResponse converts a slice of Item entities
func ItemsToResponse(items []entity.Item) []dto.ItemResponse {
	responses := make([]dto.ItemResponse, len(items))
	for i := range items {
		responses[i] = *ItemToResponse(&items[i])
	}
	return responses
}
