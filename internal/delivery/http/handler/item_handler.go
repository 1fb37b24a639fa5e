package handler

import (
	"net/http"
	"strconv"

	"pharmacy-backend/internal/delivery/dto"
	"pharmacy-backend/internal/usecase"
	"pharmacy-backend/pkg/response"
	"pharmacy-backend/pkg/validator"
)

type ItemHandler struct {
	itemUsecase usecase.ItemUsecase
	validator   *validator.CustomValidator
}

func NewItemHandler(itemUsecase usecase.ItemUsecase, validator *validator.CustomValidator) *ItemHandler {
	return &ItemHandler{
		itemUsecase: itemUsecase,
		validator:   validator,
	}
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.ItemRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	item, err := h.itemUsecase.Create(r.Context(), &req)
	if err != nil {
		writeError(w, err, "Failed to create item")
		return
	}

	response.Success(w, http.StatusCreated, "Item created successfully", item)
}

// GetAll handles ?page= and ?limit=
func (h *ItemHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	items, total, err := h.itemUsecase.GetAll(r.Context(), page, limit)
	if err != nil {
		response.InternalServerError(w, "Failed to get items")
		return
	}

	totalPages := int(total) / limit
	if int(total)%limit > 0 {
		totalPages++
	}

	meta := &response.Meta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}

	response.SuccessWithMeta(w, http.StatusOK, "Items retrieved successfully", items, meta)
}

func (h *ItemHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "item")
	if !ok {
		return
	}

	item, err := h.itemUsecase.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to get item")
		return
	}

	response.Success(w, http.StatusOK, "Item retrieved successfully", item)
}

func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "item")
	if !ok {
		return
	}

	var req dto.ItemRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	item, err := h.itemUsecase.Update(r.Context(), id, &req)
	if err != nil {
		writeError(w, err, "Failed to update item")
		return
	}

	response.Success(w, http.StatusOK, "Item updated successfully", item)
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "item")
	if !ok {
		return
	}

	if err := h.itemUsecase.Delete(r.Context(), id); err != nil {
		writeError(w, err, "Failed to delete item")
		return
	}

	response.Success(w, http.StatusOK, "Item deleted successfully", nil)
}
