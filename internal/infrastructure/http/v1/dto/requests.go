package dto

import (
	"quimstock/internal/core/types"
)

// CreateItemRequest registers a material or reagent in an area catalog.
type CreateItemRequest struct {
	Name            string         `json:"name" binding:"required"`
	Code            string         `json:"code" binding:"required"`
	Unit            string         `json:"unit" binding:"required"`
	LowStock        types.Quantity `json:"lowStock"`
	InitialQuantity types.Quantity `json:"initialQuantity"`
}

// UpdateItemRequest edits the catalog fields of an item.
type UpdateItemRequest struct {
	Name     string         `json:"name" binding:"required"`
	Code     string         `json:"code" binding:"required"`
	Unit     string         `json:"unit" binding:"required"`
	LowStock types.Quantity `json:"lowStock"`
}

// AdjustRequest books a manual entry or exit movement.
type AdjustRequest struct {
	Quantity    types.Quantity `json:"quantity" binding:"required"`
	Observation string         `json:"observation"`
	LotCode     *string        `json:"lotCode,omitempty"`
}

// CreateFormulaRequest registers a formula skeleton for a reagent.
type CreateFormulaRequest struct {
	MaterialIDs []string `json:"materialIds" binding:"required"`
}

// SetRatiosRequest completes a formula. Ratios are positional: one per
// ingredient, in registration order. Accepts JSON numbers or strings.
type SetRatiosRequest struct {
	Ratios []types.Ratio `json:"ratios" binding:"required"`
}

// ProduceRequest runs a production.
type ProduceRequest struct {
	Quantity       types.Quantity `json:"quantity" binding:"required"`
	AnalysisNumber int            `json:"analysisNumber" binding:"required"`
	Observation    string         `json:"observation"`
}

// RefreshRequest exchanges a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// SetAreasRequest replaces a user's area scope.
type SetAreasRequest struct {
	Areas []string `json:"areas" binding:"required"`
}

// ChangePasswordRequest replaces the caller's own password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// UpdateAccountRequest edits the caller's own profile.
type UpdateAccountRequest struct {
	Email string `json:"email" binding:"required"`
}
