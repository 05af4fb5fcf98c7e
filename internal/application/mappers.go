package application

import "github.com/akshayrajeevnambiar/Pantrypal/internal/domain"

// ToCountDTO converts a domain Count to CountDTO
func ToCountDTO(count *domain.Count) *CountDTO {
	if count == nil {
		return nil
	}

	return &CountDTO{
		ID:            count.ID.Hex(),
		ItemID:        count.ItemID,
		Quantity:      count.Quantity,
		Status:        string(count.Status),
		SubmittedBy:   count.SubmittedBy,
		SubmittedAt:   count.SubmittedAt,
		Notes:         count.Notes,
		ApprovedBy:    count.ApprovedBy,
		ApprovedAt:    count.ApprovedAt,
		ApprovedCount: count.ApprovedCount,
	}
}

// ToItemDTO converts a domain Item to ItemDTO
func ToItemDTO(item *domain.Item) *ItemDTO {
	if item == nil {
		return nil
	}

	return &ItemDTO{
		ID:         item.ID.Hex(),
		Name:       item.Name,
		BaseUnit:   string(item.BaseUnit),
		ParLevel:   item.ParLevel,
		CurrentQty: item.CurrentQty,
		IsBelowPar: item.IsBelowPar(),
		IsActive:   item.IsActive,
		CreatedAt:  item.CreatedAt,
		UpdatedAt:  item.UpdatedAt,
	}
}

// ToUserDTO converts a domain User to UserDTO
func ToUserDTO(user *domain.User) UserDTO {
	return UserDTO{
		ID:    user.ID.Hex(),
		Email: user.Email,
		Name:  user.Name,
		Role:  string(user.Role),
	}
}
