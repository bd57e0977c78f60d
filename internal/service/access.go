package service

import "chirp/internal/models"

// AssertOwner allows the action only when user owns post.
func AssertOwner(user *models.User, post *models.Post) error {
	if user == nil || post == nil || post.OwnerID != user.ID {
		return models.NewForbiddenError("Not authorized to perform requested action")
	}
	return nil
}
