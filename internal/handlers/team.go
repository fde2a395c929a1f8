package handlers

import (
	"net/http"
)

// TeamMember is a directory entry in API responses.
type TeamMember struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	PhotoURL  string `json:"photoUrl,omitempty"`
}

// ListTeam handles GET /users/team: the directory consumed by chat and
// presence to resolve display names and avatars.
func (h *Handler) ListTeam(w http.ResponseWriter, r *http.Request) {
	users, err := h.data.ListTeam(r.Context())
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to fetch team")
		return
	}

	team := make([]TeamMember, len(users))
	for i, u := range users {
		team[i] = TeamMember{
			ID:        u.ID,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Email:     u.Email,
			PhotoURL:  u.PhotoURL,
		}
	}

	h.JSON(w, http.StatusOK, team)
}
