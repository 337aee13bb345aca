package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/studymate/backend/internal/models"
)

type sendOTPRequest struct {
	Phone string `json:"phone"`
}

func (s *Server) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req sendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.otp.Send(r.Context(), req.Phone); err != nil {
		s.badRequest(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

type verifyOTPRequest struct {
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	token, err := s.otp.Verify(r.Context(), req.Phone, req.OTP)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	user, _, err := s.users.Ensure(r.Context(), req.Phone, req.Name, req.Email, "")
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  userResponse(user),
	})
}

type profileUpdateRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoUrl"`
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	user, err := s.users.Get(r.Context(), identity)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, userResponse(user))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req profileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.users.UpdateProfile(r.Context(), identity, req.Name, req.Email, req.PhotoURL); err != nil {
		s.serviceError(w, err)
		return
	}
	user, err := s.users.Get(r.Context(), identity)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, userResponse(user))
}

type switchPlanRequest struct {
	Plan models.PlanType `json:"plan"`
}

func (s *Server) handleSwitchPlan(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req switchPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	user, err := s.users.SwitchPlan(r.Context(), identity, req.Plan)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, userResponse(user))
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.plans.List(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(plans))
	for _, p := range plans {
		out = append(out, map[string]any{
			"name":            p.Name,
			"description":     p.Description,
			"currency":        p.Currency,
			"priceMinorUnits": p.PriceMinorUnits,
			"credits":         p.Credits,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetCredits(w http.ResponseWriter, r *http.Request) {
	balance, err := s.generation.Balance(r.Context(), identityFrom(r))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"credits": balance})
}

func userResponse(user *models.User) map[string]any {
	return map[string]any{
		"identityId": user.IdentityID,
		"name":       user.Name,
		"email":      user.Email,
		"photoUrl":   user.PhotoURL,
		"plan":       user.Plan,
		"credits":    user.Credits,
	}
}
