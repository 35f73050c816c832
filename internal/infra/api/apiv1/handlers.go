package apiv1

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"flash-code/internal/compose"
	"flash-code/internal/domain"
	"flash-code/internal/domain/model"
	"flash-code/internal/infra/redis"
)

func routeParam(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

// ===== wire types =====

type Code struct {
	ID        string     `json:"id"`
	Code      string     `json:"code"`
	IsUsed    bool       `json:"is_used"`
	UsedBy    *string    `json:"used_by,omitempty"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedBy string     `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
}

type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	IsAdmin     bool      `json:"is_admin"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

func toCode(c *model.ActivationCode) Code {
	return Code{
		ID:        c.ID,
		Code:      c.Code,
		IsUsed:    c.IsUsed,
		UsedBy:    c.UsedBy,
		UsedAt:    c.UsedAt,
		CreatedBy: c.CreatedBy,
		CreatedAt: c.CreatedAt,
	}
}

func toUser(p *model.Profile) User {
	return User{
		ID:          p.ID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		IsAdmin:     p.IsAdmin,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusUnprocessableEntity, "invalid input")
	case errors.Is(err, domain.ErrDuplicateCode):
		writeError(w, http.StatusConflict, "code already exists")
	case errors.Is(err, domain.ErrAlreadyRegistered):
		writeError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, domain.ErrInvalidOrUsedCode):
		writeError(w, http.StatusBadRequest, "invalid or already used code")
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrAuthFailed):
		writeError(w, http.StatusUnauthorized, "authentication failed")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "admin access required")
	case errors.Is(err, domain.ErrAccountDisabled):
		writeError(w, http.StatusForbidden, "account is disabled")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// ===== auth =====

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !s.allowAttempt(r.Context(), redis.AuthAttemptKey("signup", req.Email)) {
		writeError(w, http.StatusTooManyRequests, "too many attempts, try again later")
		return
	}

	profile, err := s.authUC.SignUp(r.Context(), req.Email, req.Password, req.Code)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if _, err := s.sessions.Mint(w, profile.ID, profile.IsAdmin); err != nil {
		s.log.Error().Err(err).Msg("failed to mint session token")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": toUser(profile)})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !s.allowAttempt(r.Context(), redis.AuthAttemptKey("login", req.Email)) {
		writeError(w, http.StatusTooManyRequests, "too many attempts, try again later")
		return
	}

	profile, err := s.authUC.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if _, err := s.sessions.Mint(w, profile.ID, profile.IsAdmin); err != nil {
		s.log.Error().Err(err).Msg("failed to mint session token")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": toUser(profile)})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	claims := sessionFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":    claims.Subject,
		"admin":      claims.Admin,
		"expires_at": claims.ExpiresAt,
	})
}

// ===== composer =====

type composeField struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Value     string `json:"value"`
	Multiline bool   `json:"multiline"`
}

type composeRequest struct {
	Fields []composeField `json:"fields"`
}

func (s *Server) handleCompose(w http.ResponseWriter, r *http.Request) {
	var req composeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := make([]compose.Field, 0, len(req.Fields))
	for _, f := range req.Fields {
		fields = append(fields, compose.Field{
			ID:        f.ID,
			Label:     f.Label,
			Value:     f.Value,
			Multiline: f.Multiline,
		})
	}

	out := compose.Compose(fields)
	writeJSON(w, http.StatusOK, map[string]any{
		"output":     out,
		"line_count": compose.LineCount(out),
	})
}

// ===== redemption =====

type redeemRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	code, err := s.registryUC.Redeem(r.Context(), req.Code, sessionFrom(r.Context()).Subject)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCode(code))
}

// ===== admin =====

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.registryUC.GetDashboard(r.Context(), sessionFrom(r.Context()).Subject)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	codes := make([]Code, 0, len(d.Codes))
	for _, c := range d.Codes {
		codes = append(codes, toCode(c))
	}
	users := make([]User, 0, len(d.Profiles))
	for _, p := range d.Profiles {
		users = append(users, toUser(p))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"codes": codes,
		"users": users,
		"stats": map[string]any{
			"total_codes":  d.CodeStats.Total,
			"used_codes":   d.CodeStats.Used,
			"unused_codes": d.CodeStats.Unused,
			"total_users":  d.TotalUsers,
			"active_users": d.ActiveUsers,
		},
	})
}

// createCodesRequest generates a batch when Count is set, or registers one
// custom code when Code is set. Exactly one of the two must be present.
type createCodesRequest struct {
	Count int    `json:"count,omitempty"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) handleCreateCodes(w http.ResponseWriter, r *http.Request) {
	var req createCodesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	actor := sessionFrom(r.Context()).Subject

	var created []*model.ActivationCode
	switch {
	case req.Code != "" && req.Count == 0:
		c, err := s.registryUC.CreateCustom(r.Context(), actor, req.Code)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		created = []*model.ActivationCode{c}
	case req.Code == "" && req.Count > 0:
		var err error
		created, err = s.registryUC.Generate(r.Context(), actor, req.Count)
		if err != nil {
			writeDomainError(w, err)
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "provide either count or code")
		return
	}

	items := make([]Code, 0, len(created))
	for _, c := range created {
		items = append(items, toCode(c))
	}
	writeJSON(w, http.StatusCreated, map[string]any{"items": items})
}

func (s *Server) handleDeleteCode(w http.ResponseWriter, r *http.Request) {
	id := routeParam(r, "id")
	if err := s.registryUC.Delete(r.Context(), sessionFrom(r.Context()).Subject, id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	n, err := s.registryUC.BulkDelete(r.Context(), sessionFrom(r.Context()).Subject, req.IDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (s *Server) handlePurgeUsed(w http.ResponseWriter, r *http.Request) {
	n, err := s.registryUC.DeleteAllUsed(r.Context(), sessionFrom(r.Context()).Subject)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

func (s *Server) handleSetUserActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := routeParam(r, "id")
	err := s.registryUC.SetUserActive(r.Context(), sessionFrom(r.Context()).Subject, id, req.Active)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
