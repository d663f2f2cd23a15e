package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"template-market/internal/domain"
	"template-market/internal/domain/model"
	"template-market/internal/domain/ports/repository"
	"template-market/internal/infra/logging"
	"template-market/internal/usecase"
)

// All external-format translation lives here: the wire uses camelCase, the
// domain keeps its own canonical field names.

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps infra faults to transport codes. Expected rejections
// never come through here — they are results, not errors.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid argument")
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "temporarily unavailable, please try again")
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// ----- redemption -----

type redeemRequest struct {
	Code      string `json:"code"`
	SubjectID string `json:"subjectId"`
}

type redeemResponse struct {
	Outcome       string  `json:"outcome"`
	Reason        *string `json:"reason"`
	RemainingUses *int    `json:"remainingUses"`
}

func toRedeemResponse(res *model.RedemptionResult) redeemResponse {
	out := redeemResponse{Outcome: string(res.Outcome), RemainingUses: res.RemainingUses}
	if res.Reason != "" {
		reason := string(res.Reason)
		out.Reason = &reason
	}
	return out
}

// handleRedeem returns 200 for both accepted and rejected outcomes; non-2xx
// is reserved for infrastructure failure.
func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SubjectID == "" {
		// An undecodable body is rejected wholesale before any business
		// logic runs.
		reason := string(model.ReasonMalformedCode)
		writeJSON(w, http.StatusBadRequest, redeemResponse{Outcome: string(model.OutcomeRejected), Reason: &reason})
		return
	}

	ctx := logging.WithSubjectID(r.Context(), req.SubjectID)
	res, err := s.redeemUC.Redeem(ctx, req.Code, req.SubjectID, remoteIP(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRedeemResponse(res))
}

// ----- templates -----

type templateDTO struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	ImageURL     string   `json:"imageUrl"`
	SourceCode   string   `json:"sourceCode,omitempty"`
	Language     string   `json:"language"`
	Tags         []string `json:"tags"`
	RequiresCode bool     `json:"requiresCode"`
	UsageCount   int      `json:"usageCount"`
	IsActive     bool     `json:"isActive"`
	CreatedAt    string   `json:"createdAt"`
}

func toTemplateDTO(t *model.Template) templateDTO {
	return templateDTO{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		ImageURL:     t.ImageURL,
		SourceCode:   t.SourceCode,
		Language:     t.Language,
		Tags:         t.Tags,
		RequiresCode: t.RequiresCode,
		UsageCount:   t.UsageCount,
		IsActive:     t.IsActive,
		CreatedAt:    t.CreatedAt.Format(time.RFC3339),
	}
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	items, err := s.tplUC.List(r.Context(), s.privileged(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	out := make([]templateDTO, 0, len(items))
	for _, t := range items {
		out = append(out, toTemplateDTO(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, tier, err := s.tplUC.Get(r.Context(), chi.URLParam(r, "id"), s.privileged(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		templateDTO
		Tier string `json:"tier"`
	}{toTemplateDTO(t), string(tier)})
}

type unlockRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	var req unlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		reason := string(model.ReasonMalformedCode)
		writeJSON(w, http.StatusBadRequest, redeemResponse{Outcome: string(model.OutcomeRejected), Reason: &reason})
		return
	}

	id := chi.URLParam(r, "id")
	ctx := logging.WithSubjectID(r.Context(), id)
	t, tier, res, err := s.tplUC.Unlock(ctx, id, req.Code, remoteIP(r), s.privileged(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	resp := struct {
		Tier       string          `json:"tier"`
		Redemption *redeemResponse `json:"redemption,omitempty"`
		Template   templateDTO     `json:"template"`
	}{Tier: string(tier), Template: toTemplateDTO(t)}
	if res != nil {
		rr := toRedeemResponse(res)
		resp.Redemption = &rr
	}
	writeJSON(w, http.StatusOK, resp)
}

// ----- admin: session -----

type loginRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !s.auth.CheckPassword(req.Password) {
		writeError(w, http.StatusUnauthorized, "wrong password")
		return
	}
	token, err := s.auth.Mint(w)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// ----- admin: codes -----

type codeDTO struct {
	ID         string  `json:"id"`
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	MaxUses    int     `json:"maxUses"`
	UsedCount  int     `json:"usedCount"`
	ExpiresAt  *string `json:"expiresAt"`
	IsActive   bool    `json:"isActive"`
	IsLongTerm bool    `json:"isLongTerm"`
	RetiredAt  *string `json:"retiredAt"`
	CreatedAt  string  `json:"createdAt"`
}

func toCodeDTO(c *model.AccessCode) codeDTO {
	out := codeDTO{
		ID:         c.ID,
		Code:       c.Code,
		Name:       c.Name,
		MaxUses:    c.MaxUses,
		UsedCount:  c.UsedCount,
		IsActive:   c.IsActive,
		IsLongTerm: c.IsLongTerm,
		CreatedAt:  c.CreatedAt.Format(time.RFC3339),
	}
	if c.ExpiresAt != nil {
		v := c.ExpiresAt.Format(time.RFC3339)
		out.ExpiresAt = &v
	}
	if c.RetiredAt != nil {
		v := c.RetiredAt.Format(time.RFC3339)
		out.RetiredAt = &v
	}
	return out
}

func (s *Server) handleListCodes(w http.ResponseWriter, r *http.Request) {
	includeRetired := r.URL.Query().Get("include_retired") == "true"
	codes, err := s.codeUC.List(r.Context(), includeRetired)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	out := make([]codeDTO, 0, len(codes))
	for _, c := range codes {
		out = append(out, toCodeDTO(c))
	}
	writeJSON(w, http.StatusOK, out)
}

type issueCodeRequest struct {
	Name       string     `json:"name"`
	MaxUses    int        `json:"maxUses"`
	ExpiresAt  *time.Time `json:"expiresAt"`
	IsLongTerm bool       `json:"isLongTerm"`
}

func (s *Server) handleIssueCode(w http.ResponseWriter, r *http.Request) {
	var req issueCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	code, err := s.codeUC.Issue(r.Context(), req.Name, req.MaxUses, req.ExpiresAt, req.IsLongTerm)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCodeDTO(code))
}

type updateCodeRequest struct {
	Name        *string    `json:"name"`
	MaxUses     *int       `json:"maxUses"`
	ExpiresAt   *time.Time `json:"expiresAt"`
	ClearExpiry bool       `json:"clearExpiry"`
	IsActive    *bool      `json:"isActive"`
}

func (s *Server) handleUpdateCode(w http.ResponseWriter, r *http.Request) {
	var req updateCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	code, err := s.codeUC.Update(r.Context(), chi.URLParam(r, "id"), usecaseUpdateParams(req))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCodeDTO(code))
}

func (s *Server) handleDeleteCode(w http.ResponseWriter, r *http.Request) {
	if err := s.codeUC.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ----- admin: audit log -----

type attemptDTO struct {
	ID            string  `json:"id"`
	CodeID        *string `json:"codeId"`
	Code          string  `json:"code"`
	SubjectID     string  `json:"subjectId"`
	RequesterIP   string  `json:"requesterIp"`
	Outcome       string  `json:"outcome"`
	FailureReason *string `json:"failureReason"`
	CreatedAt     string  `json:"createdAt"`
}

func (s *Server) handleQueryLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := repository.RedemptionLogFilter{
		CodeID:    q.Get("code_id"),
		SubjectID: q.Get("subject_id"),
	}
	if v := q.Get("outcome"); v != "" {
		outcome := model.RedemptionOutcome(v)
		f.Outcome = &outcome
	}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Offset, _ = strconv.Atoi(q.Get("offset"))

	attempts, err := s.auditUC.Query(r.Context(), f)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	out := make([]attemptDTO, 0, len(attempts))
	for _, a := range attempts {
		dto := attemptDTO{
			ID:            a.ID,
			CodeID:        a.CodeID,
			Code:          a.CodeText,
			SubjectID:     a.SubjectID,
			RequesterIP:   a.RequesterIP,
			Outcome:       string(a.Outcome),
			FailureReason: a.FailureReason,
			CreatedAt:     a.CreatedAt.Format(time.RFC3339),
		}
		// Hard-deleted codes keep their audit rows but lose the reference.
		// A nil CodeID on an attempt that had matched a record can only mean
		// the code was deleted since.
		if a.CodeID == nil && attemptHadMatch(a) {
			dto.Code = "unknown/deleted"
		}
		out = append(out, dto)
	}
	writeJSON(w, http.StatusOK, out)
}

func attemptHadMatch(a *model.RedemptionAttempt) bool {
	if a.Outcome == model.OutcomeAccepted {
		return true
	}
	if a.FailureReason == nil {
		return false
	}
	switch model.RejectReason(*a.FailureReason) {
	case model.ReasonMalformedCode, model.ReasonCodeNotFound:
		return false
	}
	return true
}

// ----- admin: templates -----

type templateWriteRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	ImageURL     string   `json:"imageUrl"`
	SourceCode   string   `json:"sourceCode"`
	Language     string   `json:"language"`
	Tags         []string `json:"tags"`
	RequiresCode bool     `json:"requiresCode"`
	IsActive     bool     `json:"isActive"`
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t := &model.Template{
		Title:        req.Title,
		Description:  req.Description,
		ImageURL:     req.ImageURL,
		SourceCode:   req.SourceCode,
		Language:     req.Language,
		Tags:         req.Tags,
		RequiresCode: req.RequiresCode,
		IsActive:     req.IsActive,
	}
	if err := s.tplUC.Create(r.Context(), t); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTemplateDTO(t))
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, _, err := s.tplUC.Get(r.Context(), chi.URLParam(r, "id"), true)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	t.Title = req.Title
	t.Description = req.Description
	t.ImageURL = req.ImageURL
	t.SourceCode = req.SourceCode
	t.Language = req.Language
	t.Tags = req.Tags
	t.RequiresCode = req.RequiresCode
	t.IsActive = req.IsActive
	if err := s.tplUC.Update(r.Context(), t); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateDTO(t))
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.tplUC.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func usecaseUpdateParams(req updateCodeRequest) usecase.UpdateCodeParams {
	return usecase.UpdateCodeParams{
		Name:        req.Name,
		MaxUses:     req.MaxUses,
		ExpiresAt:   req.ExpiresAt,
		ClearExpiry: req.ClearExpiry,
		IsActive:    req.IsActive,
	}
}
