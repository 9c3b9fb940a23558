package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/deifi86/TeamChat/internal/models"
	"github.com/deifi86/TeamChat/internal/repositories"
	"github.com/deifi86/TeamChat/internal/telemetry"
)

// CompanyHandler manages the company lifecycle and its member roster.
type CompanyHandler struct {
	companyRepo repositories.CompanyRepository
	audit       *telemetry.AuditEmitter
}

// NewCompanyHandler builds a CompanyHandler.
func NewCompanyHandler(companyRepo repositories.CompanyRepository, audit *telemetry.AuditEmitter) *CompanyHandler {
	return &CompanyHandler{companyRepo: companyRepo, audit: audit}
}

// MyCompanies lists the companies the caller belongs to, with member counts
// and the caller's role.
func (h *CompanyHandler) MyCompanies(c *gin.Context) {
	userID := c.GetInt("userID")

	companies, err := h.companyRepo.ListCompaniesForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load companies"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"companies": companies})
}

// Search finds companies by name or slug so users can discover one to join.
func (h *CompanyHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if len(query) < 2 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "query must be at least 2 characters"})
		return
	}

	companies, err := h.companyRepo.SearchCompanies(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"companies": companies})
}

// Create opens a new company owned by the caller. The join password is
// bcrypt-hashed before it is stored, and the company starts with a default
// public channel.
func (h *CompanyHandler) Create(c *gin.Context) {
	var req struct {
		Name         string `json:"name" binding:"required,min=2,max=255"`
		JoinPassword string `json:"join_password" binding:"required,min=6,max=100"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.JoinPassword), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create company"})
		return
	}

	userID := c.GetInt("userID")
	company, err := h.companyRepo.CreateCompany(c.Request.Context(), req.Name, string(hash), userID)
	if err != nil {
		emitAudit(c, h.audit, telemetry.AuditCompany, "ERROR", "company create failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create company"})
		return
	}

	emitAudit(c, h.audit, telemetry.AuditCompany, "INFO", "Company created")
	c.JSON(http.StatusCreated, gin.H{"company": company})
}

// Join adds the caller to a company after checking the join password, and
// enrolls them in every public channel.
func (h *CompanyHandler) Join(c *gin.Context) {
	companyID, ok := companyIDFromPath(c)
	if !ok {
		return
	}

	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	company, err := h.companyRepo.GetCompany(c.Request.Context(), companyID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrCompanyNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "company not found"})
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(company.JoinPassword), []byte(req.Password)) != nil {
		emitAudit(c, h.audit, telemetry.AuditAccessDenied, "ERROR", "invalid join password")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid password"})
		return
	}

	userID := c.GetInt("userID")
	if err := h.companyRepo.JoinCompany(c.Request.Context(), companyID, userID); err != nil {
		if errors.Is(err, repositories.ErrAlreadyMember) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "already a member of this company"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join company"})
		return
	}

	emitAudit(c, h.audit, telemetry.AuditCompany, "INFO", "Company joined")
	c.JSON(http.StatusOK, gin.H{"company": company})
}

// Leave removes the caller from the company and its channels. The owner must
// transfer ownership before leaving.
func (h *CompanyHandler) Leave(c *gin.Context) {
	companyID, ok := companyIDFromPath(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if err := h.companyRepo.LeaveCompany(c.Request.Context(), companyID, userID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrOwnerProtected):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "owner cannot leave the company"})
		case errors.Is(err, repositories.ErrMemberNotFound):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "not a member of this company"})
		case errors.Is(err, repositories.ErrCompanyNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "company not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to leave company"})
		}
		return
	}

	emitAudit(c, h.audit, telemetry.AuditCompany, "INFO", "Company left")
	c.Status(http.StatusNoContent)
}

// ListMembers returns the members of a company the caller belongs to.
// Non-members get 404 so company existence is not leaked.
func (h *CompanyHandler) ListMembers(c *gin.Context) {
	companyID, ok := companyIDFromPath(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	member, err := h.companyRepo.IsMember(c.Request.Context(), companyID, userID)
	if err != nil && !errors.Is(err, repositories.ErrCompanyNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusNotFound, gin.H{"error": "company not found"})
		return
	}

	members, err := h.companyRepo.ListMembers(c.Request.Context(), companyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load members"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

// UpdateMember changes a member's role. Admin only; the owner's role is fixed.
func (h *CompanyHandler) UpdateMember(c *gin.Context) {
	companyID, targetID, ok := h.memberMutationArgs(c)
	if !ok {
		return
	}

	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Role != models.RoleAdmin && req.Role != models.RoleUser {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unknown role"})
		return
	}

	if err := h.companyRepo.UpdateMemberRole(c.Request.Context(), companyID, targetID, req.Role); err != nil {
		h.respondMemberMutationError(c, err, "failed to update member")
		return
	}

	emitAudit(c, h.audit, telemetry.AuditCompany, "INFO", "Member role updated")
	c.JSON(http.StatusOK, gin.H{"role": req.Role})
}

// RemoveMember kicks a member out of the company. Admin only; the owner
// cannot be removed.
func (h *CompanyHandler) RemoveMember(c *gin.Context) {
	companyID, targetID, ok := h.memberMutationArgs(c)
	if !ok {
		return
	}

	if err := h.companyRepo.RemoveCompanyMember(c.Request.Context(), companyID, targetID); err != nil {
		h.respondMemberMutationError(c, err, "failed to remove member")
		return
	}

	emitAudit(c, h.audit, telemetry.AuditCompany, "INFO", "Member removed")
	c.Status(http.StatusNoContent)
}

// memberMutationArgs parses the company and target user from the path and
// enforces that the caller is a company admin.
func (h *CompanyHandler) memberMutationArgs(c *gin.Context) (companyID, targetID int, ok bool) {
	companyID, ok = companyIDFromPath(c)
	if !ok {
		return 0, 0, false
	}
	targetID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, 0, false
	}

	userID := c.GetInt("userID")
	admin, err := h.companyRepo.IsAdmin(c.Request.Context(), companyID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify role"})
		return 0, 0, false
	}
	if !admin {
		emitAudit(c, h.audit, telemetry.AuditAccessDenied, "ERROR", "not allowed")
		c.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
		return 0, 0, false
	}
	return companyID, targetID, true
}

func (h *CompanyHandler) respondMemberMutationError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, repositories.ErrOwnerProtected):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "owner cannot be removed or demoted"})
	case errors.Is(err, repositories.ErrMemberNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
	case errors.Is(err, repositories.ErrCompanyNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "company not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

func companyIDFromPath(c *gin.Context) (int, bool) {
	companyID, err := strconv.Atoi(c.Param("company_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid company id"})
		return 0, false
	}
	return companyID, true
}
