package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/deifi86/TeamChat/internal/mocks"
	"github.com/deifi86/TeamChat/internal/models"
	"github.com/deifi86/TeamChat/internal/repositories"
)

func setupCompanyRouter(handler *CompanyHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.GET("/companies", handler.MyCompanies)
	r.POST("/companies", handler.Create)
	r.GET("/companies/search", handler.Search)
	r.POST("/companies/:company_id/join", handler.Join)
	r.POST("/companies/:company_id/leave", handler.Leave)
	r.PUT("/companies/:company_id/members/:user_id", handler.UpdateMember)
	r.DELETE("/companies/:company_id/members/:user_id", handler.RemoveMember)
	return r
}

func TestCreateCompanyHashesJoinPassword(t *testing.T) {
	companyRepo := new(mocks.CompanyRepositoryMock)
	handler := NewCompanyHandler(companyRepo, nil)
	router := setupCompanyRouter(handler)

	companyRepo.On("CreateCompany", mock.Anything, "Acme GmbH", mock.MatchedBy(func(hash string) bool {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret-join")) == nil
	}), 1).Return(models.Company{ID: 7, Name: "Acme GmbH", Slug: "acme-gmbh", OwnerID: 1}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/companies", bytes.NewBufferString(`{"name":"Acme GmbH","join_password":"s3cret-join"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	companyRepo.AssertExpectations(t)
}

func TestCreateCompanyShortPasswordRejected(t *testing.T) {
	companyRepo := new(mocks.CompanyRepositoryMock)
	router := setupCompanyRouter(NewCompanyHandler(companyRepo, nil))

	req := httptest.NewRequest(http.MethodPost, "/companies", bytes.NewBufferString(`{"name":"Acme","join_password":"short"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	companyRepo.AssertNotCalled(t, "CreateCompany", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMyCompaniesListsMemberships(t *testing.T) {
	companyRepo := new(mocks.CompanyRepositoryMock)
	router := setupCompanyRouter(NewCompanyHandler(companyRepo, nil))

	companyRepo.On("ListCompaniesForUser", mock.Anything, 1).Return([]models.CompanyOverview{
		{Company: models.Company{ID: 2, Name: "Acme"}, MembersCount: 5, MyRole: models.RoleAdmin, IsOwner: true},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/companies", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"members_count":5`)
	require.Contains(t, rec.Body.String(), `"my_role":"admin"`)
	companyRepo.AssertExpectations(t)
}

func TestSearchCompaniesRequiresMinLength(t *testing.T) {
	companyRepo := new(mocks.CompanyRepositoryMock)
	router := setupCompanyRouter(NewCompanyHandler(companyRepo, nil))

	req := httptest.NewRequest(http.MethodGet, "/companies/search?q=a", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	companyRepo.AssertNotCalled(t, "SearchCompanies", mock.Anything, mock.Anything)
}

func TestJoinCompanyWrongPasswordRejected(t *testing.T) {
	companyRepo := new(mocks.CompanyRepositoryMock)
	router := setupCompanyRouter(NewCompanyHandler(companyRepo, nil))

	hash, err := bcrypt.GenerateFromPassword([]byte("right-password"), bcrypt.MinCost)
	require.NoError(t, err)
	companyRepo.On("GetCompany", mock.Anything, 2).
		Return(models.Company{ID: 2, JoinPassword: string(hash), OwnerID: 9}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/companies/2/join", bytes.NewBufferString(`{"password":"wrong-password"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	companyRepo.AssertNotCalled(t, "JoinCompany", mock.Anything, mock.Anything, mock.Anything)
}

func TestJoinCompanyAlreadyMemberRejected(t *testing.T) {
	companyRepo := new(mocks.CompanyRepositoryMock)
	router := setupCompanyRouter(NewCompanyHandler(companyRepo, nil))

	hash, err := bcrypt.GenerateFromPassword([]byte("right-password"), bcrypt.MinCost)
	require.NoError(t, err)
	companyRepo.On("GetCompany", mock.Anything, 2).
		Return(models.Company{ID: 2, JoinPassword: string(hash), OwnerID: 9}, nil).Once()
	companyRepo.On("JoinCompany", mock.Anything, 2, 1).Return(repositories.ErrAlreadyMember).Once()

	req := httptest.NewRequest(http.MethodPost, "/companies/2/join", bytes.NewBufferString(`{"password":"right-password"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	companyRepo.AssertExpectations(t)
}

func TestLeaveCompanyOwnerRejected(t *testing.T) {
	companyRepo := new(mocks.CompanyRepositoryMock)
	router := setupCompanyRouter(NewCompanyHandler(companyRepo, nil))

	companyRepo.On("LeaveCompany", mock.Anything, 2, 1).Return(repositories.ErrOwnerProtected).Once()

	req := httptest.NewRequest(http.MethodPost, "/companies/2/leave", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	companyRepo.AssertExpectations(t)
}

func TestUpdateMemberOwnerRoleFixed(t *testing.T) {
	companyRepo := new(mocks.CompanyRepositoryMock)
	router := setupCompanyRouter(NewCompanyHandler(companyRepo, nil))

	companyRepo.On("IsAdmin", mock.Anything, 2, 1).Return(true, nil).Once()
	companyRepo.On("UpdateMemberRole", mock.Anything, 2, 9, models.RoleUser).
		Return(repositories.ErrOwnerProtected).Once()

	req := httptest.NewRequest(http.MethodPut, "/companies/2/members/9", bytes.NewBufferString(`{"role":"user"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	companyRepo.AssertExpectations(t)
}

func TestUpdateMemberUnknownRoleRejected(t *testing.T) {
	companyRepo := new(mocks.CompanyRepositoryMock)
	router := setupCompanyRouter(NewCompanyHandler(companyRepo, nil))

	companyRepo.On("IsAdmin", mock.Anything, 2, 1).Return(true, nil).Once()

	req := httptest.NewRequest(http.MethodPut, "/companies/2/members/3", bytes.NewBufferString(`{"role":"superuser"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	companyRepo.AssertNotCalled(t, "UpdateMemberRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRemoveMemberRequiresAdmin(t *testing.T) {
	companyRepo := new(mocks.CompanyRepositoryMock)
	router := setupCompanyRouter(NewCompanyHandler(companyRepo, nil))

	companyRepo.On("IsAdmin", mock.Anything, 2, 1).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/companies/2/members/3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	companyRepo.AssertNotCalled(t, "RemoveCompanyMember", mock.Anything, mock.Anything, mock.Anything)
}

func TestRemoveMemberOwnerProtected(t *testing.T) {
	companyRepo := new(mocks.CompanyRepositoryMock)
	router := setupCompanyRouter(NewCompanyHandler(companyRepo, nil))

	companyRepo.On("IsAdmin", mock.Anything, 2, 1).Return(true, nil).Once()
	companyRepo.On("RemoveCompanyMember", mock.Anything, 2, 9).Return(repositories.ErrOwnerProtected).Once()

	req := httptest.NewRequest(http.MethodDelete, "/companies/2/members/9", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	companyRepo.AssertExpectations(t)
}

func TestRemoveMemberUnknownTarget(t *testing.T) {
	companyRepo := new(mocks.CompanyRepositoryMock)
	router := setupCompanyRouter(NewCompanyHandler(companyRepo, nil))

	companyRepo.On("IsAdmin", mock.Anything, 2, 1).Return(true, nil).Once()
	companyRepo.On("RemoveCompanyMember", mock.Anything, 2, 3).Return(repositories.ErrMemberNotFound).Once()

	req := httptest.NewRequest(http.MethodDelete, "/companies/2/members/3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	companyRepo.AssertExpectations(t)
}
