package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authzapp "github.com/erp/bridge/internal/application/authz"
	"github.com/erp/bridge/internal/domain/authz"
	"github.com/erp/bridge/internal/interfaces/http/dto"
)

// MockAuthzService implements AuthzService for testing
type MockAuthzService struct {
	mock.Mock
}

func (m *MockAuthzService) CheckPermission(ctx context.Context, subjectID int64, operation string) (bool, error) {
	args := m.Called(ctx, subjectID, operation)
	return args.Bool(0), args.Error(1)
}

func (m *MockAuthzService) CheckPermissionForUser(ctx context.Context, userID uuid.UUID, operation string) (bool, error) {
	args := m.Called(ctx, userID, operation)
	return args.Bool(0), args.Error(1)
}

func (m *MockAuthzService) CreateMapping(ctx context.Context, req authzapp.CreateSubjectMappingRequest) (*authzapp.SubjectMappingResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authzapp.SubjectMappingResponse), args.Error(1)
}

func (m *MockAuthzService) GetMapping(ctx context.Context, id uuid.UUID) (*authzapp.SubjectMappingResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authzapp.SubjectMappingResponse), args.Error(1)
}

func (m *MockAuthzService) GetMappingByUser(ctx context.Context, userID uuid.UUID) (*authzapp.SubjectMappingResponse, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authzapp.SubjectMappingResponse), args.Error(1)
}

func (m *MockAuthzService) ListMappings(ctx context.Context, filter authzapp.SubjectMappingListFilter) ([]authzapp.SubjectMappingResponse, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]authzapp.SubjectMappingResponse), args.Get(1).(int64), args.Error(2)
}

func (m *MockAuthzService) UpdateMapping(ctx context.Context, id uuid.UUID, req authzapp.UpdateSubjectMappingRequest) (*authzapp.SubjectMappingResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authzapp.SubjectMappingResponse), args.Error(1)
}

func (m *MockAuthzService) DeleteMapping(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func setupAuthzRouter(svc *MockAuthzService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewAuthzHandler(svc).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func sampleMappingResponse(userID uuid.UUID, subjectID int64) *authzapp.SubjectMappingResponse {
	now := time.Now().UTC()
	return &authzapp.SubjectMappingResponse{
		ID:              uuid.New(),
		UserID:          userID,
		LegacySubjectID: subjectID,
		Active:          true,
		Note:            "migrated batch 3",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestAuthzHandler_Check_Authorized(t *testing.T) {
	svc := new(MockAuthzService)
	svc.On("CheckPermission", mock.Anything, int64(1042), "create_order").Return(true, nil)

	router := setupAuthzRouter(svc)

	body, _ := json.Marshal(CheckPermissionRequest{SubjectID: 1042, Operation: "create_order"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/authz/check", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(1042), data["subject_id"])
	assert.Equal(t, "create_order", data["operation"])
	assert.Equal(t, true, data["authorized"])
	assert.NotEmpty(t, data["checked_at"])

	svc.AssertExpectations(t)
}

func TestAuthzHandler_Check_Denied(t *testing.T) {
	svc := new(MockAuthzService)
	svc.On("CheckPermission", mock.Anything, int64(1042), "approve_discount").Return(false, nil)

	router := setupAuthzRouter(svc)

	body, _ := json.Marshal(CheckPermissionRequest{SubjectID: 1042, Operation: "approve_discount"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/authz/check", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	// A denial is a successful check with authorized=false, not an error
	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, false, data["authorized"])
}

func TestAuthzHandler_Check_LegacyUnavailable(t *testing.T) {
	svc := new(MockAuthzService)
	svc.On("CheckPermission", mock.Anything, int64(1042), "create_order").Return(false, authz.ErrLegacyUnavailable)

	router := setupAuthzRouter(svc)

	body, _ := json.Marshal(CheckPermissionRequest{SubjectID: 1042, Operation: "create_order"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/authz/check", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, dto.ErrCodeLegacyUnavailable, resp.Error.Code)
}

func TestAuthzHandler_Check_InvalidBody(t *testing.T) {
	svc := new(MockAuthzService)
	router := setupAuthzRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/authz/check", bytes.NewBufferString(`{"subject_id": -5}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "CheckPermission")
}

func TestAuthzHandler_CheckUser_Authorized(t *testing.T) {
	userID := uuid.New()
	svc := new(MockAuthzService)
	svc.On("CheckPermissionForUser", mock.Anything, userID, "view_orders").Return(true, nil)

	router := setupAuthzRouter(svc)

	body, _ := json.Marshal(CheckUserPermissionRequest{UserID: userID, Operation: "view_orders"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/authz/check-user", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, userID.String(), data["user_id"])
	assert.Equal(t, true, data["authorized"])
}

func TestAuthzHandler_CheckUser_NotMapped(t *testing.T) {
	userID := uuid.New()
	svc := new(MockAuthzService)
	svc.On("CheckPermissionForUser", mock.Anything, userID, "view_orders").Return(false, authz.ErrSubjectNotMapped)

	router := setupAuthzRouter(svc)

	body, _ := json.Marshal(CheckUserPermissionRequest{UserID: userID, Operation: "view_orders"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/authz/check-user", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeSubjectNotMapped, resp.Error.Code)
}

func TestAuthzHandler_CreateMapping_Success(t *testing.T) {
	userID := uuid.New()
	svc := new(MockAuthzService)
	svc.On("CreateMapping", mock.Anything, mock.MatchedBy(func(req authzapp.CreateSubjectMappingRequest) bool {
		return req.UserID == userID && req.LegacySubjectID == 1042
	})).Return(sampleMappingResponse(userID, 1042), nil)

	router := setupAuthzRouter(svc)

	body, _ := json.Marshal(CreateSubjectMappingRequest{UserID: userID, LegacySubjectID: 1042})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/authz/subject-mappings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, userID.String(), data["user_id"])
	assert.Equal(t, float64(1042), data["legacy_subject_id"])
	assert.Equal(t, true, data["active"])

	svc.AssertExpectations(t)
}

func TestAuthzHandler_CreateMapping_Duplicate(t *testing.T) {
	userID := uuid.New()
	svc := new(MockAuthzService)
	svc.On("CreateMapping", mock.Anything, mock.Anything).Return(nil, authz.ErrMappingAlreadyExists)

	router := setupAuthzRouter(svc)

	body, _ := json.Marshal(CreateSubjectMappingRequest{UserID: userID, LegacySubjectID: 1042})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/authz/subject-mappings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeAlreadyExists, resp.Error.Code)
}

func TestAuthzHandler_GetMapping_Success(t *testing.T) {
	userID := uuid.New()
	mapping := sampleMappingResponse(userID, 7)
	svc := new(MockAuthzService)
	svc.On("GetMapping", mock.Anything, mapping.ID).Return(mapping, nil)

	router := setupAuthzRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/authz/subject-mappings/"+mapping.ID.String(), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthzHandler_GetMapping_InvalidID(t *testing.T) {
	svc := new(MockAuthzService)
	router := setupAuthzRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/authz/subject-mappings/not-a-uuid", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "GetMapping")
}

func TestAuthzHandler_GetMappingByUser_NotFound(t *testing.T) {
	userID := uuid.New()
	svc := new(MockAuthzService)
	svc.On("GetMappingByUser", mock.Anything, userID).Return(nil, authz.ErrMappingNotFound)

	router := setupAuthzRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/authz/subject-mappings/by-user/"+userID.String(), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
}

func TestAuthzHandler_ListMappings_Success(t *testing.T) {
	svc := new(MockAuthzService)
	mappings := []authzapp.SubjectMappingResponse{
		*sampleMappingResponse(uuid.New(), 1),
		*sampleMappingResponse(uuid.New(), 2),
	}
	svc.On("ListMappings", mock.Anything, mock.MatchedBy(func(f authzapp.SubjectMappingListFilter) bool {
		return f.Page == 1 && f.PageSize == 20
	})).Return(mappings, int64(2), nil)

	router := setupAuthzRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/authz/subject-mappings", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(2), resp.Meta.Total)
}

func TestAuthzHandler_UpdateMapping_Deactivate(t *testing.T) {
	userID := uuid.New()
	mapping := sampleMappingResponse(userID, 9)
	mapping.Active = false

	svc := new(MockAuthzService)
	svc.On("UpdateMapping", mock.Anything, mapping.ID, mock.MatchedBy(func(req authzapp.UpdateSubjectMappingRequest) bool {
		return req.Active != nil && !*req.Active
	})).Return(mapping, nil)

	router := setupAuthzRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/authz/subject-mappings/"+mapping.ID.String(),
		bytes.NewBufferString(`{"active": false}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, false, data["active"])

	svc.AssertExpectations(t)
}

func TestAuthzHandler_DeleteMapping_Success(t *testing.T) {
	mappingID := uuid.New()
	svc := new(MockAuthzService)
	svc.On("DeleteMapping", mock.Anything, mappingID).Return(nil)

	router := setupAuthzRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/authz/subject-mappings/"+mappingID.String(), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	svc.AssertExpectations(t)
}
