package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"shopfront/internal/models"
	"shopfront/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockEnhanceService struct {
	mock.Mock
}

func (m *MockEnhanceService) StartRun(ctx context.Context, inputs []services.EnhanceInput) (uuid.UUID, error) {
	args := m.Called(ctx, inputs)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockEnhanceService) GetRun(ctx context.Context, runID uuid.UUID) (*models.EnhancementRun, error) {
	args := m.Called(ctx, runID)
	if run, ok := args.Get(0).(*models.EnhancementRun); ok {
		return run, args.Error(1)
	}
	return nil, args.Error(1)
}

func multipartImages(t *testing.T, names ...string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, name := range names {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="images"; filename="`+name+`"`)
		header.Set("Content-Type", "image/jpeg")
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write([]byte("bytes of " + name))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func enhanceRequest(t *testing.T, names ...string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	body, contentType := multipartImages(t, names...)
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/enhance", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestStartRun_Accepted(t *testing.T) {
	service := new(MockEnhanceService)
	h := NewEnhanceHandlers(service)
	runID := uuid.New()

	service.On("StartRun", mock.Anything, mock.MatchedBy(func(inputs []services.EnhanceInput) bool {
		return len(inputs) == 2 && inputs[0].Name == "a.jpg" && inputs[1].Name == "b.jpg"
	})).Return(runID, nil)

	c, rec := enhanceRequest(t, "a.jpg", "b.jpg")
	require.NoError(t, h.StartRun(c))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), runID.String())
}

func TestStartRun_RejectsSingleImage(t *testing.T) {
	service := new(MockEnhanceService)
	h := NewEnhanceHandlers(service)

	c, rec := enhanceRequest(t, "a.jpg")
	require.NoError(t, h.StartRun(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	service.AssertNotCalled(t, "StartRun")
}

func TestStartRun_ConflictWhenRunInFlight(t *testing.T) {
	service := new(MockEnhanceService)
	h := NewEnhanceHandlers(service)

	service.On("StartRun", mock.Anything, mock.Anything).Return(uuid.Nil, services.ErrRunInFlight)

	c, rec := enhanceRequest(t, "a.jpg", "b.jpg")
	require.NoError(t, h.StartRun(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetRun_Success(t *testing.T) {
	service := new(MockEnhanceService)
	h := NewEnhanceHandlers(service)
	runID := uuid.New()

	run := &models.EnhancementRun{
		ID:     runID,
		Status: models.EnhancementStatusDone,
		Previews: []models.EnhancementPreview{
			{SourceName: "a.jpg", URL: "http://minio/product-images/previews/out/x/00.jpg?sig"},
		},
	}
	service.On("GetRun", mock.Anything, runID).Return(run, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/enhance/"+runID.String(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(runID.String())

	require.NoError(t, h.GetRun(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "a.jpg")
}

func TestGetRun_NotFound(t *testing.T) {
	service := new(MockEnhanceService)
	h := NewEnhanceHandlers(service)
	runID := uuid.New()

	service.On("GetRun", mock.Anything, runID).Return(nil, services.ErrRunNotFound)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/enhance/"+runID.String(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(runID.String())

	require.NoError(t, h.GetRun(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
