package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/volunteer-api/internal/config"
	"github.com/yukikurage/volunteer-api/internal/dto"
	apierrors "github.com/yukikurage/volunteer-api/internal/errors"
	"github.com/yukikurage/volunteer-api/internal/metrics"
	"github.com/yukikurage/volunteer-api/internal/models"
	"github.com/yukikurage/volunteer-api/internal/repository"
	"github.com/yukikurage/volunteer-api/internal/security"
	"github.com/yukikurage/volunteer-api/internal/services"
	"github.com/yukikurage/volunteer-api/internal/storage"
	"github.com/yukikurage/volunteer-api/internal/testutil"
	"gorm.io/gorm"
)

// apiSuite drives the full router against an in-memory database.
type apiSuite struct {
	suite.Suite

	db       *gorm.DB
	cfg      *config.Config
	mediaDir string
	router   *gin.Engine
	registry *prometheus.Registry

	staff      *models.User
	staffToken string

	// headers are added to every request sent.
	headers http.Header
}

func (s *apiSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	t := s.T()
	s.headers = nil

	s.db = testutil.NewDB(t)
	s.mediaDir = t.TempDir()
	s.cfg = &config.Config{
		JWTSecret:              "test-secret",
		AccessTokenTTL:         time.Hour,
		RefreshTokenTTL:        24 * time.Hour,
		BaseURL:                "http://api.test",
		MediaDir:               s.mediaDir,
		MediaURL:               "/media",
		MaxUploadMB:            1,
		RateLimitAuthPerMinute: 1000,
	}
	s.router = s.newRouter(s.cfg)

	s.staff = testutil.CreateUser(t, s.db, "organizer", "password123", true)
	s.staffToken = s.login("organizer", "password123").Access
}

func (s *apiSuite) newRouter(cfg *config.Config) *gin.Engine {
	store, err := storage.NewLocalStorage(cfg.MediaDir, cfg.MediaURL)
	s.Require().NoError(err)

	userRepo := repository.NewUserRepository(s.db)
	unitRepo := repository.NewUnitRepository(s.db)
	taskRepo := repository.NewTaskRepository(s.db)
	tokens := security.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	revocations := security.NewDBRevocationStore(repository.NewTokenRepository(s.db))

	s.registry = prometheus.NewRegistry()
	return NewRouter(RouterDeps{
		Config:     cfg,
		Auth:       services.NewAuthService(userRepo, unitRepo, tokens, revocations),
		Units:      services.NewUnitService(unitRepo, store),
		Tasks:      services.NewTaskService(taskRepo, nil),
		Ledger:     services.NewLedgerService(taskRepo, repository.NewLedgerRepository(s.db), store),
		Volunteers: services.NewVolunteerService(repository.NewVolunteerRepository(s.db), store),
		Storage:    store,
		Metrics:    metrics.NewCollector(s.registry),
		Gatherer:   s.registry,
	})
}

func (s *apiSuite) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(req, token)
}

func (s *apiSuite) upload(method, path, field, filename string, content []byte, fields map[string]string, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range fields {
		s.Require().NoError(writer.WriteField(k, v))
	}
	if field != "" {
		part, err := writer.CreateFormFile(field, filename)
		s.Require().NoError(err)
		_, err = part.Write(content)
		s.Require().NoError(err)
	}
	s.Require().NoError(writer.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return s.send(req, token)
}

func (s *apiSuite) send(req *http.Request, token string) *httptest.ResponseRecorder {
	for key, values := range s.headers {
		req.Header[key] = values
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *apiSuite) decode(w *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (s *apiSuite) requireError(w *httptest.ResponseRecorder, status int, code string) {
	s.Require().Equal(status, w.Code, w.Body.String())
	var apiErr apierrors.APIError
	s.decode(w, &apiErr)
	s.Equal(code, apiErr.Code)
}

func (s *apiSuite) login(username, password string) dto.TokenPairResponse {
	w := s.do(http.MethodPost, "/api/token", map[string]string{
		"username": username,
		"password": password,
	}, "")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var pair dto.TokenPairResponse
	s.decode(w, &pair)
	return pair
}

// newUnitCode creates a unit as the staff user and returns a fresh invite code for it.
func (s *apiSuite) newUnitCode(title string) (dto.UnitDTO, string) {
	w := s.do(http.MethodPost, "/api/units", map[string]string{"title": title}, s.staffToken)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var unit dto.UnitDTO
	s.decode(w, &unit)

	w = s.do(http.MethodPost, "/api/units/"+utoa(unit.ID)+"/links", nil, s.staffToken)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var link dto.LinkDTO
	s.decode(w, &link)
	return unit, link.Code
}

// redeem registers a volunteer through a code and returns its access token.
func (s *apiSuite) redeem(code, username string) (dto.VolunteerDTO, string) {
	w := s.do(http.MethodPost, "/api/my", map[string]string{
		"code":     code,
		"username": username,
		"password": "password123",
	}, "")
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var profile dto.VolunteerDTO
	s.decode(w, &profile)

	return profile, s.login(username, "password123").Access
}

func (s *apiSuite) newTask(title string, score uint) dto.TaskDTO {
	now := time.Now().UTC()
	w := s.do(http.MethodPost, "/api/tasks", map[string]any{
		"title":      title,
		"score":      score,
		"date_start": now.Add(-time.Hour).Format(time.RFC3339),
		"date_end":   now.Add(24 * time.Hour).Format(time.RFC3339),
	}, s.staffToken)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var task dto.TaskDTO
	s.decode(w, &task)
	return task
}

func (s *apiSuite) closeTask(id uint64) {
	w := s.do(http.MethodPatch, "/api/tasks/"+utoa(id), map[string]bool{"is_open": false}, s.staffToken)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
}

func utoa(id uint64) string {
	return strconv.FormatUint(id, 10)
}
