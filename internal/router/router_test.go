package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cecproctor/proctor-backend/internal/config"
	"github.com/cecproctor/proctor-backend/internal/handler"
	"github.com/cecproctor/proctor-backend/internal/model"
	"github.com/cecproctor/proctor-backend/internal/repository/memory"
	"github.com/cecproctor/proctor-backend/internal/response"
	"github.com/cecproctor/proctor-backend/internal/service"
	"github.com/cecproctor/proctor-backend/internal/validator"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	validator.Setup()
	os.Exit(m.Run())
}

type envelope struct {
	Data       json.RawMessage      `json:"data"`
	Error      *response.ErrorBody  `json:"error"`
	Pagination *response.Pagination `json:"pagination"`
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
}

func newTestServer(t *testing.T, joinRate int) *testServer {
	t.Helper()
	log := zerolog.Nop()
	cfg := &config.Config{
		GinMode:            gin.TestMode,
		StorageDriver:      config.StorageDriverMemory,
		SessionTokenSecret: "router-test-secret",
		SessionTokenExpiry: time.Hour,
		CodeGenMaxAttempts: 10,
		ViolationLogCap:    1000,
		JoinRatePerMinute:  joinRate,
	}

	store := memory.NewStore(memory.Open())
	activity := service.NewActivityService(store.Activity, log)
	settings := service.NewSettingService(store.Settings, activity, nil, log)
	monitor := service.NewMonitorService(store.Sessions, store.Violations, nil, log)
	exams := service.NewExamService(store.Exams, nil, cfg.CodeGenMaxAttempts, log)
	students := service.NewStudentService(store.Students, activity, log)
	teachers := service.NewTeacherService(store.Teachers, activity, log)
	sessions := service.NewSessionService(exams, store.Students, store.Sessions, activity, monitor, log)
	violations := service.NewViolationService(store, settings, activity, monitor, cfg.ViolationLogCap, log)
	tokens := service.NewTokenService(cfg.SessionTokenSecret, cfg.SessionTokenExpiry)

	handlers := &Handlers{
		StudentPortal: handler.NewStudentPortalHandler(sessions, exams, violations, tokens, log),
		StudentMgmt:   handler.NewStudentManagementHandler(students, log),
		TeacherMgmt:   handler.NewTeacherManagementHandler(teachers, log),
		Exam:          handler.NewExamHandler(exams, sessions, log),
		Violation:     handler.NewViolationHandler(violations, log),
		Activity:      handler.NewActivityHandler(activity, log),
		Setting:       handler.NewSettingHandler(settings, log),
		Dashboard:     handler.NewDashboardHandler(service.NewDashboardService(store), log),
		Monitor:       handler.NewMonitorHandler(exams, monitor, log),
		WS:            handler.NewWSHandler(nil, sessions, violations, log, nil),
		System:        handler.NewSystemHandler(nil, nil, cfg.StorageDriver, log),
	}
	return &testServer{t: t, engine: SetupRouter(tokens, sessions, handlers, cfg)}
}

func (s *testServer) do(method, path string, body any, token string) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	var env envelope
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func (s *testServer) createExam(title string) model.Exam {
	s.t.Helper()
	rec, env := s.do(http.MethodPost, "/api/v1/teacher/exams", map[string]any{
		"title":            title,
		"description":      "Final",
		"form_url":         "https://forms.example.com/final",
		"duration_minutes": 120,
	}, "")
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[struct {
		Exam model.Exam `json:"exam"`
	}](s.t, env.Data).Exam
}

func (s *testServer) join(studentID, code string) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	return s.do(http.MethodPost, "/api/v1/student/join", map[string]string{
		"student_id":  studentID,
		"access_code": code,
	}, "")
}

type sessionBody struct {
	Session model.Session `json:"session"`
}

func TestProctoringFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t, 100)

	rec, _ := srv.do(http.MethodPost, "/api/v1/admin/students", map[string]string{
		"student_id": "STU001",
		"name":       "John Smith",
		"email":      "john.smith@student.cec.edu",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	exam := srv.createExam("Mathematics Final Exam")
	assert.Regexp(t, `^MATH\d{7}$`, exam.UniqueID)
	assert.Equal(t, model.ExamStatusDraft, exam.Status)

	rec, env := srv.join("STU001", exam.UniqueID)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, response.ErrExamNotActive, env.Error.Code)

	rec, _ = srv.do(http.MethodPost, "/api/v1/teacher/exams/"+exam.ID+"/activate", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = srv.join("stu001", exam.UniqueID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	joined := decode[model.JoinExamResponse](t, env.Data)
	require.NotEmpty(t, joined.Token)
	assert.Equal(t, "STU001", joined.Session.StudentID)
	assert.Equal(t, 7200, joined.Session.TimeRemainingSeconds)

	rec, env = srv.do(http.MethodGet, "/api/v1/proctor/session", nil, joined.Token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, joined.Session.ID, decode[sessionBody](t, env.Data).Session.ID)

	var last model.Session
	for i := 0; i < 3; i++ {
		rec, env = srv.do(http.MethodPost, "/api/v1/proctor/violations", map[string]string{
			"type":        "TAB_SWITCH",
			"description": "switched tabs",
			"severity":    "high",
		}, joined.Token)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		last = decode[sessionBody](t, env.Data).Session
	}
	assert.Equal(t, model.SessionStatusFlagged, last.Status)
	assert.Equal(t, 3, last.ViolationCount)

	rec, env = srv.do(http.MethodGet, "/api/v1/teacher/violations?exam_id="+exam.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 3, env.Pagination.TotalItems)

	rec, env = srv.do(http.MethodGet, "/api/v1/teacher/violations/stats?exam_id="+exam.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[struct {
		Stats model.ViolationStats `json:"stats"`
	}](t, env.Data).Stats
	assert.Equal(t, 9, stats.WeightedScore)
	assert.Equal(t, 3, stats.BySeverity[model.SeverityHigh])

	rec, env = srv.do(http.MethodGet, "/api/v1/teacher/dashboard?exam_id="+exam.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_active":1,"total_violations":3,"flagged_students":1}`, string(env.Data))

	rec, env = srv.do(http.MethodPost, "/api/v1/proctor/submit", nil, joined.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	submitted := decode[sessionBody](t, env.Data).Session
	assert.Equal(t, model.SessionStatusFlagged, submitted.Status)
	assert.NotNil(t, submitted.EndedAt)

	rec, env = srv.do(http.MethodPost, "/api/v1/proctor/activity", nil, joined.Token)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, response.ErrSessionClosed, env.Error.Code)

	rec, env = srv.do(http.MethodGet, "/api/v1/teacher/exams/"+exam.ID+"/sessions?status=flagged", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decode[struct {
		Sessions []model.Session `json:"sessions"`
	}](t, env.Data).Sessions
	assert.Len(t, listed, 1)

	rec, env = srv.do(http.MethodGet, "/api/v1/admin/logs?type=login", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	logs := decode[struct {
		Logs []model.SystemLogEntry `json:"logs"`
	}](t, env.Data).Logs
	require.Len(t, logs, 1)
	assert.Equal(t, "Student joined exam: John Smith ("+exam.UniqueID+")", logs[0].Message)
}

func TestJoinErrors(t *testing.T) {
	srv := newTestServer(t, 100)

	tests := []struct {
		name     string
		body     map[string]string
		wantCode int
		wantErr  response.ErrCode
	}{
		{name: "unknown code", body: map[string]string{"student_id": "STU001", "access_code": "NOPE2025000"}, wantCode: http.StatusNotFound, wantErr: response.ErrInvalidAccessCode},
		{name: "missing fields", body: map[string]string{}, wantCode: http.StatusBadRequest, wantErr: response.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := srv.do(http.MethodPost, "/api/v1/student/join", tt.body, "")
			assert.Equal(t, tt.wantCode, rec.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantErr, env.Error.Code)
		})
	}
}

func TestJoinIsRateLimited(t *testing.T) {
	srv := newTestServer(t, 2)

	for i := 0; i < 2; i++ {
		rec, _ := srv.join("STU001", "NOPE2025000")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}
	rec, env := srv.join("STU001", "NOPE2025000")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, response.ErrRateLimitExceeded, env.Error.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestProctorRequiresToken(t *testing.T) {
	srv := newTestServer(t, 100)

	tests := []struct {
		name    string
		token   string
		wantErr response.ErrCode
	}{
		{name: "missing", token: "", wantErr: response.ErrTokenRequired},
		{name: "garbage", token: "abc.def.ghi", wantErr: response.ErrTokenInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := srv.do(http.MethodGet, "/api/v1/proctor/session", nil, tt.token)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.wantErr, env.Error.Code)
		})
	}
}

func TestTokenRejectedAfterExamDeleted(t *testing.T) {
	srv := newTestServer(t, 100)
	exam := srv.createExam("Physics Quiz")
	rec, _ := srv.do(http.MethodPost, "/api/v1/teacher/exams/"+exam.ID+"/activate", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	_, env := srv.join("STU002", exam.UniqueID)
	token := decode[model.JoinExamResponse](t, env.Data).Token

	rec, _ = srv.do(http.MethodDelete, "/api/v1/teacher/exams/"+exam.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = srv.do(http.MethodGet, "/api/v1/proctor/session", nil, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, response.ErrSessionInvalidated, env.Error.Code)
}

func TestExamEndpoints(t *testing.T) {
	srv := newTestServer(t, 100)
	exam := srv.createExam("Chemistry Midterm")

	tests := []struct {
		name     string
		method   string
		path     string
		body     any
		wantCode int
		wantErr  response.ErrCode
	}{
		{name: "malformed id", method: http.MethodGet, path: "/api/v1/teacher/exams/not-a-uuid", wantCode: http.StatusBadRequest, wantErr: response.ErrInvalidID},
		{name: "unknown exam", method: http.MethodGet, path: "/api/v1/teacher/exams/7f1f4c2e-8a55-4d8e-b0f6-2f7f0f2a9a11", wantCode: http.StatusNotFound, wantErr: response.ErrNotFound},
		{name: "complete a draft", method: http.MethodPost, path: "/api/v1/teacher/exams/" + exam.ID + "/complete", wantCode: http.StatusConflict, wantErr: response.ErrInvalidTransition},
		{name: "bad status filter", method: http.MethodGet, path: "/api/v1/teacher/exams?status=archived", wantCode: http.StatusBadRequest, wantErr: response.ErrValidation},
		{name: "missing form url", method: http.MethodPost, path: "/api/v1/teacher/exams", body: map[string]any{"title": "X", "duration_minutes": 10}, wantCode: http.StatusBadRequest, wantErr: response.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := srv.do(tt.method, tt.path, tt.body, "")
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantErr, env.Error.Code)
		})
	}

	rec, env := srv.do(http.MethodPut, "/api/v1/teacher/exams/"+exam.ID, map[string]any{
		"title":            "Chemistry Final",
		"form_url":         "https://forms.example.com/chem",
		"duration_minutes": 90,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[struct {
		Exam model.Exam `json:"exam"`
	}](t, env.Data).Exam
	assert.Equal(t, exam.UniqueID, updated.UniqueID)
	assert.Equal(t, "Chemistry Final", updated.Title)

	rec, env = srv.do(http.MethodGet, "/api/v1/teacher/exams?status=draft", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.Pagination.TotalItems)
}

func TestDirectoryEndpoints(t *testing.T) {
	srv := newTestServer(t, 100)

	body := map[string]string{"student_id": "STU002", "name": "Sarah Johnson", "email": "sarah@student.cec.edu"}
	rec, env := srv.do(http.MethodPost, "/api/v1/admin/students", body, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	student := decode[struct {
		Student model.Student `json:"student"`
	}](t, env.Data).Student

	rec, env = srv.do(http.MethodPost, "/api/v1/admin/students", body, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, response.ErrConflict, env.Error.Code)

	rec, env = srv.do(http.MethodPost, "/api/v1/admin/students", map[string]string{"student_id": "STU003", "name": "Mike", "email": "not-an-email"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error.Fields, "email")

	rec, _ = srv.do(http.MethodPut, "/api/v1/admin/students/"+student.ID, map[string]string{
		"student_id": "STU002",
		"name":       "Sarah Johnson",
		"email":      "sarah@student.cec.edu",
		"status":     "suspended",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = srv.do(http.MethodPost, "/api/v1/teacher/exams/"+srv.createExam("Biology").ID+"/activate", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = srv.do(http.MethodPost, "/api/v1/admin/teachers", map[string]string{
		"name":       "Prof. Robert Chen",
		"email":      "robert.chen@cec.edu",
		"department": "Physics",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env = srv.do(http.MethodGet, "/api/v1/admin/dashboard", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_students":1,"total_teachers":1,"active_exams":1,"total_violations":0}`, string(env.Data))

	rec, _ = srv.do(http.MethodDelete, "/api/v1/admin/students/"+student.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = srv.do(http.MethodGet, "/api/v1/admin/students/"+student.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSuspendedStudentCannotJoin(t *testing.T) {
	srv := newTestServer(t, 100)
	rec, _ := srv.do(http.MethodPost, "/api/v1/admin/students", map[string]string{
		"student_id": "STU003",
		"name":       "Mike Davis",
		"email":      "mike@student.cec.edu",
		"status":     "suspended",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	exam := srv.createExam("Physics Quiz")
	rec, _ = srv.do(http.MethodPost, "/api/v1/teacher/exams/"+exam.ID+"/activate", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := srv.join("STU003", exam.UniqueID)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, response.ErrStudentSuspended, env.Error.Code)
}

func TestSettingsEndpoints(t *testing.T) {
	srv := newTestServer(t, 100)

	rec, env := srv.do(http.MethodGet, "/api/v1/public/settings", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=300", rec.Header().Get("Cache-Control"))
	assert.Equal(t, model.DefaultSystemSettings(), decode[model.SystemSettings](t, env.Data))

	updated := model.DefaultSystemSettings()
	updated.ViolationThreshold = 5
	updated.RightClickDisabled = false
	rec, _ = srv.do(http.MethodPut, "/api/v1/admin/settings", updated, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = srv.do(http.MethodGet, "/api/v1/admin/settings", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[struct {
		Settings model.SystemSettings `json:"settings"`
	}](t, env.Data).Settings
	assert.Equal(t, updated, got)

	updated.ViolationThreshold = 0
	rec, env = srv.do(http.MethodPut, "/api/v1/admin/settings", updated, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error.Fields, "violation_threshold")
}

func TestActivityLogEndpoints(t *testing.T) {
	srv := newTestServer(t, 100)

	rec, env := srv.do(http.MethodPost, "/api/v1/admin/logs", map[string]string{
		"type":     "error",
		"message":  "Database connection lost",
		"severity": "high",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	entry := decode[struct {
		Log model.SystemLogEntry `json:"log"`
	}](t, env.Data).Log
	assert.Equal(t, model.LogTypeError, entry.Type)

	rec, env = srv.do(http.MethodGet, "/api/v1/admin/logs?type=audit", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error.Fields, "type")

	rec, env = srv.do(http.MethodGet, "/api/v1/admin/logs?severity=high", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.Pagination.TotalItems)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, 100)

	rec, env := srv.do(http.MethodGet, "/api/v1/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Status       string `json:"status"`
		Dependencies struct {
			Storage string `json:"storage"`
			DB      string `json:"db"`
			Redis   string `json:"redis"`
		} `json:"dependencies"`
	}](t, env.Data)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "memory", body.Dependencies.Storage)
	assert.Equal(t, "disabled", body.Dependencies.Redis)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
