package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/course-planner-api/pkg/auth"
	"github.com/arnavshah/course-planner-api/pkg/config"
	"github.com/arnavshah/course-planner-api/pkg/database"
	"github.com/arnavshah/course-planner-api/pkg/models"
)

const coursesJSON = `[
	{"name": "A", "type": "required", "class_id": "1", "credits": 3, "priority": 5, "time_slots": [["Mon", 1]]},
	{"name": "B", "type": "required", "class_id": "1", "credits": 2, "priority": 3, "time_slots": [["Mon", 1]]},
	{"name": "C", "type": "elective", "class_id": "1", "credits": 1, "priority": 4, "time_slots": [["Tue", 2]]}
]`

type testServer struct {
	router *gin.Engine
	key    string
	h      *Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "test.db")
	cfg.Auth.JWTSecret = "jwt-test"
	cfg.Auth.APIMasterSecret = "master-test"
	cfg.Planner.MaxBudget = 5000

	db, err := database.InitDB(cfg.Database, nil)
	if err != nil {
		t.Fatalf("InitDB returned error: %v", err)
	}
	if err := auth.EnsureAdminExists(db, cfg.Auth, nil); err != nil {
		t.Fatalf("EnsureAdminExists returned error: %v", err)
	}

	h := NewHandler(db, cfg, nil)
	return &testServer{
		router: NewRouter(h),
		key:    h.Auth.GenerateHMACKey("student"),
		h:      h,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+s.key)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Could not decode response %q: %v", w.Body.String(), err)
	}
}

func TestRoot(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
}

func TestAPIKeyRequired(t *testing.T) {
	s := newTestServer(t)
	for _, key := range []string{"", "student.deadbeef"} {
		req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(`{}`))
		if key != "" {
			req.Header.Set("Authorization", "Bearer "+key)
		}
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("key %q: expected 401, got %d", key, w.Code)
		}
	}
}

func TestGenerateEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/generate", `{"courses": `+coursesJSON+`, "budget": 10}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp models.GenerateResponse
	decode(t, w, &resp)

	if resp.Generated != 1 || len(resp.WithConflicts) != 1 || len(resp.ConflictFree) != 0 {
		t.Fatalf("Expected a single conflicting candidate, got %+v", resp)
	}
	if resp.WithConflicts[0].ConflictCount != 1 || resp.WithConflicts[0].TotalPriority != 12 {
		t.Errorf("Unexpected candidate %+v", resp.WithConflicts[0])
	}
	if resp.ID == "" || resp.Policy != "conflicts_first" {
		t.Errorf("Expected an id and the default policy, got %q %q", resp.ID, resp.Policy)
	}

	var records int64
	s.h.DB.Model(&database.GenerationRecord{}).Count(&records)
	if records != 1 {
		t.Errorf("Expected the generation to be recorded, got %d records", records)
	}
}

func TestGenerateEndpointErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		body   string
		status int
		kind   string
	}{
		{"empty pool", `{"courses": []}`, http.StatusUnprocessableEntity, "empty_pool"},
		{"no required", `{"courses": [{"name": "C", "type": "elective", "class_id": "1", "credits": 1, "time_slots": [["Tue", 2]]}]}`,
			http.StatusUnprocessableEntity, "no_required_courses"},
		{"missing must-select", `{"courses": [{"name": "A", "type": "required", "class_id": "1", "credits": 1, "must_select": true, "temporarily_exclude": true, "time_slots": [["Mon", 1]]},
			{"name": "B", "type": "required", "class_id": "1", "credits": 1, "time_slots": [["Mon", 2]]}]}`,
			http.StatusUnprocessableEntity, "missing_must_select_course"},
		{"bad slot", `{"courses": [{"name": "A", "type": "required", "class_id": "1", "credits": 1, "time_slots": [["Sun", 1]]}]}`,
			http.StatusBadRequest, "parse_error"},
		{"negative budget", `{"courses": ` + coursesJSON + `, "budget": -1}`, http.StatusBadRequest, ""},
		{"budget above maximum", `{"courses": ` + coursesJSON + `, "budget": 999999}`, http.StatusBadRequest, ""},
		{"unknown policy", `{"courses": ` + coursesJSON + `, "policy": "random"}`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/generate", tt.body)
			if w.Code != tt.status {
				t.Fatalf("Expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			var body map[string]any
			decode(t, w, &body)
			if tt.kind != "" && body["kind"] != tt.kind {
				t.Errorf("Expected kind %q, got %v", tt.kind, body["kind"])
			}
		})
	}
}

func TestGenerateEndpointZeroBudget(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/generate", `{"courses": `+coursesJSON+`, "budget": 0}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp models.GenerateResponse
	decode(t, w, &resp)
	if resp.Generated != 0 || resp.Message == "" || !resp.Truncated {
		t.Errorf("Expected an informational empty result, got %+v", resp)
	}
	if resp.ConflictFree == nil || resp.WithConflicts == nil {
		t.Errorf("Expected empty lists rather than null")
	}
}

func TestRankAndGridEndpoints(t *testing.T) {
	s := newTestServer(t)

	low := models.Candidate{Index: 0, TotalPriority: 3, ConflictCount: 0}
	high := models.Candidate{Index: 1, TotalPriority: 9, ConflictCount: 2}
	body, _ := json.Marshal(models.RankInput{Candidates: []models.Candidate{low, high}, Policy: "priority_first"})

	w := s.do(t, http.MethodPost, "/api/rank", string(body))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var ranked struct {
		Candidates []models.Candidate `json:"candidates"`
	}
	decode(t, w, &ranked)
	if len(ranked.Candidates) != 2 || ranked.Candidates[0].Index != 1 {
		t.Errorf("Expected the higher priority candidate first, got %+v", ranked.Candidates)
	}

	candidate := models.Candidate{Sections: []models.CourseSection{{
		Name: "A", Category: models.Required, Teacher: "Lin", TimeSlots: []models.TimeSlot{{Day: "Wed", Period: 3}},
	}}}
	body, _ = json.Marshal(candidate)
	w = s.do(t, http.MethodPost, "/api/grid", string(body))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var grid models.GridResponse
	decode(t, w, &grid)
	if len(grid.Cells) != models.PeriodsPerDay || grid.Cells[2][2] != "A(Lin)" || grid.Cells[0][0] != "-" {
		t.Errorf("Unexpected grid %+v", grid.Cells)
	}
}

func TestValidateEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/validate", `{"courses": `+coursesJSON+`, "budget": 0}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp struct {
		Valid bool `json:"valid"`
		Stats struct {
			Combinations int64 `json:"combinations"`
			WillTruncate bool  `json:"will_truncate"`
			CourseCount  int   `json:"course_count"`
		} `json:"stats"`
	}
	decode(t, w, &resp)
	if !resp.Valid || resp.Stats.Combinations != 1 || !resp.Stats.WillTruncate || resp.Stats.CourseCount != 3 {
		t.Errorf("Unexpected validation report %+v", resp)
	}
}

func TestPoolLifecycle(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/pools", `{"name": "fall", "courses": `+coursesJSON+`}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		ID uint `json:"id"`
	}
	decode(t, w, &created)
	base := "/api/pools/" + jsonNumber(created.ID)

	// a second section of B removes the conflict in one candidate
	w = s.do(t, http.MethodPost, base+"/sections",
		`{"name": "B", "type": "required", "class_id": "2", "credits": 2, "priority": 2, "time_slots": [["Fri", 5]]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 adding a section, got %d: %s", w.Code, w.Body.String())
	}
	w = s.do(t, http.MethodPost, base+"/sections",
		`{"name": "B", "type": "required", "class_id": "2", "credits": 2, "time_slots": [["Fri", 6]]}`)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 for a duplicate section, got %d", w.Code)
	}

	w = s.do(t, http.MethodPost, base+"/generate", `{"budget": 10}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp models.GenerateResponse
	decode(t, w, &resp)
	if resp.Generated != 2 || len(resp.ConflictFree) != 1 || len(resp.WithConflicts) != 1 {
		t.Errorf("Expected one free and one conflicting candidate, got %+v", resp)
	}

	w = s.do(t, http.MethodPatch, base+"/sections/B/2", `{"temporarily_exclude": true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 updating a section, got %d: %s", w.Code, w.Body.String())
	}
	w = s.do(t, http.MethodPost, base+"/generate", "")
	decode(t, w, &resp)
	if resp.Generated != 1 {
		t.Errorf("Expected the excluded section to drop out, got %d candidates", resp.Generated)
	}

	w = s.do(t, http.MethodDelete, base+"/sections/B/9", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 deleting a missing section, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, base+"/export?format=csv", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Mon 1") {
		t.Errorf("Expected a CSV export, got %d: %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPost, base+"/generate/xlsx", "")
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Errorf("Expected a workbook, got %d", w.Code)
	}

	w = s.do(t, http.MethodDelete, base, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 deleting the pool, got %d", w.Code)
	}
	w = s.do(t, http.MethodGet, base, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", w.Code)
	}
}

func TestImportPool(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "spring.json")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(coursesJSON))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/pools/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.key)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		Name         string `json:"name"`
		SectionCount int    `json:"section_count"`
	}
	decode(t, w, &created)
	if created.Name != "spring" || created.SectionCount != 3 {
		t.Errorf("Unexpected pool %+v", created)
	}
}

func TestAdminFlow(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(`{"username": "admin", "password": "admin123"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 on login, got %d", w.Code)
	}
	var login struct {
		AccessToken string `json:"access_token"`
	}
	decode(t, w, &login)

	req = httptest.NewRequest(http.MethodPost, "/admin/keys", strings.NewReader(`{"name": "lab", "rate_limit": 1}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 creating a key, got %d: %s", w.Code, w.Body.String())
	}
	var key struct {
		Key string `json:"key"`
	}
	decode(t, w, &key)

	// the limit of one request per day is enforced on the second call, reads included
	limited := &testServer{router: s.router, key: key.Key, h: s.h}
	if w := limited.do(t, http.MethodGet, "/api/usage", ""); w.Code != http.StatusOK {
		t.Fatalf("Expected 200 on first request, got %d: %s", w.Code, w.Body.String())
	}
	if w := limited.do(t, http.MethodGet, "/api/pools", ""); w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 after the limit, got %d", w.Code)
	}
}

func TestReadsCountTowardUsage(t *testing.T) {
	s := newTestServer(t)

	for i := 0; i < 2; i++ {
		if w := s.do(t, http.MethodGet, "/api/pools", ""); w.Code != http.StatusOK {
			t.Fatalf("Expected 200 listing pools, got %d", w.Code)
		}
	}
	s.do(t, http.MethodPost, "/api/validate", `{"courses": `+coursesJSON+`}`)

	w := s.do(t, http.MethodGet, "/api/usage", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var usage struct {
		Totals struct {
			Requests int `json:"requests"`
			Sections int `json:"sections"`
		} `json:"totals"`
	}
	decode(t, w, &usage)
	// the usage call itself is recorded after it responds
	if usage.Totals.Requests != 3 || usage.Totals.Sections != 3 {
		t.Errorf("Expected 3 requests and 3 sections, got %+v", usage.Totals)
	}
}

func TestAddSectionRejectsAnythingButOneObject(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/pools", `{"name": "fall", "courses": `+coursesJSON+`}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		ID uint `json:"id"`
	}
	decode(t, w, &created)
	base := "/api/pools/" + jsonNumber(created.ID)

	bodies := map[string]string{
		"empty":       "",
		"blank":       "   ",
		"array":       `[{"name": "D", "type": "elective", "class_id": "1", "credits": 1, "time_slots": [["Wed", 3]]}]`,
		"two objects": `{"name": "D", "type": "elective", "class_id": "1", "credits": 1, "time_slots": [["Wed", 3]]},{"name": "E", "type": "elective", "class_id": "1", "credits": 1, "time_slots": [["Thu", 4]]}`,
		"trailing":    `{"name": "D", "type": "elective", "class_id": "1", "credits": 1, "time_slots": [["Wed", 3]]} {}`,
	}
	for name, body := range bodies {
		if w := s.do(t, http.MethodPost, base+"/sections", body); w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d: %s", name, w.Code, w.Body.String())
		}
	}

	w = s.do(t, http.MethodGet, base, "")
	var pool struct {
		SectionCount int `json:"section_count"`
	}
	decode(t, w, &pool)
	if pool.SectionCount != 3 {
		t.Errorf("Expected the pool to keep 3 sections, got %d", pool.SectionCount)
	}
}

func TestDeadlineMapsToGatewayTimeout(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/generate", nil)
	s.h.errorResponse(c, fmt.Errorf("generate: %w", context.DeadlineExceeded))
	if w.Code != http.StatusGatewayTimeout {
		t.Errorf("Expected 504, got %d", w.Code)
	}
}

func jsonNumber(n uint) string {
	b, _ := json.Marshal(n)
	return string(b)
}
