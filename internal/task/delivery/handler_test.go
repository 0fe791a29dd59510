package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	authdelivery "pmchat-backend/internal/auth/delivery"
	authusecase "pmchat-backend/internal/auth/usecase"
	projectdomain "pmchat-backend/internal/project/domain"
	projectrepo "pmchat-backend/internal/project/repository"
	projectusecase "pmchat-backend/internal/project/usecase"
	"pmchat-backend/internal/task/domain"
	"pmchat-backend/internal/task/repository"
	"pmchat-backend/internal/task/usecase"
	"pmchat-backend/pkg/docstore"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const owner = "pm@example.com"

type testServer struct {
	router   *gin.Engine
	projects projectrepo.ProjectRepository
	tasks    repository.TaskRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := docstore.NewMemoryStore()
	tasks := repository.NewTaskRepository(store)
	projects := projectrepo.NewProjectRepository(store)
	linker := projectusecase.NewLinkageUpdater(projects, projectusecase.NewProgressAggregator(projects))

	r := gin.New()
	NewTaskHandler(usecase.NewTaskUsecase(tasks, linker)).RegisterRoutes(r)

	require.NoError(t, projects.Create(context.Background(), &projectdomain.Project{
		ID:     "P1",
		Name:   "Billing",
		Stages: []projectdomain.Stage{{ID: "S1", Name: "Design"}, {ID: "S2", Name: "Build"}},
	}))
	return &testServer{router: r, projects: projects, tasks: tasks}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) create(t *testing.T, task map[string]interface{}) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/tasks", map[string]interface{}{"task": task, "email": owner})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

func TestCreateTaskLinksStage(t *testing.T) {
	s := newTestServer(t)
	id := s.create(t, map[string]interface{}{
		"title": "Design invoices", "projectId": "P1", "stageId": "S1", "assignee": "dev@example.com",
	})

	p, err := s.projects.FindByID(context.Background(), "P1")
	require.NoError(t, err)
	assert.Equal(t, []string{id}, p.TaskIDs)
	assert.Equal(t, []string{id}, p.Stages[0].TaskIDs)

	w := s.do(t, http.MethodGet, "/tasks/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var task domain.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &task))
	assert.Equal(t, "Design invoices", task.Title)
	assert.Equal(t, owner, task.Reporter)
}

func TestCreateTaskWithoutEmail(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/tasks", map[string]interface{}{"task": map[string]interface{}{"title": "x"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "error")

	all, err := s.tasks.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestListTasks(t *testing.T) {
	s := newTestServer(t)
	s.create(t, map[string]interface{}{"title": "a", "assignee": "dev@example.com"})
	s.create(t, map[string]interface{}{"title": "b"})

	w := s.do(t, http.MethodGet, "/tasks?email="+owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tasks []domain.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tasks))
	assert.Len(t, tasks, 2)

	w = s.do(t, http.MethodGet, "/tasks/by-email/dev@example.com?role=developer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, "a", tasks[0].Title)

	w = s.do(t, http.MethodGet, "/tasks/by-email/dev@example.com?role=intern", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodGet, "/tasks/by-email/dev@example.com", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/tasks/by-email/nobody@example.com?role=developer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestPatchTask(t *testing.T) {
	s := newTestServer(t)
	id := s.create(t, map[string]interface{}{"title": "a", "projectId": "P1", "stageId": "S1"})

	w := s.do(t, http.MethodPatch, "/tasks", map[string]interface{}{
		"email": owner, "id": id, "stageId": "S2", "status": "done",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	p, err := s.projects.FindByID(context.Background(), "P1")
	require.NoError(t, err)
	assert.Empty(t, p.Stages[0].TaskIDs)
	assert.Equal(t, []string{id}, p.Stages[1].TaskIDs)
	assert.Equal(t, 100, p.Progress)

	task, err := s.tasks.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "a", task.Title)
	assert.Equal(t, domain.TaskStatusDone, task.Status)
}

func TestPatchTaskRejectsBadRequests(t *testing.T) {
	s := newTestServer(t)
	id := s.create(t, map[string]interface{}{"title": "a"})

	cases := map[string]struct {
		body   interface{}
		status int
	}{
		"unknown field":  {map[string]interface{}{"email": owner, "id": id, "colour": "red"}, http.StatusBadRequest},
		"missing email":  {map[string]interface{}{"id": id, "title": "b"}, http.StatusBadRequest},
		"missing id":     {map[string]interface{}{"email": owner, "title": "b"}, http.StatusBadRequest},
		"invalid status": {map[string]interface{}{"email": owner, "id": id, "status": "archived"}, http.StatusBadRequest},
		"malformed json": {`{"email":`, http.StatusBadRequest},
		"missing task":   {map[string]interface{}{"email": owner, "id": "nope", "title": "b"}, http.StatusNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := s.do(t, http.MethodPatch, "/tasks", tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}

	task, err := s.tasks.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "a", task.Title)
}

func TestDeleteTask(t *testing.T) {
	s := newTestServer(t)
	id := s.create(t, map[string]interface{}{"title": "a", "projectId": "P1", "stageId": "S1"})

	w := s.do(t, http.MethodDelete, "/tasks", map[string]interface{}{"email": owner, "id": id})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	p, err := s.projects.FindByID(context.Background(), "P1")
	require.NoError(t, err)
	assert.Empty(t, p.TaskIDs)
	assert.Empty(t, p.Stages[0].TaskIDs)

	w = s.do(t, http.MethodGet, "/tasks/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodDelete, "/tasks", map[string]interface{}{"email": owner, "id": id})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddComment(t *testing.T) {
	s := newTestServer(t)
	id := s.create(t, map[string]interface{}{"title": "a"})

	w := s.do(t, http.MethodPost, "/tasks/"+id+"/comments", map[string]string{"author": "dev@example.com", "text": "On it"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	task, err := s.tasks.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, task.Comments, 1)
	assert.Equal(t, "On it", task.Comments[0].Text)

	w = s.do(t, http.MethodPost, "/tasks/"+id+"/comments", map[string]string{"author": "dev@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifiedCallerIsTaskOwner(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := docstore.NewMemoryStore()
	tasks := repository.NewTaskRepository(store)
	auth := authusecase.NewJWTAuth("secret", time.Hour)

	r := gin.New()
	r.Use(authdelivery.AuthMiddleware(auth))
	NewTaskHandler(usecase.NewTaskUsecase(tasks, nil)).RegisterRoutes(r)
	s := &testServer{router: r, tasks: tasks}

	token, err := auth.IssueToken(owner)
	require.NoError(t, err)
	as := func(method, path string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		return w
	}

	w := as(http.MethodPost, "/tasks", map[string]interface{}{
		"task":  map[string]interface{}{"title": "Audit log"},
		"email": "someone@example.com",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = as(http.MethodGet, "/tasks?email=someone@example.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []domain.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, owner, listed[0].Reporter)

	w = as(http.MethodPost, "/tasks/"+listed[0].ID+"/comments", map[string]string{"author": "someone@example.com", "text": "mine now"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var comment domain.Comment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &comment))
	assert.Equal(t, owner, comment.Author)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/tasks?email="+owner, nil).Code)
}
