package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yukikurage/volunteer-api/internal/dto"
	apierrors "github.com/yukikurage/volunteer-api/internal/errors"
	"github.com/yukikurage/volunteer-api/internal/testutil"
)

func (s *apiSuite) listTasks(query, token string) dto.TaskListResponse {
	w := s.do(http.MethodGet, "/api/tasks"+query, nil, token)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var resp dto.TaskListResponse
	s.decode(w, &resp)
	return resp
}

func taskTitles(resp dto.TaskListResponse) []string {
	titles := make([]string, len(resp.Tasks))
	for i, task := range resp.Tasks {
		titles[i] = task.Title
	}
	return titles
}

func (s *apiSuite) TestCreateTask() {
	task := s.newTask("Sort donations", 10)
	s.True(task.IsOpen)
	s.False(task.IsArchived)
	s.Nil(task.Photo)
	s.Equal(uint(10), task.Score)
	s.Require().NotNil(task.Creator)
	s.Equal("organizer", task.Creator.Username)

	now := time.Now().UTC()
	w := s.do(http.MethodPost, "/api/tasks", map[string]any{
		"title":      "Backwards",
		"score":      5,
		"date_start": now.Format(time.RFC3339),
		"date_end":   now.Add(-time.Hour).Format(time.RFC3339),
	}, s.staffToken)
	s.requireError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput)

	w = s.do(http.MethodPost, "/api/tasks", map[string]any{
		"title":      "No score",
		"score":      0,
		"date_start": now.Format(time.RFC3339),
		"date_end":   now.Format(time.RFC3339),
	}, s.staffToken)
	s.requireError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput)
}

func (s *apiSuite) TestListTasksVisibility() {
	s.newTask("Open task", 5)
	closed := s.newTask("Closed task", 5)
	s.closeTask(closed.ID)

	anonymous := s.listTasks("", "")
	s.Equal([]string{"Closed task"}, taskTitles(anonymous))
	s.Equal(int64(1), anonymous.Pagination.Total)

	// Anonymous callers cannot ask for open tasks, and the filter is not even parsed.
	s.Equal([]string{"Closed task"}, taskTitles(s.listTasks("?is_open=true", "")))
	s.Equal([]string{"Closed task"}, taskTitles(s.listTasks("?is_open=bogus", "")))

	s.Equal([]string{"Open task"}, taskTitles(s.listTasks("", s.staffToken)))
	s.Equal([]string{"Closed task"}, taskTitles(s.listTasks("?is_open=false", s.staffToken)))

	w := s.do(http.MethodGet, "/api/tasks?is_open=maybe", nil, s.staffToken)
	s.requireError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput)

	// A bad token is rejected rather than treated as anonymous.
	w = s.do(http.MethodGet, "/api/tasks", nil, "forged")
	s.requireError(w, http.StatusUnauthorized, apierrors.ErrCodeUnauthorized)
}

func (s *apiSuite) TestListTasksPagination() {
	for _, title := range []string{"one", "two", "three"} {
		s.newTask(title, 1)
	}

	resp := s.listTasks("?page=2&limit=2", s.staffToken)
	s.Len(resp.Tasks, 1)
	s.Equal(int64(3), resp.Pagination.Total)
	s.Equal(2, resp.Pagination.TotalPages)
	s.Equal(2, resp.Pagination.Page)
}

func (s *apiSuite) TestUpdateTask() {
	task := s.newTask("Paint fence", 10)

	w := s.do(http.MethodPatch, "/api/tasks/"+utoa(task.ID), map[string]any{
		"title": "Paint the fence",
		"score": 15,
	}, s.staffToken)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var updated dto.TaskDTO
	s.decode(w, &updated)
	s.Equal("Paint the fence", updated.Title)
	s.Equal(uint(15), updated.Score)
	s.True(updated.IsOpen)

	testutil.CreateUser(s.T(), s.db, "other-staff", "password123", true)
	otherToken := s.login("other-staff", "password123").Access
	w = s.do(http.MethodPatch, "/api/tasks/"+utoa(task.ID), map[string]any{"title": "Hijack"}, otherToken)
	s.requireError(w, http.StatusForbidden, apierrors.ErrCodeForbidden)

	s.closeTask(task.ID)

	w = s.do(http.MethodPatch, "/api/tasks/"+utoa(task.ID), map[string]bool{"is_open": true}, s.staffToken)
	s.requireError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidOperation)

	w = s.do(http.MethodPatch, "/api/tasks/999", map[string]any{"title": "Missing"}, s.staffToken)
	s.requireError(w, http.StatusNotFound, apierrors.ErrCodeNotFound)
}

func (s *apiSuite) TestGetTask() {
	task := s.newTask("Cook", 3)

	w := s.do(http.MethodGet, "/api/tasks/"+utoa(task.ID), nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	var got dto.TaskDTO
	s.decode(w, &got)
	s.Equal("Cook", got.Title)

	s.requireError(s.do(http.MethodGet, "/api/tasks/999", nil, ""), http.StatusNotFound, apierrors.ErrCodeNotFound)
}

func (s *apiSuite) TestGenerateTasks() {
	w := s.do(http.MethodPost, "/api/tasks/generate", map[string]string{"text": "clean the park on saturday"}, s.staffToken)
	s.requireError(w, http.StatusServiceUnavailable, apierrors.ErrCodeServiceUnavailable)

	_, code := s.newUnitCode("Shelter")
	_, volunteerToken := s.redeem(code, "alice")
	w = s.do(http.MethodPost, "/api/tasks/generate", map[string]string{"text": "anything"}, volunteerToken)
	s.requireError(w, http.StatusForbidden, apierrors.ErrCodeForbidden)
}

func (s *apiSuite) TestComments() {
	task := s.newTask("Garden", 4)
	_, code := s.newUnitCode("Shelter")
	_, token := s.redeem(code, "alice")
	path := "/api/tasks/" + utoa(task.ID) + "/comments"

	w := s.do(http.MethodPost, path, map[string]string{"text": "<b>Done</b> <script>alert(1)</script>"}, token)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var first dto.CommentDTO
	s.decode(w, &first)
	s.Equal("Done", first.Text)
	s.Nil(first.Photo)
	s.Require().NotNil(first.Author)
	s.Equal("alice", first.Author.Username)

	w = s.do(http.MethodPost, path, map[string]string{"text": "<p></p>"}, token)
	s.requireError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput)

	w = s.do(http.MethodPost, path, map[string]string{"text": "&lt;script&gt;alert(1)&lt;/script&gt;"}, token)
	s.requireError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput)

	w = s.upload(http.MethodPost, path, "photo", "after.png", []byte("png-bytes"), map[string]string{"text": "Photo"}, token)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var withPhoto dto.CommentDTO
	s.decode(w, &withPhoto)
	s.Require().NotNil(withPhoto.Photo)
	s.Equal("http://api.test/media/comment/"+utoa(withPhoto.ID)+".png", *withPhoto.Photo)

	stored, err := os.ReadFile(filepath.Join(s.mediaDir, "comment", utoa(withPhoto.ID)+".png"))
	s.Require().NoError(err)
	s.Equal("png-bytes", string(stored))

	w = s.upload(http.MethodPost, path, "photo", "notes.txt", []byte("text"), map[string]string{"text": "Wrong type"}, token)
	s.requireError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput)

	// Staff without a volunteer record cannot comment.
	w = s.do(http.MethodPost, path, map[string]string{"text": "hello"}, s.staffToken)
	s.requireError(w, http.StatusForbidden, apierrors.ErrCodeForbidden)

	w = s.do(http.MethodGet, path, nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	var listed struct {
		Comments []dto.CommentDTO `json:"comments"`
	}
	s.decode(w, &listed)
	s.Require().Len(listed.Comments, 2)
	s.Equal(first.ID, listed.Comments[0].ID)
	s.Equal(withPhoto.ID, listed.Comments[1].ID)

	// The first photo becomes the task's preview, closed or not.
	s.closeTask(task.ID)
	w = s.do(http.MethodGet, "/api/tasks/"+utoa(task.ID), nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	var got dto.TaskDTO
	s.decode(w, &got)
	s.Require().NotNil(got.Photo)
	s.True(strings.HasSuffix(*got.Photo, "/media/comment/"+utoa(withPhoto.ID)+".png"))

	w = s.do(http.MethodPost, path, map[string]string{"text": "too late"}, token)
	s.requireError(w, http.StatusBadRequest, apierrors.ErrCodeNotFound)

	s.requireError(s.do(http.MethodGet, "/api/tasks/999/comments", nil, ""), http.StatusNotFound, apierrors.ErrCodeNotFound)
}

func (s *apiSuite) TestCommentUploadTooLarge() {
	task := s.newTask("Garden", 4)
	_, code := s.newUnitCode("Shelter")
	_, token := s.redeem(code, "alice")

	big := make([]byte, (1<<20)+1024)
	w := s.upload(http.MethodPost, "/api/tasks/"+utoa(task.ID)+"/comments", "photo", "big.png", big, map[string]string{"text": "big"}, token)
	s.Require().Equal(http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
}
