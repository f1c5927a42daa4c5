package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/yukikurage/volunteer-api/internal/dto"
	apierrors "github.com/yukikurage/volunteer-api/internal/errors"
	"github.com/yukikurage/volunteer-api/internal/models"
)

func (s *apiSuite) TestRedeem() {
	unit, code := s.newUnitCode("Shelter")

	profile, token := s.redeem(code, "alice")
	s.Equal("alice", profile.User.Username)
	s.Equal(int64(0), profile.Score)
	s.Nil(profile.Avatar)
	s.Require().NotNil(profile.Unit)
	s.Equal(unit.ID, profile.Unit.ID)

	w := s.do(http.MethodGet, "/api/my", nil, token)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var me dto.VolunteerDTO
	s.decode(w, &me)
	s.Equal(profile.ID, me.ID)

	// The same code cannot be redeemed twice.
	w = s.do(http.MethodPost, "/api/my", map[string]string{
		"code":     code,
		"username": "bob",
		"password": "password123",
	}, "")
	s.requireError(w, http.StatusBadRequest, apierrors.ErrCodeConflict)

	w = s.do(http.MethodPost, "/api/my", map[string]string{
		"code":     "no-such-code",
		"username": "bob",
		"password": "password123",
	}, "")
	s.requireError(w, http.StatusNotFound, apierrors.ErrCodeNotFound)

	var users int64
	s.Require().NoError(s.db.Model(&models.User{}).Where("username = ?", "bob").Count(&users).Error)
	s.Zero(users)
}

func (s *apiSuite) TestRedeemDuplicateUsernameKeepsLinkOpen() {
	_, first := s.newUnitCode("Shelter")
	_, second := s.newUnitCode("Kitchen")
	s.redeem(first, "alice")

	w := s.do(http.MethodPost, "/api/my", map[string]string{
		"code":     second,
		"username": "alice",
		"password": "password123",
	}, "")
	s.requireError(w, http.StatusBadRequest, apierrors.ErrCodeAlreadyExists)

	w = s.do(http.MethodGet, "/api/links/"+second, nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	var resolved dto.ResolvedLinkDTO
	s.decode(w, &resolved)
	s.True(resolved.IsOpen)

	// The code is still usable with another handle.
	s.redeem(second, "bob")
}

func (s *apiSuite) TestRedeemValidation() {
	_, code := s.newUnitCode("Shelter")

	w := s.do(http.MethodPost, "/api/my", map[string]string{
		"code":     code,
		"username": "alice",
		"password": "short",
	}, "")
	s.requireError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput)

	w = s.do(http.MethodPost, "/api/my", map[string]string{"code": code}, "")
	s.requireError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput)
}

func (s *apiSuite) TestProfileRequiresVolunteer() {
	s.requireError(s.do(http.MethodGet, "/api/my", nil, ""), http.StatusUnauthorized, apierrors.ErrCodeUnauthorized)
	s.requireError(s.do(http.MethodGet, "/api/my", nil, s.staffToken), http.StatusNotFound, apierrors.ErrCodeNotFound)
	s.requireError(s.do(http.MethodGet, "/api/my/tasks", nil, s.staffToken), http.StatusForbidden, apierrors.ErrCodeForbidden)
}

func (s *apiSuite) TestMarkCompleteAndScore() {
	task := s.newTask("Deliver food", 10)
	_, code := s.newUnitCode("Shelter")
	_, token := s.redeem(code, "alice")
	path := "/api/my/tasks/" + utoa(task.ID)

	w := s.do(http.MethodPost, path, nil, token)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var rating dto.RatingDTO
	s.decode(w, &rating)
	s.Equal(task.ID, rating.TaskID)

	s.requireError(s.do(http.MethodPost, path, nil, token), http.StatusConflict, apierrors.ErrCodeConflict)
	s.requireError(s.do(http.MethodPost, "/api/my/tasks/999", nil, token), http.StatusBadRequest, apierrors.ErrCodeNotFound)

	// Open tasks do not count towards the score yet.
	s.Equal(int64(0), s.profile(token).Score)

	w = s.do(http.MethodGet, "/api/my/tasks", nil, token)
	s.Require().Equal(http.StatusOK, w.Code)
	var mine dto.TaskListResponse
	s.decode(w, &mine)
	s.Equal([]string{"Deliver food"}, taskTitles(mine))

	s.closeTask(task.ID)
	s.Equal(int64(10), s.profile(token).Score)

	// Completion cannot change once the task is closed.
	s.requireError(s.do(http.MethodDelete, path, nil, token), http.StatusBadRequest, apierrors.ErrCodeNotFound)
	s.requireError(s.do(http.MethodPost, path, nil, token), http.StatusBadRequest, apierrors.ErrCodeNotFound)

	// Closed tasks stay in the volunteer's own list.
	w = s.do(http.MethodGet, "/api/my/tasks", nil, token)
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &mine)
	s.Equal([]string{"Deliver food"}, taskTitles(mine))
}

func (s *apiSuite) TestRevokeOnlyRemovesOwnRating() {
	task := s.newTask("Deliver food", 10)
	_, firstCode := s.newUnitCode("Shelter")
	_, secondCode := s.newUnitCode("Kitchen")
	_, alice := s.redeem(firstCode, "alice")
	_, bob := s.redeem(secondCode, "bob")
	path := "/api/my/tasks/" + utoa(task.ID)

	s.Require().Equal(http.StatusOK, s.do(http.MethodPost, path, nil, alice).Code)
	s.Require().Equal(http.StatusOK, s.do(http.MethodPost, path, nil, bob).Code)

	s.Equal(http.StatusAccepted, s.do(http.MethodDelete, path, nil, alice).Code)
	// Revoking again is harmless.
	s.Equal(http.StatusAccepted, s.do(http.MethodDelete, path, nil, alice).Code)

	s.closeTask(task.ID)
	s.Equal(int64(0), s.profile(alice).Score)
	s.Equal(int64(10), s.profile(bob).Score)
}

func (s *apiSuite) TestRankAscending() {
	_, c1 := s.newUnitCode("A")
	_, c2 := s.newUnitCode("B")
	_, c3 := s.newUnitCode("C")
	_, high := s.redeem(c1, "high")
	_, low := s.redeem(c2, "low")
	s.redeem(c3, "zero")

	small := s.newTask("small", 5)
	big := s.newTask("big", 20)
	for _, tok := range []string{high, low} {
		s.Require().Equal(http.StatusOK, s.do(http.MethodPost, "/api/my/tasks/"+utoa(small.ID), nil, tok).Code)
	}
	s.Require().Equal(http.StatusOK, s.do(http.MethodPost, "/api/my/tasks/"+utoa(big.ID), nil, high).Code)
	s.closeTask(small.ID)
	s.closeTask(big.ID)

	w := s.do(http.MethodGet, "/api/volunteers", nil, "")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var ranked dto.VolunteerListResponse
	s.decode(w, &ranked)
	s.Require().Len(ranked.Volunteers, 3)

	names := make([]string, 3)
	scores := make([]int64, 3)
	for i, v := range ranked.Volunteers {
		names[i] = v.User.Username
		scores[i] = v.Score
	}
	s.Equal([]string{"zero", "low", "high"}, names)
	s.Equal([]int64{0, 5, 25}, scores)
	s.Equal(int64(3), ranked.Pagination.Total)

	w = s.do(http.MethodGet, "/api/volunteers?page=2&limit=2", nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &ranked)
	s.Require().Len(ranked.Volunteers, 1)
	s.Equal("high", ranked.Volunteers[0].User.Username)
}

func (s *apiSuite) TestUpdateAvatar() {
	_, code := s.newUnitCode("Shelter")
	profile, token := s.redeem(code, "alice")

	w := s.upload(http.MethodPut, "/api/my/avatar", "avatar", "me.png", []byte("first"), nil, token)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var updated dto.VolunteerDTO
	s.decode(w, &updated)
	s.Require().NotNil(updated.Avatar)
	s.Equal("http://api.test/media/volunteer/"+utoa(profile.ID)+".png", *updated.Avatar)

	pngPath := filepath.Join(s.mediaDir, "volunteer", utoa(profile.ID)+".png")
	s.FileExists(pngPath)

	w = s.upload(http.MethodPut, "/api/my/avatar", "avatar", "me.jpg", []byte("second"), nil, token)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.decode(w, &updated)
	s.Equal("http://api.test/media/volunteer/"+utoa(profile.ID)+".jpg", *updated.Avatar)

	_, err := os.Stat(pngPath)
	s.True(os.IsNotExist(err), "old avatar should be removed")

	w = s.upload(http.MethodPut, "/api/my/avatar", "", "", nil, nil, token)
	s.requireError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput)

	w = s.upload(http.MethodPut, "/api/my/avatar", "avatar", "me.exe", []byte("x"), nil, token)
	s.requireError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput)
}

func (s *apiSuite) profile(token string) dto.VolunteerDTO {
	w := s.do(http.MethodGet, "/api/my", nil, token)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var profile dto.VolunteerDTO
	s.decode(w, &profile)
	return profile
}

func (s *apiSuite) TestMediaURLsWithoutBaseURL() {
	cfg := *s.cfg
	cfg.BaseURL = ""
	s.router = s.newRouter(&cfg)

	_, code := s.newUnitCode("Shelter")
	profile, token := s.redeem(code, "alice")
	avatar := "/media/volunteer/" + utoa(profile.ID) + ".png"

	// Forwarded headers from an untrusted peer are ignored.
	s.headers = http.Header{"X-Forwarded-Proto": {"https"}}
	w := s.upload(http.MethodPut, "/api/my/avatar", "avatar", "me.png", []byte("png"), nil, token)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var updated dto.VolunteerDTO
	s.decode(w, &updated)
	s.Require().NotNil(updated.Avatar)
	s.Equal("http://example.com"+avatar, *updated.Avatar)

	cfg.TrustedProxies = []string{"192.0.2.1"}
	s.router = s.newRouter(&cfg)
	s.Equal("https://example.com"+avatar, *s.profile(token).Avatar)
}
