package handlers

import (
	"net/http"

	"github.com/yukikurage/volunteer-api/internal/dto"
	apierrors "github.com/yukikurage/volunteer-api/internal/errors"
	"github.com/yukikurage/volunteer-api/internal/testutil"
)

func (s *apiSuite) TestCreateUnitRequiresStaff() {
	_, code := s.newUnitCode("Shelter")
	_, volunteerToken := s.redeem(code, "alice")

	w := s.do(http.MethodPost, "/api/units", map[string]string{"title": "Kitchen"}, volunteerToken)
	s.requireError(w, http.StatusForbidden, apierrors.ErrCodeForbidden)

	w = s.do(http.MethodPost, "/api/units", map[string]string{"title": "Kitchen"}, "")
	s.requireError(w, http.StatusUnauthorized, apierrors.ErrCodeUnauthorized)

	w = s.do(http.MethodPost, "/api/units", map[string]string{"title": "   "}, s.staffToken)
	s.requireError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput)
}

func (s *apiSuite) TestListAndGetUnits() {
	unit, _ := s.newUnitCode("Shelter")
	s.newUnitCode("Kitchen")

	w := s.do(http.MethodGet, "/api/units", nil, s.staffToken)
	s.Require().Equal(http.StatusOK, w.Code)
	var listed struct {
		Units []dto.UnitDTO `json:"units"`
	}
	s.decode(w, &listed)
	s.Len(listed.Units, 2)

	w = s.do(http.MethodGet, "/api/units/"+utoa(unit.ID), nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	var got dto.UnitDTO
	s.decode(w, &got)
	s.Equal("Shelter", got.Title)
	s.Equal(s.staff.ID, got.CreatorID)

	s.requireError(s.do(http.MethodGet, "/api/units/999", nil, ""), http.StatusNotFound, apierrors.ErrCodeNotFound)
	s.requireError(s.do(http.MethodGet, "/api/units/abc", nil, ""), http.StatusBadRequest, apierrors.ErrCodeInvalidInput)
}

func (s *apiSuite) TestCreateLinkOwnership() {
	unit, _ := s.newUnitCode("Shelter")

	testutil.CreateUser(s.T(), s.db, "other-staff", "password123", true)
	otherToken := s.login("other-staff", "password123").Access

	w := s.do(http.MethodPost, "/api/units/"+utoa(unit.ID)+"/links", nil, otherToken)
	s.requireError(w, http.StatusForbidden, apierrors.ErrCodeForbidden)

	w = s.do(http.MethodGet, "/api/units/"+utoa(unit.ID)+"/links", nil, otherToken)
	s.requireError(w, http.StatusForbidden, apierrors.ErrCodeForbidden)

	w = s.do(http.MethodPost, "/api/units/999/links", nil, s.staffToken)
	s.requireError(w, http.StatusNotFound, apierrors.ErrCodeNotFound)
}

func (s *apiSuite) TestLinksTrackRedemption() {
	unit, code := s.newUnitCode("Shelter")

	w := s.do(http.MethodPost, "/api/units/"+utoa(unit.ID)+"/links", nil, s.staffToken)
	s.Require().Equal(http.StatusCreated, w.Code)
	var second dto.LinkDTO
	s.decode(w, &second)
	s.NotEqual(code, second.Code)
	s.Len(second.Code, 32)
	s.True(second.IsOpen)

	w = s.do(http.MethodGet, "/api/links/"+code, nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	var resolved dto.ResolvedLinkDTO
	s.decode(w, &resolved)
	s.True(resolved.IsOpen)
	s.Equal(unit.ID, resolved.Unit.ID)

	s.redeem(code, "alice")

	w = s.do(http.MethodGet, "/api/links/"+code, nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &resolved)
	s.False(resolved.IsOpen)

	w = s.do(http.MethodGet, "/api/units/"+utoa(unit.ID)+"/links", nil, s.staffToken)
	s.Require().Equal(http.StatusOK, w.Code)
	var listed struct {
		Links []dto.LinkDTO `json:"links"`
	}
	s.decode(w, &listed)
	s.Require().Len(listed.Links, 2)
	open := map[string]bool{}
	for _, link := range listed.Links {
		open[link.Code] = link.IsOpen
	}
	s.False(open[code])
	s.True(open[second.Code])

	s.requireError(s.do(http.MethodGet, "/api/links/unknown", nil, ""), http.StatusNotFound, apierrors.ErrCodeNotFound)
}
