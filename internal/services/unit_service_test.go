package services

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/yukikurage/volunteer-api/internal/models"
	"github.com/yukikurage/volunteer-api/internal/testutil"
)

func (s *serviceSuite) TestCreateLink_OnlyCreator() {
	unit, _ := s.newUnitWithLink("Park Cleanup")

	other := testutil.CreateUser(s.T(), s.db, "other-staff", "password123", true)
	_, err := s.units.CreateLink(s.ctx, unit.ID, other.ID)
	s.ErrorIs(err, ErrNotUnitCreator)

	_, err = s.units.CreateLink(s.ctx, 9999, s.staff.ID)
	s.ErrorIs(err, ErrUnitNotFound)

	link, err := s.units.CreateLink(s.ctx, unit.ID, s.staff.ID)
	s.Require().NoError(err)
	s.Len(link.Code, 32)
	s.True(link.IsOpen())

	links, err := s.units.ListLinks(s.ctx, unit.ID, s.staff.ID)
	s.Require().NoError(err)
	s.Len(links, 2)

	_, err = s.units.ListLinks(s.ctx, unit.ID, other.ID)
	s.ErrorIs(err, ErrNotUnitCreator)
}

func (s *serviceSuite) TestCreateLink_RetriesOnCollision() {
	unit, code := s.newUnitWithLink("Park Cleanup")

	codes := []string{code, code, "fresh-code"}
	s.units.generateCode = func() (string, error) {
		next := codes[0]
		codes = codes[1:]
		return next, nil
	}

	link, err := s.units.CreateLink(s.ctx, unit.ID, s.staff.ID)
	s.Require().NoError(err)
	s.Equal("fresh-code", link.Code)

	s.units.generateCode = func() (string, error) { return "", errors.New("no entropy") }
	_, err = s.units.CreateLink(s.ctx, unit.ID, s.staff.ID)
	s.ErrorIs(err, ErrFailedToGenerateCode)
}

func (s *serviceSuite) TestCreateUnit_Validation() {
	volunteer := testutil.CreateUser(s.T(), s.db, "plain", "password123", false)
	_, err := s.units.CreateUnit(s.ctx, CreateUnitInput{Title: "Mine", Creator: volunteer})
	s.ErrorIs(err, ErrStaffOnly)

	_, err = s.units.CreateUnit(s.ctx, CreateUnitInput{Title: "   ", Creator: s.staff})
	s.ErrorIs(err, ErrTitleRequired)

	_, err = s.units.CreateUnit(s.ctx, CreateUnitInput{Title: strings.Repeat("x", 101), Creator: s.staff})
	s.ErrorIs(err, ErrTitleTooLong)

	unit, err := s.units.CreateUnit(s.ctx, CreateUnitInput{Title: " River ", Description: "banks", Creator: s.staff})
	s.Require().NoError(err)
	s.Equal("River", unit.Title)

	units, err := s.units.ListMyUnits(s.ctx, s.staff.ID)
	s.Require().NoError(err)
	s.Len(units, 1)
}

func (s *serviceSuite) TestResolveLink() {
	unit, code := s.newUnitWithLink("Park Cleanup")

	link, err := s.units.ResolveLink(s.ctx, code)
	s.Require().NoError(err)
	s.Equal(unit.ID, link.Unit.ID)
	s.True(link.IsOpen())

	_, err = s.units.ResolveLink(s.ctx, "unknown")
	s.ErrorIs(err, ErrLinkNotFound)
}

func (s *serviceSuite) TestDeleteUnit_Cascades() {
	unit, code := s.newUnitWithLink("Park Cleanup")
	alice := s.redeem(code, "alice")
	task := s.newTask("Pick up litter", 10)

	_, err := s.ledger.MarkComplete(s.ctx, task.ID, alice.Volunteer.ID)
	s.Require().NoError(err)
	comment, err := s.ledger.AddComment(s.ctx, AddCommentInput{
		TaskID:      task.ID,
		VolunteerID: alice.Volunteer.ID,
		Text:        "look",
		Photo:       &Upload{Filename: "a.png", Content: strings.NewReader("png")},
	})
	s.Require().NoError(err)
	_, err = s.volunteers.UpdateAvatar(s.ctx, alice.Volunteer.UserID, Upload{Filename: "me.png", Content: strings.NewReader("png")})
	s.Require().NoError(err)

	s.Require().NoError(s.units.DeleteUnit(s.ctx, unit.ID))

	s.Equal(int64(0), s.count(&models.Unit{}))
	s.Equal(int64(0), s.count(&models.InviteLink{}))
	s.Equal(int64(0), s.count(&models.Volunteer{}))
	s.Equal(int64(0), s.count(&models.Rating{}))
	s.Equal(int64(0), s.count(&models.Comment{}))
	// identities and tasks survive
	s.Equal(int64(2), s.count(&models.User{}))
	s.Equal(int64(1), s.count(&models.Task{}))

	_, err = os.Stat(filepath.Join(s.mediaDir, filepath.FromSlash(comment.Photo)))
	s.True(os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(s.mediaDir, "volunteer", utoa(alice.Volunteer.ID)+".png"))
	s.True(os.IsNotExist(err))

	s.ErrorIs(s.units.DeleteUnit(s.ctx, unit.ID), ErrUnitNotFound)
}
