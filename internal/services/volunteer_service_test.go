package services

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/yukikurage/volunteer-api/internal/models"
	"github.com/yukikurage/volunteer-api/internal/utils"
)

func (s *serviceSuite) TestRedeem_CreatesVolunteerWithZeroScore() {
	unit, code := s.newUnitWithLink("Park Cleanup")

	profile := s.redeem(code, "alice")
	s.Equal(int64(0), profile.Score)
	s.Equal("alice", profile.Volunteer.User.Username)
	s.Equal(unit.ID, profile.Volunteer.Link.UnitID)
	s.Equal(models.TariffFree, profile.Volunteer.User.Tariff)

	link, err := s.units.ResolveLink(s.ctx, code)
	s.Require().NoError(err)
	s.False(link.IsOpen())

	// the explicit password works, the code does not
	_, _, err = s.auth.Login(s.ctx, LoginInput{Username: "alice", Password: "password123"})
	s.NoError(err)
	_, _, err = s.auth.Login(s.ctx, LoginInput{Username: "alice", Password: code})
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *serviceSuite) TestRedeem_ConsumedCodeLeavesNoOrphans() {
	_, code := s.newUnitWithLink("Park Cleanup")
	s.redeem(code, "alice")

	users := s.count(&models.User{})
	volunteers := s.count(&models.Volunteer{})

	_, err := s.volunteers.Redeem(s.ctx, RedeemInput{Code: code, Username: "mallory", Password: "password123"})
	s.ErrorIs(err, ErrLinkConsumed)

	s.Equal(users, s.count(&models.User{}))
	s.Equal(volunteers, s.count(&models.Volunteer{}))
}

func (s *serviceSuite) TestRedeem_Failures() {
	_, code := s.newUnitWithLink("Park Cleanup")

	_, err := s.volunteers.Redeem(s.ctx, RedeemInput{Code: "nope", Username: "bob", Password: "password123"})
	s.ErrorIs(err, ErrLinkNotFound)

	_, err = s.volunteers.Redeem(s.ctx, RedeemInput{Code: code, Username: "organizer", Password: "password123"})
	s.ErrorIs(err, ErrUsernameTaken)

	_, err = s.volunteers.Redeem(s.ctx, RedeemInput{Code: code, Username: "bob", Password: "short"})
	s.ErrorIs(err, ErrPasswordTooShort)

	_, err = s.volunteers.Redeem(s.ctx, RedeemInput{Code: code, Username: "  ", Password: "password123"})
	s.ErrorIs(err, ErrUsernameRequired)

	// none of the failures consumed the link
	link, err := s.units.ResolveLink(s.ctx, code)
	s.Require().NoError(err)
	s.True(link.IsOpen())
	s.Equal(int64(0), s.count(&models.Volunteer{}))
}

func (s *serviceSuite) TestRedeem_ConcurrentOnlyOneWins() {
	_, code := s.newUnitWithLink("Park Cleanup")

	const attempts = 6
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.volunteers.Redeem(s.ctx, RedeemInput{
				Code:     code,
				Username: "user" + string(rune('a'+i)),
				Password: "password123",
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		s.ErrorIs(err, ErrLinkConsumed)
	}
	s.Equal(1, wins)
	s.Equal(int64(1), s.count(&models.Volunteer{}))
	s.Equal(int64(2), s.count(&models.User{}))
}

func (s *serviceSuite) TestScore_OnlyClosedTasksCount() {
	_, code := s.newUnitWithLink("Park Cleanup")
	alice := s.redeem(code, "alice")
	userID := alice.Volunteer.UserID
	volunteerID := alice.Volunteer.ID

	litter := s.newTask("Pick up litter", 10)
	_, err := s.ledger.MarkComplete(s.ctx, litter.ID, volunteerID)
	s.Require().NoError(err)

	profile, err := s.volunteers.GetProfile(s.ctx, userID)
	s.Require().NoError(err)
	s.Equal(int64(0), profile.Score)

	s.closeTask(litter)

	profile, err = s.volunteers.GetProfile(s.ctx, userID)
	s.Require().NoError(err)
	s.Equal(int64(10), profile.Score)
	s.Equal("Park Cleanup", profile.Volunteer.Link.Unit.Title)

	// a rating on another open task does not move the score
	benches := s.newTask("Paint benches", 5)
	_, err = s.ledger.MarkComplete(s.ctx, benches.ID, volunteerID)
	s.Require().NoError(err)

	profile, err = s.volunteers.GetProfile(s.ctx, userID)
	s.Require().NoError(err)
	s.Equal(int64(10), profile.Score)
}

func (s *serviceSuite) TestRank_Ascending() {
	unit, _ := s.newUnitWithLink("Park Cleanup")

	scores := map[string]uint{"thirty": 30, "ten": 10, "twenty": 20}
	for _, name := range []string{"thirty", "ten", "twenty"} {
		link, err := s.units.CreateLink(s.ctx, unit.ID, s.staff.ID)
		s.Require().NoError(err)
		v := s.redeem(link.Code, name)

		task := s.newTask("task for "+name, scores[name])
		_, err = s.ledger.MarkComplete(s.ctx, task.ID, v.Volunteer.ID)
		s.Require().NoError(err)
		s.closeTask(task)
	}

	ranked, total, err := s.volunteers.Rank(s.ctx, utils.PaginationParams{Page: 1, Limit: 20})
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.Require().Len(ranked, 3)
	s.Equal([]int64{10, 20, 30}, []int64{ranked[0].Score, ranked[1].Score, ranked[2].Score})
	s.Equal("ten", ranked[0].Volunteer.User.Username)
}

func (s *serviceSuite) TestUpdateAvatar_ReplacesFile() {
	_, code := s.newUnitWithLink("Park Cleanup")
	alice := s.redeem(code, "alice")

	v, err := s.volunteers.UpdateAvatar(s.ctx, alice.Volunteer.UserID, Upload{Filename: "me.png", Content: strings.NewReader("png")})
	s.Require().NoError(err)
	s.Equal("volunteer/"+utoa(alice.Volunteer.ID)+".png", v.Avatar)
	s.FileExists(filepath.Join(s.mediaDir, "volunteer", utoa(alice.Volunteer.ID)+".png"))

	v, err = s.volunteers.UpdateAvatar(s.ctx, alice.Volunteer.UserID, Upload{Filename: "me.jpg", Content: strings.NewReader("jpg")})
	s.Require().NoError(err)
	s.Equal("volunteer/"+utoa(alice.Volunteer.ID)+".jpg", v.Avatar)

	_, err = os.Stat(filepath.Join(s.mediaDir, "volunteer", utoa(alice.Volunteer.ID)+".png"))
	s.True(os.IsNotExist(err))

	_, err = s.volunteers.UpdateAvatar(s.ctx, alice.Volunteer.UserID, Upload{Filename: "me.exe", Content: strings.NewReader("x")})
	s.ErrorIs(err, ErrUnsupportedMedia)

	_, err = s.volunteers.UpdateAvatar(s.ctx, s.staff.ID, Upload{Filename: "me.png", Content: strings.NewReader("x")})
	s.ErrorIs(err, ErrVolunteerNotFound)
}
