package dto

import (
	"time"

	"github.com/yukikurage/volunteer-api/internal/models"
	"github.com/yukikurage/volunteer-api/internal/services"
	"github.com/yukikurage/volunteer-api/internal/utils"
)

// URLFunc turns a stored media key into an absolute URL. It returns "" for "".
type URLFunc func(key string) string

// UserDTO represents a user in API responses
type UserDTO struct {
	ID        uint64        `json:"id"`
	Username  string        `json:"username"`
	FirstName string        `json:"first_name"`
	LastName  string        `json:"last_name"`
	Email     string        `json:"email,omitempty"`
	Tariff    models.Tariff `json:"tariff"`
	IsStaff   bool          `json:"is_staff"`
}

// UserSummaryDTO is the public part of a user
type UserSummaryDTO struct {
	ID        uint64 `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type TokenPairResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type AccessTokenResponse struct {
	Access string `json:"access"`
}

// UnitDTO represents a unit in API responses
type UnitDTO struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatorID   uint64    `json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// LinkDTO is an invite link as its unit's creator sees it
type LinkDTO struct {
	ID        uint64    `json:"id"`
	Code      string    `json:"code"`
	UnitID    uint64    `json:"unit_id"`
	IsOpen    bool      `json:"is_open"`
	CreatedAt time.Time `json:"created_at"`
}

// ResolvedLinkDTO is what anyone holding a code may learn about it
type ResolvedLinkDTO struct {
	Unit   UnitDTO `json:"unit"`
	IsOpen bool    `json:"is_open"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID          uint64          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Score       uint            `json:"score"`
	DateStart   time.Time       `json:"date_start"`
	DateEnd     time.Time       `json:"date_end"`
	IsOpen      bool            `json:"is_open"`
	IsArchived  bool            `json:"is_archived"`
	Photo       *string         `json:"photo"`
	CreatorID   uint64          `json:"creator_id"`
	Creator     *UserSummaryDTO `json:"creator,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type TaskListResponse struct {
	Tasks      []TaskDTO                `json:"tasks"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

type TaskDraftDTO struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Score       uint       `json:"score"`
	DateStart   *time.Time `json:"date_start"`
	DateEnd     *time.Time `json:"date_end"`
}

type RatingDTO struct {
	ID          uint64    `json:"id"`
	TaskID      uint64    `json:"task_id"`
	VolunteerID uint64    `json:"volunteer_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type CommentDTO struct {
	ID          uint64          `json:"id"`
	TaskID      uint64          `json:"task_id"`
	VolunteerID uint64          `json:"volunteer_id"`
	Author      *UserSummaryDTO `json:"author,omitempty"`
	Text        string          `json:"text"`
	Photo       *string         `json:"photo"`
	CreatedAt   time.Time       `json:"created_at"`
}

// VolunteerDTO is a volunteer with its unit and derived score
type VolunteerDTO struct {
	ID     uint64         `json:"id"`
	User   UserSummaryDTO `json:"user"`
	Unit   *UnitDTO       `json:"unit,omitempty"`
	Avatar *string        `json:"avatar"`
	Score  int64          `json:"score"`
}

type VolunteerListResponse struct {
	Volunteers []VolunteerDTO           `json:"volunteers"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// Conversion functions

func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Tariff:    user.Tariff,
		IsStaff:   user.IsStaff,
	}
}

func ToUserSummaryDTO(user models.User) UserSummaryDTO {
	return UserSummaryDTO{
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}
}

func ToUnitDTO(unit models.Unit) UnitDTO {
	return UnitDTO{
		ID:          unit.ID,
		Title:       unit.Title,
		Description: unit.Description,
		CreatorID:   unit.CreatorID,
		CreatedAt:   unit.CreatedAt,
	}
}

func ToUnitDTOs(units []models.Unit) []UnitDTO {
	items := make([]UnitDTO, len(units))
	for i, unit := range units {
		items[i] = ToUnitDTO(unit)
	}
	return items
}

func ToLinkDTO(link models.InviteLink) LinkDTO {
	return LinkDTO{
		ID:        link.ID,
		Code:      link.Code,
		UnitID:    link.UnitID,
		IsOpen:    link.IsOpen(),
		CreatedAt: link.CreatedAt,
	}
}

func ToLinkDTOs(links []models.InviteLink) []LinkDTO {
	items := make([]LinkDTO, len(links))
	for i, link := range links {
		items[i] = ToLinkDTO(link)
	}
	return items
}

func ToResolvedLinkDTO(link models.InviteLink) ResolvedLinkDTO {
	return ResolvedLinkDTO{
		Unit:   ToUnitDTO(link.Unit),
		IsOpen: link.IsOpen(),
	}
}

// ToTaskDTO converts a Task model; photoKey is the task's preview, if any
func ToTaskDTO(task models.Task, photoKey string, url URLFunc, now time.Time) TaskDTO {
	dto := TaskDTO{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Score:       task.Score,
		DateStart:   task.DateStart,
		DateEnd:     task.DateEnd,
		IsOpen:      task.IsOpen,
		IsArchived:  task.IsArchived(now),
		Photo:       optionalURL(photoKey, url),
		CreatorID:   task.CreatorID,
		CreatedAt:   task.CreatedAt,
	}

	// Include creator if preloaded
	if task.Creator.ID != 0 {
		creator := ToUserSummaryDTO(task.Creator)
		dto.Creator = &creator
	}

	return dto
}

func ToTaskListResponse(tasks []models.Task, photos map[uint64]string, url URLFunc, now time.Time, pagination utils.PaginationResponse) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task, photos[task.ID], url, now)
	}
	return TaskListResponse{Tasks: items, Pagination: pagination}
}

func ToTaskDraftDTOs(drafts []services.TaskDraft) []TaskDraftDTO {
	items := make([]TaskDraftDTO, len(drafts))
	for i, d := range drafts {
		items[i] = TaskDraftDTO{
			Title:       d.Title,
			Description: d.Description,
			Score:       d.Score,
			DateStart:   d.DateStart,
			DateEnd:     d.DateEnd,
		}
	}
	return items
}

func ToRatingDTO(rating models.Rating) RatingDTO {
	return RatingDTO{
		ID:          rating.ID,
		TaskID:      rating.TaskID,
		VolunteerID: rating.VolunteerID,
		CreatedAt:   rating.CreatedAt,
	}
}

func ToCommentDTO(comment models.Comment, url URLFunc) CommentDTO {
	dto := CommentDTO{
		ID:          comment.ID,
		TaskID:      comment.TaskID,
		VolunteerID: comment.VolunteerID,
		Text:        comment.Text,
		Photo:       optionalURL(comment.Photo, url),
		CreatedAt:   comment.CreatedAt,
	}
	if comment.Volunteer.User.ID != 0 {
		author := ToUserSummaryDTO(comment.Volunteer.User)
		dto.Author = &author
	}
	return dto
}

func ToCommentDTOs(comments []models.Comment, url URLFunc) []CommentDTO {
	items := make([]CommentDTO, len(comments))
	for i, c := range comments {
		items[i] = ToCommentDTO(c, url)
	}
	return items
}

func ToVolunteerDTO(v models.VolunteerScore, url URLFunc) VolunteerDTO {
	dto := VolunteerDTO{
		ID:     v.Volunteer.ID,
		User:   ToUserSummaryDTO(v.Volunteer.User),
		Avatar: optionalURL(v.Volunteer.Avatar, url),
		Score:  v.Score,
	}
	if v.Volunteer.Link.Unit.ID != 0 {
		unit := ToUnitDTO(v.Volunteer.Link.Unit)
		dto.Unit = &unit
	}
	return dto
}

func ToVolunteerListResponse(ranked []models.VolunteerScore, url URLFunc, pagination utils.PaginationResponse) VolunteerListResponse {
	items := make([]VolunteerDTO, len(ranked))
	for i, v := range ranked {
		items[i] = ToVolunteerDTO(v, url)
	}
	return VolunteerListResponse{Volunteers: items, Pagination: pagination}
}

func optionalURL(key string, url URLFunc) *string {
	if key == "" || url == nil {
		return nil
	}
	u := url(key)
	return &u
}
