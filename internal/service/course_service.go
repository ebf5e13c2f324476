package service

import (
	"cohort_course_backend/internal/model"
	"cohort_course_backend/internal/repository"
	"cohort_course_backend/internal/util"
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

type CourseService struct {
	repo *repository.CourseRepository
}

func NewCourseService(repo *repository.CourseRepository) *CourseService {
	return &CourseService{repo: repo}
}

type CourseRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	IsPublished bool   `json:"isPublished"`
}

type ModuleRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	OrderIndex  int    `json:"orderIndex"`
}

type LessonRequest struct {
	Title           string `json:"title" binding:"required"`
	Content         string `json:"content"`
	VideoURL        string `json:"videoUrl"`
	DurationMinutes int    `json:"durationMinutes" binding:"gte=0"`
	OrderIndex      int    `json:"orderIndex"`
}

func (s *CourseService) CreateCourse(ctx context.Context, actor Actor, req CourseRequest) (*model.Course, error) {
	if actor.Role != model.Teacher && !actor.IsAdmin() {
		return nil, util.ErrPermissionDenied
	}
	course := &model.Course{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		IsPublished: req.IsPublished,
		CreatedBy:   actor.UserID,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) GetCourse(ctx context.Context, id uint) (*model.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	return course, err
}

func (s *CourseService) AddModule(ctx context.Context, actor Actor, courseID uint, req ModuleRequest) (*model.Module, error) {
	course, err := s.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(course) {
		return nil, util.ErrPermissionDenied
	}

	module := &model.Module{
		CourseID:    course.ID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		OrderIndex:  req.OrderIndex,
	}
	if err := s.repo.CreateModule(ctx, module); err != nil {
		return nil, err
	}
	return module, nil
}

func (s *CourseService) ListModules(ctx context.Context, courseID uint) ([]model.Module, error) {
	if _, err := s.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	return s.repo.ListModules(ctx, courseID)
}

func (s *CourseService) GetModule(ctx context.Context, id uint) (*model.Module, error) {
	module, err := s.repo.FindModule(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrModuleNotFound
	}
	return module, err
}

func (s *CourseService) AddLesson(ctx context.Context, actor Actor, moduleID uint, req LessonRequest) (*model.Lesson, error) {
	module, err := s.GetModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	course, err := s.GetCourse(ctx, module.CourseID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(course) {
		return nil, util.ErrPermissionDenied
	}

	lesson := &model.Lesson{
		ModuleID:        module.ID,
		Title:           strings.TrimSpace(req.Title),
		Content:         req.Content,
		VideoURL:        req.VideoURL,
		DurationMinutes: req.DurationMinutes,
		OrderIndex:      req.OrderIndex,
	}
	if err := s.repo.CreateLesson(ctx, lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

// LessonCourse returns the course that owns lessonID.
func (s *CourseService) LessonCourse(ctx context.Context, lessonID uint) (*model.Course, error) {
	course, err := s.repo.FindLessonCourse(ctx, lessonID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrLessonNotFound
	}
	return course, err
}
