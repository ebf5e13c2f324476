package repository

import (
	"cohort_course_backend/internal/model"
	"context"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) Create(ctx context.Context, course *model.Course) error {
	return r.DB.WithContext(ctx).Create(course).Error
}

func (r *CourseRepository) FindByID(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	if err := r.DB.WithContext(ctx).First(&course, id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) CreateModule(ctx context.Context, module *model.Module) error {
	return r.DB.WithContext(ctx).Create(module).Error
}

func (r *CourseRepository) FindModule(ctx context.Context, id uint) (*model.Module, error) {
	var module model.Module
	if err := r.DB.WithContext(ctx).First(&module, id).Error; err != nil {
		return nil, err
	}
	return &module, nil
}

// ListModules returns the course modules with their lessons, in display order.
func (r *CourseRepository) ListModules(ctx context.Context, courseID uint) ([]model.Module, error) {
	var modules []model.Module
	err := r.DB.WithContext(ctx).
		Where("course_id = ?", courseID).
		Preload("Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC, id ASC")
		}).
		Order("order_index ASC, id ASC").
		Find(&modules).Error
	return modules, err
}

func (r *CourseRepository) CreateLesson(ctx context.Context, lesson *model.Lesson) error {
	return r.DB.WithContext(ctx).Create(lesson).Error
}

// FindLessonCourse resolves the course that owns a lesson.
func (r *CourseRepository) FindLessonCourse(ctx context.Context, lessonID uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).
		Joins("JOIN modules ON modules.course_id = courses.id AND modules.deleted_at IS NULL").
		Joins("JOIN lessons ON lessons.module_id = modules.id AND lessons.deleted_at IS NULL").
		Where("lessons.id = ?", lessonID).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}
