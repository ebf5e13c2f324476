package model

// swagger:model Course
type Course struct {
	BaseModel
	Title       string   `gorm:"size:255;not null" json:"title"`
	Description string   `gorm:"type:text" json:"description"`
	IsPublished bool     `gorm:"default:false" json:"isPublished"`
	CreatedBy   string   `gorm:"index;size:36;not null" json:"createdBy"`
	Modules     []Module `gorm:"foreignKey:CourseID" json:"modules,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// Module is a top-level content grouping inside a course. Its visibility per
// cohort is controlled by CohortSchedule.
type Module struct {
	BaseModel
	CourseID    uint     `gorm:"index;not null" json:"courseId"`
	Title       string   `gorm:"size:255;not null" json:"title"`
	Description string   `gorm:"type:text" json:"description"`
	OrderIndex  int      `gorm:"default:0" json:"orderIndex"`
	Lessons     []Lesson `gorm:"foreignKey:ModuleID" json:"lessons,omitempty"`
}

func (Module) TableName() string {
	return "modules"
}

type Lesson struct {
	BaseModel
	ModuleID        uint   `gorm:"index;not null" json:"moduleId"`
	Title           string `gorm:"size:255;not null" json:"title"`
	Content         string `gorm:"type:text" json:"content"`
	VideoURL        string `gorm:"size:512" json:"videoUrl,omitempty"`
	DurationMinutes int    `gorm:"default:0" json:"durationMinutes"`
	OrderIndex      int    `gorm:"default:0" json:"orderIndex"`
}

func (Lesson) TableName() string {
	return "lessons"
}
