// 手动导出某个班期今天的模块解锁情况（YAML），用于排查学员反馈的"看不到模块"问题。
//
// 用法: go run scripts/schedule_report.go -cohort <cohort-id> [-date 2025-01-20]

package main

import (
	"cohort_course_backend/internal/config"
	"cohort_course_backend/internal/gating"
	"cohort_course_backend/internal/repository"
	"cohort_course_backend/pkg/database"
	"cohort_course_backend/pkg/logger"
	"context"
	"flag"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type moduleLine struct {
	ModuleID   uint    `yaml:"module_id"`
	Title      string  `yaml:"title"`
	Unlocked   bool    `yaml:"unlocked"`
	Reason     string  `yaml:"reason"`
	UnlockDate *string `yaml:"unlock_date,omitempty"`
	LockDate   *string `yaml:"lock_date,omitempty"`
}

type report struct {
	CohortID string       `yaml:"cohort_id"`
	Cohort   string       `yaml:"cohort"`
	Date     string       `yaml:"date"`
	Modules  []moduleLine `yaml:"modules"`
}

func dateString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(gating.DateLayout)
	return &s
}

func main() {
	cohortID := flag.String("cohort", "", "班期ID")
	date := flag.String("date", "", "按指定日期计算 (YYYY-MM-DD)，默认今天")
	flag.Parse()

	if *cohortID == "" {
		log.Fatal("缺少 -cohort 参数")
	}

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}
	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	opts := []gating.Option{
		gating.WithInvalidScheduleHandler(func(s gating.Schedule, err error) {
			log.Printf("模块 %d 的排期数据无法解析，按未解锁处理: %v", s.ModuleID, err)
		}),
	}
	if *date != "" {
		day, err := gating.ParseDate(*date)
		if err != nil {
			log.Fatalf("日期格式错误: %v", err)
		}
		opts = append(opts, gating.WithClock(func() time.Time { return day }))
	}
	gate := gating.New(repository.NewGatingSource(db), opts...)

	ctx := context.Background()
	cohort, err := repository.NewCohortRepository(db).FindByID(ctx, *cohortID)
	if err != nil {
		log.Fatalf("班期不存在: %v", err)
	}
	modules, err := repository.NewCourseRepository(db).ListModules(ctx, cohort.CourseID)
	if err != nil {
		log.Fatalf("读取模块失败: %v", err)
	}
	statuses, err := gate.GetCohortModuleStatuses(ctx, cohort.ID, false)
	if err != nil {
		log.Fatalf("计算解锁状态失败: %v", err)
	}

	out := report{
		CohortID: cohort.ID,
		Cohort:   cohort.Name,
		Date:     gate.Today().Format(gating.DateLayout),
	}
	for _, m := range modules {
		st, ok := statuses[m.ID]
		if !ok {
			st = gating.ModuleStatus{IsUnlocked: true, Reason: gating.ReasonNotScheduled}
		}
		out.Modules = append(out.Modules, moduleLine{
			ModuleID:   m.ID,
			Title:      m.Title,
			Unlocked:   st.IsUnlocked,
			Reason:     string(st.Reason),
			UnlockDate: dateString(st.UnlockDate),
			LockDate:   dateString(st.LockDate),
		})
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		log.Fatalf("输出失败: %v", err)
	}
}
