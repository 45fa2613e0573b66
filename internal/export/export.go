// Package export renders a daily plan and the expected scores as an XLSX
// workbook.
package export

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-planner/internal/planner"
	"github.com/p-n-ai/pai-planner/internal/scoring"
)

// Sheet names.
const (
	PlanSheet   = "Plan"
	ScoresSheet = "Expected Scores"
)

// ContentType is the MIME type of the workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	planHeader  = []any{"Rank", "Course", "Topic", "Weight", "Skill", "Priority", "Urgency", "Hours"}
	scoreHeader = []any{"Course", "Estimated", "Low", "High", "Coverage", "Dependency Penalty", "Days Until Exam", "High-Risk Topics"}
)

// Workbook builds the workbook. The caller must Close it.
func Workbook(plan *planner.Plan, scores map[int64]scoring.CourseScore, generated time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", PlanSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(ScoresSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("adding sheet: %w", err)
	}
	if err := writePlan(f, plan, generated); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeScores(f, scores); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// Write builds the workbook and streams it to w.
func Write(w io.Writer, plan *planner.Plan, scores map[int64]scoring.CourseScore, generated time.Time) error {
	f, err := Workbook(plan, scores, generated)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writePlan(f *excelize.File, plan *planner.Plan, generated time.Time) error {
	rows := [][]any{
		{"Generated", generated.UTC().Format(time.RFC3339)},
		{"Strategy", string(plan.Strategy)},
		{"Daily hours", plan.DailyHours},
		{"Allocated hours", plan.TotalAllocated},
		{},
		planHeader,
	}
	for i, a := range plan.AllocatedTopics {
		rows = append(rows, []any{
			i + 1, a.Course.Name, a.Topic.Name, a.Topic.Weight, a.Topic.SkillLevel,
			a.PriorityScore, a.UrgencyFactor, a.AllocatedHours,
		})
	}
	if err := setRows(f, PlanSheet, rows); err != nil {
		return err
	}
	return boldRow(f, PlanSheet, 6, len(planHeader))
}

func writeScores(f *excelize.File, scores map[int64]scoring.CourseScore) error {
	ids := make([]int64, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rows := [][]any{scoreHeader}
	for _, id := range ids {
		s := scores[id]
		rows = append(rows, []any{
			s.CourseName, s.EstimatedScore, s.ScoreRange[0], s.ScoreRange[1],
			s.TotalWeightCoverage, s.DependencyPenalty, s.DaysUntilExam, len(s.HighRiskTopics),
		})
	}
	rows = append(rows, []any{}, []any{"Overall", scoring.Aggregate(scores)})
	if err := setRows(f, ScoresSheet, rows); err != nil {
		return err
	}
	return boldRow(f, ScoresSheet, 1, len(scoreHeader))
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func boldRow(f *excelize.File, sheet string, row, cols int) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(cols, row)
	return f.SetCellStyle(sheet, first, last, style)
}
