package export_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-planner/internal/export"
	"github.com/p-n-ai/pai-planner/internal/planner"
	"github.com/p-n-ai/pai-planner/internal/scoring"
	"github.com/p-n-ai/pai-planner/internal/study"
)

func TestWrite(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	snap := study.NewSnapshot(now,
		[]study.Course{{ID: 1, Name: "Algorithms", ExamDate: now.AddDate(0, 0, 3).Add(time.Hour)}},
		[]study.Topic{
			{ID: 1, CourseID: 1, Name: "Graphs", Weight: 0.6, SkillLevel: 20},
			{ID: 2, CourseID: 1, Name: "Sorting", Weight: 0.4, SkillLevel: 90},
		},
		nil, nil)
	plan, err := planner.New(planner.DefaultConfig()).Plan(snap, planner.Request{Hours: 2, Adaptive: true})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	scores := scoring.New(scoring.DefaultConfig()).ExpectedScores(snap)

	var buf bytes.Buffer
	if err := export.Write(&buf, plan, scores, now); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 2 || got[0] != export.PlanSheet || got[1] != export.ScoresSheet {
		t.Fatalf("sheets = %v", got)
	}

	rows, err := f.GetRows(export.PlanSheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 6+len(plan.AllocatedTopics) {
		t.Fatalf("plan rows = %d, want %d", len(rows), 6+len(plan.AllocatedTopics))
	}
	if rows[5][0] != "Rank" || rows[6][2] != "Graphs" {
		t.Errorf("plan table = %v", rows[5:])
	}

	course, err := f.GetCellValue(export.ScoresSheet, "A2")
	if err != nil {
		t.Fatalf("GetCellValue() error = %v", err)
	}
	if course != "Algorithms" {
		t.Errorf("scores A2 = %q, want Algorithms", course)
	}
}

func TestWrite_EmptyPlan(t *testing.T) {
	plan := &planner.Plan{DailyHours: 1, AllocatedTopics: []planner.Allocation{}, Strategy: planner.Balanced}

	var buf bytes.Buffer
	if err := export.Write(&buf, plan, map[int64]scoring.CourseScore{}, time.Now()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if buf.Len() == 0 {
		t.Error("Write() produced no bytes")
	}
}
