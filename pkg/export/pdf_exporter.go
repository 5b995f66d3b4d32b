// Package export renders a finished domain.Timetable as a printable
// weekly grid PDF, one page per class (SPEC_FULL.md 4.14).
package export

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/schoolforge/timetable-engine/internal/domain"
)

// PDFExporter renders a Timetable into a per-class weekly grid PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// lookups resolves the opaque IDs on a TimetableEntry to the display
// names a human reader of the exported PDF needs.
type lookups struct {
	classByID   map[domain.ClassID]domain.Class
	subjectByID map[domain.SubjectID]domain.Subject
	teacherByID map[domain.TeacherID]domain.Teacher
	roomByID    map[domain.RoomID]domain.Room
	maxPeriod   int
}

func buildLookups(classes []domain.Class, subjects []domain.Subject, teachers []domain.Teacher, rooms []domain.Room, slots []domain.TimeSlot) lookups {
	l := lookups{
		classByID:   make(map[domain.ClassID]domain.Class, len(classes)),
		subjectByID: make(map[domain.SubjectID]domain.Subject, len(subjects)),
		teacherByID: make(map[domain.TeacherID]domain.Teacher, len(teachers)),
		roomByID:    make(map[domain.RoomID]domain.Room, len(rooms)),
	}
	for _, c := range classes {
		l.classByID[c.ID] = c
	}
	for _, s := range subjects {
		l.subjectByID[s.ID] = s
	}
	for _, t := range teachers {
		l.teacherByID[t.ID] = t
	}
	for _, r := range rooms {
		l.roomByID[r.ID] = r
	}
	for _, s := range slots {
		if s.Active() && s.PeriodNumber > l.maxPeriod {
			l.maxPeriod = s.PeriodNumber
		}
	}
	return l
}

func (l lookups) teacherLabel(id domain.TeacherID) string {
	if t, ok := l.teacherByID[id]; ok && t.UserID != "" {
		return t.UserID
	}
	return string(id)
}

func (l lookups) subjectLabel(id domain.SubjectID) string {
	if s, ok := l.subjectByID[id]; ok {
		return s.Name
	}
	return string(id)
}

func (l lookups) roomLabel(id domain.RoomID) string {
	if r, ok := l.roomByID[id]; ok && r.Name != "" {
		return r.Name
	}
	return string(id)
}

func (l lookups) classLabel(id domain.ClassID) string {
	if c, ok := l.classByID[id]; ok && c.Name != "" {
		return c.Name
	}
	return string(id)
}

// RenderTimetable renders one page per class: rows are periods, columns
// are the weekdays, and each occupied cell prints subject/teacher/room.
func (e *PDFExporter) RenderTimetable(t domain.Timetable, classes []domain.Class, subjects []domain.Subject, teachers []domain.Teacher, rooms []domain.Room, slots []domain.TimeSlot) ([]byte, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("pdf export requires at least one class")
	}
	l := buildLookups(classes, subjects, teachers, rooms, slots)
	if l.maxPeriod == 0 {
		l.maxPeriod = 8
	}

	byClass := make(map[domain.ClassID]map[domain.Day]map[int]domain.TimetableEntry)
	for _, en := range t.Entries {
		if byClass[en.ClassID] == nil {
			byClass[en.ClassID] = make(map[domain.Day]map[int]domain.TimetableEntry)
		}
		if byClass[en.ClassID][en.Day] == nil {
			byClass[en.ClassID][en.Day] = make(map[int]domain.TimetableEntry)
		}
		byClass[en.ClassID][en.Day][en.Period] = en
	}

	sortedClasses := make([]domain.Class, len(classes))
	copy(sortedClasses, classes)
	sort.Slice(sortedClasses, func(i, j int) bool { return sortedClasses[i].ID < sortedClasses[j].ID })

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)

	days := domain.Days[:5]
	colWidth := 267.0 / float64(len(days)+1)

	for _, c := range sortedClasses {
		pdf.AddPage()
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(l.classLabel(c.ID))+" — WEEKLY TIMETABLE", "", 1, "C", false, 0, "")
		pdf.Ln(3)

		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(colWidth, 8, "Period", "1", 0, "C", false, 0, "")
		for _, d := range days {
			pdf.CellFormat(colWidth, 8, string(d), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 8)
		entries := byClass[c.ID]
		for period := 1; period <= l.maxPeriod; period++ {
			pdf.CellFormat(colWidth, 14, fmt.Sprintf("%d", period), "1", 0, "C", false, 0, "")
			for _, d := range days {
				cell := ""
				if dayEntries, ok := entries[d]; ok {
					if en, ok := dayEntries[period]; ok {
						cell = fmt.Sprintf("%s\n%s\n%s", l.subjectLabel(en.SubjectID), l.teacherLabel(en.TeacherID), l.roomLabel(en.RoomID))
					}
				}
				pdf.MultiCell(colWidth, 4.6, cell, "1", "C", false)
				pdf.SetXY(pdf.GetX()+colWidth, pdf.GetY()-14)
			}
			pdf.Ln(14)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
