// Package advisor implements the Pre-Validator / Resource Advisor
// (spec.md 4.2): a pre-computation feasibility gate that runs before any
// scheduling decision and reports actionable, entity-named suggestions.
package advisor

import (
	"fmt"
	"strings"

	"github.com/schoolforge/timetable-engine/internal/domain"
)

// Advisor performs the five feasibility checks from spec.md 4.2. It holds
// no state across calls - one value is constructed per request.
type Advisor struct{}

// New constructs an Advisor.
func New() *Advisor {
	return &Advisor{}
}

// Advise runs every check against the given entities and returns a
// FeasibilityReport. It never mutates its input.
func (a *Advisor) Advise(
	classes []domain.Class,
	subjects []domain.Subject,
	teachers []domain.Teacher,
	rooms []domain.Room,
	slots []domain.TimeSlot,
	gradeReqs []domain.GradeSubjectRequirement,
) domain.FeasibilityReport {
	overrides := domain.BuildGradeOverrides(gradeReqs)
	active := domain.ActiveSlots(slots)

	report := domain.FeasibilityReport{
		IsFeasible:          true,
		BottleneckResources: map[string]float64{},
	}

	a.checkTeacherCapacityPerSubject(classes, subjects, teachers, overrides, &report)
	a.checkLabRoomCapacity(classes, subjects, rooms, active, overrides, &report)
	a.checkSlotSupplyPerClass(classes, subjects, active, overrides, &report)
	a.checkHomeRoomAvailability(classes, rooms, &report)
	a.checkConsecutiveLimitSanity(subjects, len(domain.Days), &report)

	if len(report.CriticalIssues) > 0 {
		report.IsFeasible = false
	}
	return report
}

// 1. Teacher capacity per subject.
func (a *Advisor) checkTeacherCapacityPerSubject(
	classes []domain.Class,
	subjects []domain.Subject,
	teachers []domain.Teacher,
	overrides domain.GradeOverrides,
	report *domain.FeasibilityReport,
) {
	for _, subject := range subjects {
		demand := 0
		for _, c := range classes {
			demand += overrides.PeriodsRequired(c, subject)
		}
		if demand == 0 {
			continue
		}

		capacity := 0
		for _, t := range teachers {
			if t.Qualifies(subject.Name, subject.Code) {
				capacity += t.MaxPeriodsPerWeek
			}
		}

		resourceKey := fmt.Sprintf("teacher_capacity:%s", subject.Name)
		if capacity == 0 {
			report.CriticalIssues = append(report.CriticalIssues, domain.Issue{
				Severity: domain.SeverityCritical,
				Message:  fmt.Sprintf("no teacher is qualified to teach %s", subject.Name),
			})
			report.Suggestions = append(report.Suggestions,
				fmt.Sprintf("Add at least one teacher qualified for %s (demand: %d periods/week).", subject.Name, demand))
			report.BottleneckResources[resourceKey] = 100
			continue
		}

		utilization := 100 * float64(demand) / float64(capacity)
		report.BottleneckResources[resourceKey] = utilization

		if demand > capacity {
			deficit := demand - capacity
			report.CriticalIssues = append(report.CriticalIssues, domain.Issue{
				Severity: domain.SeverityCritical,
				Message:  fmt.Sprintf("%s demand (%d periods/week) exceeds qualified teacher capacity (%d periods/week)", subject.Name, demand, capacity),
			})
			report.Suggestions = append(report.Suggestions,
				fmt.Sprintf("Add qualified %s teachers to cover a deficit of %d periods/week.", subject.Name, deficit))
		} else if utilization > 90 {
			report.Warnings = append(report.Warnings, domain.Issue{
				Severity: domain.SeverityWarning,
				Message:  fmt.Sprintf("%s teacher capacity is at %.0f%% utilization", subject.Name, utilization),
			})
		}
	}
}

// 2. Room capacity for lab subjects.
func (a *Advisor) checkLabRoomCapacity(
	classes []domain.Class,
	subjects []domain.Subject,
	rooms []domain.Room,
	activeSlots []domain.TimeSlot,
	overrides domain.GradeOverrides,
	report *domain.FeasibilityReport,
) {
	labDemand := 0
	labSubjects := []string{}
	for _, s := range subjects {
		if !s.RequiresLab {
			continue
		}
		for _, c := range classes {
			labDemand += overrides.PeriodsRequired(c, s)
		}
		labSubjects = append(labSubjects, s.Name)
	}
	if labDemand == 0 {
		return
	}

	labRooms := 0
	for _, r := range rooms {
		if r.Type == domain.RoomLab {
			labRooms++
		}
	}

	capacity := labRooms * len(activeSlots)
	report.BottleneckResources["lab_room_capacity"] = safeUtilization(labDemand, capacity)

	if labDemand > capacity {
		report.CriticalIssues = append(report.CriticalIssues, domain.Issue{
			Severity: domain.SeverityCritical,
			Message:  fmt.Sprintf("lab-required demand (%d periods/week) exceeds total lab capacity (%d period-slots)", labDemand, capacity),
		})
		report.Suggestions = append(report.Suggestions,
			fmt.Sprintf("Add lab rooms or reduce lab periods for %s; current capacity covers only %d of %d required periods.",
				strings.Join(labSubjects, ", "), capacity, labDemand))
	}
}

// 3. Slot supply per class.
func (a *Advisor) checkSlotSupplyPerClass(
	classes []domain.Class,
	subjects []domain.Subject,
	activeSlots []domain.TimeSlot,
	overrides domain.GradeOverrides,
	report *domain.FeasibilityReport,
) {
	available := len(activeSlots)
	for _, c := range classes {
		required := domain.RequiredPeriodsForClass(c, subjects, overrides)
		report.BottleneckResources[fmt.Sprintf("slot_supply:%s", c.Name)] = safeUtilization(required, available)
		if required > available {
			report.CriticalIssues = append(report.CriticalIssues, domain.Issue{
				Severity: domain.SeverityCritical,
				Message:  fmt.Sprintf("class %s requires %d periods/week but only %d active slots exist", c.Name, required, available),
			})
			report.Suggestions = append(report.Suggestions,
				fmt.Sprintf("Reduce subject periods for %s by %d/week, or add active time slots.", c.Name, required-available))
		}
	}
}

// 4. Home-room availability (v3.0).
func (a *Advisor) checkHomeRoomAvailability(classes []domain.Class, rooms []domain.Room, report *domain.FeasibilityReport) {
	if !domain.HomeRoomMode(classes) {
		return
	}
	roomsByID := make(map[domain.RoomID]domain.Room, len(rooms))
	for _, r := range rooms {
		roomsByID[r.ID] = r
	}
	for _, c := range classes {
		if c.HomeRoomID == nil {
			report.CriticalIssues = append(report.CriticalIssues, domain.Issue{
				Severity: domain.SeverityCritical,
				Message:  fmt.Sprintf("class %s has no home room assigned", c.Name),
			})
			report.Suggestions = append(report.Suggestions, fmt.Sprintf("Assign a CLASSROOM-type home room to %s.", c.Name))
			continue
		}
		room, ok := roomsByID[*c.HomeRoomID]
		if !ok {
			report.CriticalIssues = append(report.CriticalIssues, domain.Issue{
				Severity: domain.SeverityCritical,
				Message:  fmt.Sprintf("class %s references home room %s which does not exist", c.Name, *c.HomeRoomID),
			})
			continue
		}
		if room.Type != domain.RoomClassroom {
			report.CriticalIssues = append(report.CriticalIssues, domain.Issue{
				Severity: domain.SeverityCritical,
				Message:  fmt.Sprintf("class %s's home room %s is not a CLASSROOM (type %s)", c.Name, room.Name, room.Type),
			})
		}
	}
}

// 5. Consecutive-limit sanity.
func (a *Advisor) checkConsecutiveLimitSanity(subjects []domain.Subject, numDays int, report *domain.FeasibilityReport) {
	for _, s := range subjects {
		if s.PeriodsPerWeek <= 5 || !s.PreferMorning {
			continue
		}
		// morning_period_cutoff is a request-level weight, not known to
		// the advisor directly; this check always compares against the
		// default cutoff of 4. The request's MorningPeriodCutoff weight
		// is not consulted, and the check is not re-run elsewhere.
		const defaultMorningCutoff = 4
		if defaultMorningCutoff*numDays < s.PeriodsPerWeek {
			report.Warnings = append(report.Warnings, domain.Issue{
				Severity: domain.SeverityWarning,
				Message: fmt.Sprintf(
					"%s requires %d periods/week with a morning preference, but only %d morning periods/day x %d days are available",
					s.Name, s.PeriodsPerWeek, defaultMorningCutoff, numDays),
			})
		}
	}
}

func safeUtilization(demand, capacity int) float64 {
	if capacity == 0 {
		if demand == 0 {
			return 0
		}
		return 100
	}
	return 100 * float64(demand) / float64(capacity)
}
