package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/schoolforge/timetable-engine/internal/domain"
)

// TimetableRepository versions a produced Timetable and its entries:
// mirroring the invariant that Timetable/TimetableEntry are born in the
// solver and sealed by post-validation, this repository only stores and
// reads them back - it never mutates a solution's structure.
type TimetableRepository struct {
	db        *sqlx.DB
	classes   *ClassRepository
	subjects  *SubjectRepository
	teachers  *TeacherRepository
	rooms     *RoomRepository
	timeSlots *TimeSlotRepository
}

// NewTimetableRepository constructs a timetable repository. The
// reference repositories are reused to resolve a stored timetable's
// entries back to human-readable entities for export.
func NewTimetableRepository(db *sqlx.DB, classes *ClassRepository, subjects *SubjectRepository, teachers *TeacherRepository, rooms *RoomRepository, timeSlots *TimeSlotRepository) *TimetableRepository {
	return &TimetableRepository{
		db:        db,
		classes:   classes,
		subjects:  subjects,
		teachers:  teachers,
		rooms:     rooms,
		timeSlots: timeSlots,
	}
}

type timetableRow struct {
	ID             string         `db:"id"`
	SchoolID       string         `db:"school_id"`
	AcademicYearID string         `db:"academic_year_id"`
	Status         string         `db:"status"`
	Metadata       types.JSONText `db:"metadata"`
}

type timetableEntryRow struct {
	ID          string         `db:"id"`
	TimetableID string         `db:"timetable_id"`
	ClassID     string         `db:"class_id"`
	SubjectID   string         `db:"subject_id"`
	TeacherID   string         `db:"teacher_id"`
	RoomID      string         `db:"room_id"`
	TimeSlotID  string         `db:"time_slot_id"`
	Day         string         `db:"day"`
	Period      int            `db:"period"`
	IsFixed     bool           `db:"is_fixed"`
	SubjectMeta types.JSONText `db:"subject_meta"`
	TeacherMeta types.JSONText `db:"teacher_meta"`
}

func (e timetableEntryRow) toDomain() (domain.TimetableEntry, error) {
	entry := domain.TimetableEntry{
		ID:          domain.TimetableEntryID(e.ID),
		TimetableID: domain.TimetableID(e.TimetableID),
		ClassID:     domain.ClassID(e.ClassID),
		SubjectID:   domain.SubjectID(e.SubjectID),
		TeacherID:   domain.TeacherID(e.TeacherID),
		RoomID:      domain.RoomID(e.RoomID),
		TimeSlotID:  domain.TimeSlotID(e.TimeSlotID),
		Day:         domain.Day(e.Day),
		Period:      e.Period,
		IsFixed:     e.IsFixed,
	}
	if len(e.SubjectMeta) > 0 && string(e.SubjectMeta) != "null" {
		if err := json.Unmarshal(e.SubjectMeta, &entry.SubjectMeta); err != nil {
			return domain.TimetableEntry{}, fmt.Errorf("unmarshal entry %s subject meta: %w", e.ID, err)
		}
	}
	if len(e.TeacherMeta) > 0 && string(e.TeacherMeta) != "null" {
		if err := json.Unmarshal(e.TeacherMeta, &entry.TeacherMeta); err != nil {
			return domain.TimetableEntry{}, fmt.Errorf("unmarshal entry %s teacher meta: %w", e.ID, err)
		}
	}
	return entry, nil
}

// Save persists a freshly produced Timetable and all of its entries in
// one transaction, under the given status (typically DRAFT).
func (r *TimetableRepository) Save(ctx context.Context, t *domain.Timetable, status domain.TimetableStatus) error {
	if t.ID == "" {
		t.ID = domain.TimetableID(uuid.NewString())
	}
	t.Status = status

	metadata, err := json.Marshal(t.Metadata)
	if err != nil {
		return fmt.Errorf("marshal timetable metadata: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save timetable: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `INSERT INTO timetables (id, school_id, academic_year_id, status, metadata)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, metadata = EXCLUDED.metadata`,
		string(t.ID), string(t.SchoolID), string(t.AcademicYearID), string(t.Status), types.JSONText(metadata))
	if err != nil {
		return fmt.Errorf("upsert timetable %s: %w", t.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM timetable_entries WHERE timetable_id = $1`, string(t.ID)); err != nil {
		return fmt.Errorf("clear entries for timetable %s: %w", t.ID, err)
	}

	for i := range t.Entries {
		entry := &t.Entries[i]
		if entry.ID == "" {
			entry.ID = domain.TimetableEntryID(uuid.NewString())
		}
		entry.TimetableID = t.ID

		subjectMeta, err := json.Marshal(entry.SubjectMeta)
		if err != nil {
			return fmt.Errorf("marshal entry %s subject meta: %w", entry.ID, err)
		}
		teacherMeta, err := json.Marshal(entry.TeacherMeta)
		if err != nil {
			return fmt.Errorf("marshal entry %s teacher meta: %w", entry.ID, err)
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO timetable_entries
			(id, timetable_id, class_id, subject_id, teacher_id, room_id, time_slot_id, day, period, is_fixed, subject_meta, teacher_meta)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			string(entry.ID), string(entry.TimetableID), string(entry.ClassID), string(entry.SubjectID),
			string(entry.TeacherID), string(entry.RoomID), string(entry.TimeSlotID), string(entry.Day),
			entry.Period, entry.IsFixed, types.JSONText(subjectMeta), types.JSONText(teacherMeta))
		if err != nil {
			return fmt.Errorf("insert entry %s: %w", entry.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save timetable %s: %w", t.ID, err)
	}
	return nil
}

// Get loads a stored Timetable with its entries, without resolving
// entity labels.
func (r *TimetableRepository) Get(ctx context.Context, id domain.TimetableID) (*domain.Timetable, error) {
	var row timetableRow
	if err := r.db.GetContext(ctx, &row, `SELECT id, school_id, academic_year_id, status, metadata
		FROM timetables WHERE id = $1`, string(id)); err != nil {
		return nil, fmt.Errorf("get timetable %s: %w", id, err)
	}

	var entryRows []timetableEntryRow
	if err := r.db.SelectContext(ctx, &entryRows, `SELECT id, timetable_id, class_id, subject_id, teacher_id,
		room_id, time_slot_id, day, period, is_fixed, subject_meta, teacher_meta
		FROM timetable_entries WHERE timetable_id = $1 ORDER BY day, period, class_id`, string(id)); err != nil {
		return nil, fmt.Errorf("list entries for timetable %s: %w", id, err)
	}

	entries := make([]domain.TimetableEntry, 0, len(entryRows))
	for _, er := range entryRows {
		entry, err := er.toDomain()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	var metadata map[string]any
	if len(row.Metadata) > 0 && string(row.Metadata) != "null" {
		if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("unmarshal timetable %s metadata: %w", id, err)
		}
	}

	return &domain.Timetable{
		ID:             domain.TimetableID(row.ID),
		SchoolID:       domain.SchoolID(row.SchoolID),
		AcademicYearID: domain.AcademicYearID(row.AcademicYearID),
		Status:         domain.TimetableStatus(row.Status),
		Metadata:       metadata,
		Entries:        entries,
	}, nil
}

// LoadForExport loads a stored Timetable plus the entities its entries
// reference, for the PDF exporter (satisfies the handler's narrow
// timetableExportLoader interface).
func (r *TimetableRepository) LoadForExport(ctx context.Context, timetableID string) (*domain.TimetableBundle, error) {
	timetable, err := r.Get(ctx, domain.TimetableID(timetableID))
	if err != nil {
		return nil, err
	}

	classes, err := r.classes.ListBySchool(ctx, timetable.SchoolID)
	if err != nil {
		return nil, err
	}
	subjects, err := r.subjects.ListBySchool(ctx, timetable.SchoolID)
	if err != nil {
		return nil, err
	}
	teachers, err := r.teachers.ListBySchool(ctx, timetable.SchoolID)
	if err != nil {
		return nil, err
	}
	rooms, err := r.rooms.ListBySchool(ctx, timetable.SchoolID)
	if err != nil {
		return nil, err
	}
	timeSlots, err := r.timeSlots.ListBySchool(ctx, timetable.SchoolID)
	if err != nil {
		return nil, err
	}

	return &domain.TimetableBundle{
		Timetable: *timetable,
		Classes:   classes,
		Subjects:  subjects,
		Teachers:  teachers,
		Rooms:     rooms,
		TimeSlots: timeSlots,
	}, nil
}
