package domain

// Identifiers are opaque strings, but distinct Go types keep entities of
// different kinds from being mixed up by the compiler - a TeacherID can
// never be passed where a RoomID is expected.

type SchoolID string
type AcademicYearID string
type SubjectID string
type TeacherID string
type ClassID string
type RoomID string
type TimeSlotID string
type ConstraintID string
type TimetableID string
type TimetableEntryID string
