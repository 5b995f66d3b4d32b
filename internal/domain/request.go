package domain

// GenerateRequest is the core's single entry-point input, assembled by
// whatever external collaborator (HTTP handler, CLI, test) owns
// ingestion. It owns all referenced entities for the duration of one call.
type GenerateRequest struct {
	SchoolID                 SchoolID
	AcademicYearID            AcademicYearID
	Classes                   []Class
	Subjects                  []Subject
	Teachers                  []Teacher
	TimeSlots                 []TimeSlot
	Rooms                     []Room
	Constraints               []Constraint
	SubjectRequirements       []GradeSubjectRequirement
	Weights                   OptimizationWeights
	NumSolutions              int
	TimeoutSeconds            int
	EnforceTeacherConsistency bool
	Seed                      int64
}

// WithDefaults fills in the bounded defaults named in spec.md 6.
func (r GenerateRequest) WithDefaults() GenerateRequest {
	if r.NumSolutions <= 0 {
		r.NumSolutions = 3
	}
	if r.NumSolutions > 5 {
		r.NumSolutions = 5
	}
	if r.TimeoutSeconds <= 0 {
		r.TimeoutSeconds = 60
	}
	if r.TimeoutSeconds < 10 {
		r.TimeoutSeconds = 10
	}
	if r.TimeoutSeconds > 300 {
		r.TimeoutSeconds = 300
	}
	if r.Weights == (OptimizationWeights{}) {
		r.Weights = DefaultWeights()
	}
	return r
}

// ValidateRequest is the cheap feasibility-check entry point (Advisor only).
type ValidateRequest struct {
	Classes             []Class
	Subjects            []Subject
	Teachers            []Teacher
	TimeSlots           []TimeSlot
	Rooms               []Room
	Constraints         []Constraint
	SubjectRequirements []GradeSubjectRequirement
}

// Issue is one Advisor or Post-Validator finding.
type Issue struct {
	Severity IssueSeverity
	Message  string
}

// FeasibilityReport is the Advisor's output contract (spec.md 4.2).
type FeasibilityReport struct {
	IsFeasible         bool
	CriticalIssues     []Issue
	Warnings           []Issue
	BottleneckResources map[string]float64 // resource_id -> utilization %
	Suggestions        []string
}

// ValidationResult is the external-facing ValidateRequest response.
type ValidationResult struct {
	Feasible    bool
	Conflicts   []string
	Suggestions []string
}

// Metrics summarizes a single solution for external consumers.
type Metrics struct {
	ConstraintsSatisfied int
	TotalConstraints     int
	Gaps                 int
}

// TimetableSolution pairs a Timetable with its score and feasibility.
type TimetableSolution struct {
	Timetable Timetable
	TotalScore float64
	Feasible   bool
	Conflicts  []string
	Metrics    Metrics
}

// Diagnostics carries failure-path bottleneck information (spec.md 4.4,
// Failure reporting).
type Diagnostics struct {
	EmptyCandidateLessons []string
	BindingResources      map[string]int
	TopSuggestions        []string
}

// GenerateResponse is the core's single exit-point output.
type GenerateResponse struct {
	Solutions            []TimetableSolution
	GenerationTimeSeconds float64
	Conflicts             []string
	Suggestions           []string
	Diagnostics           *Diagnostics
}
