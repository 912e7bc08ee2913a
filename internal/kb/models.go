package kb

// Stable program identifiers. User profiles store these keys, so they
// must never change even if the display names do.
const (
	ProgramKeyAI        = "AI"
	ProgramKeyAIProduct = "AI_Product"
)

// Program is a master's degree program with its admission metadata.
// Key is the stable identifier; Name is the display name.
type Program struct {
	ID                    int64    `json:"id"`
	Key                   string   `json:"key"`
	Name                  string   `json:"name"`
	Description           string   `json:"description"`
	Duration              string   `json:"duration"`
	AdmissionRequirements []string `json:"admission_requirements"`
	CareerProspects       []string `json:"career_prospects"`
	Courses               []Course `json:"courses,omitempty"`
	CreatedAt             int64    `json:"created_at"`
}

// Course is a single curriculum entry owned by exactly one program.
// Tags are free-form capability labels; an empty slice means the course
// has no tags, not that they are unknown.
type Course struct {
	ID            int64    `json:"id"`
	ProgramID     int64    `json:"program_id"`
	ProgramKey    string   `json:"program_key,omitempty"`  // filled by joins, not stored
	ProgramName   string   `json:"program_name,omitempty"` // filled by joins, not stored
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Credits       int      `json:"credits"`
	Semester      string   `json:"semester"`
	IsMandatory   bool     `json:"is_mandatory"`
	Tags          []string `json:"tags"`
	Prerequisites []string `json:"prerequisites,omitempty"`
	CreatedAt     int64    `json:"created_at"`
}

// QAPair is one reference question with its curated answer.
// Records are immutable once stored; the similarity index is rebuilt
// whenever a pair is added.
type QAPair struct {
	ID        int64    `json:"id"`
	Question  string   `json:"question"`
	Answer    string   `json:"answer"`
	Category  string   `json:"category"`
	ProgramID int64    `json:"program_id,omitempty"`
	Keywords  []string `json:"keywords"`
	CreatedAt int64    `json:"created_at"`
}

// UserProfile stores what profile analysis learned about an applicant.
// Profiles are upserted, never deleted. Interests map category names to
// weights in (0, 1].
type UserProfile struct {
	TelegramID       int64              `json:"telegram_id"`
	Username         string             `json:"username,omitempty"`
	FirstName        string             `json:"first_name,omitempty"`
	ExperienceLevel  string             `json:"experience_level,omitempty"`
	TechnicalSkills  []string           `json:"technical_skills,omitempty"`
	Interests        map[string]float64 `json:"interests,omitempty"`
	PreferredProgram string             `json:"preferred_program,omitempty"`
	CreatedAt        int64              `json:"created_at"`
	UpdatedAt        int64              `json:"updated_at"`
}

// Recommendation is a derived ranking entry saved for history.
// It is recomputable at any time and never authoritative.
type Recommendation struct {
	ID         string  `json:"id"`
	TelegramID int64   `json:"telegram_id"`
	CourseID   int64   `json:"course_id"`
	Score      float64 `json:"score"`
	Reason     string  `json:"reason"`
	CreatedAt  int64   `json:"created_at"`
}
