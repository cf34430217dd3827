package models

// Visibility values for ProjectModel. The lifecycle package owns the
// transition rules; these constants exist so queries can filter without
// importing it.
const (
	VisibilityDraft    = "draft"
	VisibilityPending  = "pending"
	VisibilityPublic   = "public"
	VisibilityRejected = "rejected"
)

// Departments recognised by the portal.
var Departments = []string{"CSE", "IT", "ECE", "EEE", "MECH", "CIVIL", "AIDS", "OTHER"}

// ProjectType values.
const (
	ProjectTypeCollege     = "College Project"
	ProjectTypeProduct     = "Product"
	ProjectTypePublication = "Publication"
)

// Student is one team roster entry, embedded as JSON.
type Student struct {
	Name  string `json:"name"`
	RegNo string `json:"regNo"`
	Dept  string `json:"dept,omitempty"`
	Year  string `json:"year,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// ProjectModel is a single student project submission.
type ProjectModel struct {
	Base

	// Ownership and scoping. Both are set at creation and never reassigned.
	FacultyID  string `json:"faculty_id" gorm:"index;not null"`
	Department string `json:"department" gorm:"index;not null"`

	Title        string      `json:"title"         gorm:"not null"`
	Abstract     string      `json:"abstract"      gorm:"type:longtext"`
	ProjectType  string      `json:"project_type"  gorm:"index"`
	AcademicYear string      `json:"academic_year"`
	Technologies StringArray `json:"technologies"  gorm:"type:json"`
	Students     []Student   `json:"students"      gorm:"type:longtext;serializer:json"`
	DemoLink     string      `json:"demo_link"`
	GithubLink   string      `json:"github_link"`

	// Publication extras, only meaningful when ProjectType is Publication.
	PublicationTitle string `json:"publication_title,omitempty"`
	PublicationType  string `json:"publication_type,omitempty"`
	JournalName      string `json:"journal_name,omitempty"`
	PaperLink        string `json:"paper_link,omitempty"`

	ThumbnailURL string      `json:"thumbnail_url"`
	Screenshots  StringArray `json:"screenshots" gorm:"type:json"`
	ReportURL    string      `json:"report_url"`

	// Anonymous visitor appreciation counter, bumped atomically.
	Appreciations int `json:"appreciations" gorm:"default:0"`

	// Lifecycle state. HallOfFame is an orthogonal flag, only meaningful
	// while the record is public. HodFeedback is set on rejection and is
	// deliberately not cleared by later transitions.
	Visibility  string `json:"visibility"   gorm:"index;default:'draft';not null"`
	HallOfFame  bool   `json:"hall_of_fame" gorm:"index;default:false"`
	HodFeedback string `json:"hod_feedback" gorm:"type:text"`
}

func (ProjectModel) TableName() string { return "projects" }

// ValidDepartment reports whether dept is one of the fixed enumeration.
func ValidDepartment(dept string) bool {
	for _, d := range Departments {
		if d == dept {
			return true
		}
	}
	return false
}

// ValidProjectType reports whether t is a recognised project type.
func ValidProjectType(t string) bool {
	return t == ProjectTypeCollege || t == ProjectTypeProduct || t == ProjectTypePublication
}
