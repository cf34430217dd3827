package models

const (
	FileStatusPending = "pending"
	FileStatusActive  = "active"
)

// FileReferenceModel tracks uploaded media and which project uses it, so the
// orphan-cleanup job can remove uploads that never got attached to a record.
type FileReferenceModel struct {
	Base
	FileURL   string `json:"file_url"   gorm:"index;not null"`
	FileName  string `json:"file_name"`
	ObjectKey string `json:"object_key"` // key in the bucket, needed to delete the object
	Kind      string `json:"kind"       gorm:"index"` // thumbnail | screenshot | report
	Status    string `json:"status"     gorm:"index;default:'pending'"` // pending | active
	ProjectID string `json:"project_id" gorm:"index"`
}

func (FileReferenceModel) TableName() string { return "file_references" }
