package domain

// Record - одна запись из выдачи API, все поля плоские строки.
// Missing fields are empty strings.
type Record struct {
	ID              string `json:"id" yaml:"id"`
	Date            string `json:"date,omitempty" yaml:"date,omitempty"`
	Type            string `json:"type,omitempty" yaml:"type,omitempty"`
	RecordID        string `json:"recordId,omitempty" yaml:"recordId,omitempty"`
	Title           string `json:"title,omitempty" yaml:"title,omitempty"`
	Source          string `json:"source,omitempty" yaml:"source,omitempty"`
	Language        string `json:"language,omitempty" yaml:"language,omitempty"`
	Identifier      string `json:"identifier,omitempty" yaml:"identifier,omitempty"`
	LinkToMarc      string `json:"linkToMarc,omitempty" yaml:"linkToMarc,omitempty"`
	Contributor     string `json:"contributor,omitempty" yaml:"contributor,omitempty"`
	Creator         string `json:"creator,omitempty" yaml:"creator,omitempty"`
	Subject         string `json:"subject,omitempty" yaml:"subject,omitempty"`
	AccessRights    string `json:"accessRights,omitempty" yaml:"accessRights,omitempty"`
	Publisher       string `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	Format          string `json:"format,omitempty" yaml:"format,omitempty"`
	NonStandardDate string `json:"nonStandardDate,omitempty" yaml:"nonStandardDate,omitempty"`
	Thumbnail       string `json:"thumbnail,omitempty" yaml:"thumbnail,omitempty"`
	Relation        string `json:"relation,omitempty" yaml:"relation,omitempty"`
	Download        string `json:"download,omitempty" yaml:"download,omitempty"`
}
