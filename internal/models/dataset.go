package models

// Dataset is the seed content loaded into the graph and relational stores.
type Dataset struct {
	Universities []University  `yaml:"universities" json:"universities"`
	Faculty      []Faculty     `yaml:"faculty" json:"faculty"`
	Publications []Publication `yaml:"publications" json:"publications"`
}

// University is an institute faculty members are affiliated with.
type University struct {
	ID   int64  `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// Faculty is a seeded faculty member.
type Faculty struct {
	ID           int64  `yaml:"id" json:"id"`
	Name         string `yaml:"name" json:"name"`
	Position     string `yaml:"position" json:"position"`
	PhotoURL     string `yaml:"photo_url" json:"photo_url"`
	UniversityID int64  `yaml:"university_id" json:"university_id"`
}

// Publication is a seeded paper with the ids of its authoring faculty.
type Publication struct {
	ID      int64   `yaml:"id" json:"id"`
	Title   string  `yaml:"title" json:"title"`
	Year    int     `yaml:"year" json:"year"`
	Authors []int64 `yaml:"authors" json:"authors"`
}

// FacultyByID indexes the dataset's faculty members.
func (d *Dataset) FacultyByID() map[int64]Faculty {
	out := make(map[int64]Faculty, len(d.Faculty))
	for _, f := range d.Faculty {
		out[f.ID] = f
	}
	return out
}
