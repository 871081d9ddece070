package models

// Student represents one examinee taken from the faculty roster export.
type Student struct {
	Jmeno      string `json:"jmeno"`
	Prijmeni   string `json:"prijmeni"`
	VizualniID string `json:"vizualni_id"`
	OsCislo    string `json:"os_cislo" validate:"required"`
}

// Quiz is the payload sent to the print service: the questions of one exam sitting
// together with the roster. The two lists come from different files and are not joined.
type Quiz struct {
	Questions []Question `json:"questions"`
	Students  []Student  `json:"students"`
	Date      string     `json:"date"`
}
