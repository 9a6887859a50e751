package shared

// Preferences captures the living habits used for roommate matching.
type Preferences struct {
	SleepHabit       string   `json:"sleepHabit" yaml:"sleepHabit"`
	StudyEnvironment string   `json:"studyEnvironment" yaml:"studyEnvironment"`
	Cleanliness      string   `json:"cleanliness" yaml:"cleanliness"`
	Hobbies          []string `json:"hobbies" yaml:"hobbies"`
}
