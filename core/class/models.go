package class

import "time"

// Student is one roster entry. RollNo is the stable local identity; Email is
// the identity key when merging against Google Classroom data.
type Student struct {
	RollNo int    `json:"roll_no"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// Class is a locally-owned roster, optionally linked to a Google Classroom
// course. GoogleCourseID is set iff IsGoogleClassroom is true. Roll numbers
// are unique within one class.
type Class struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`
	Section string `json:"section"`
	Subject string `json:"subject"`

	Students []Student `json:"students"`

	GoogleCourseID    string    `json:"google_course_id,omitempty"`
	IsGoogleClassroom bool      `json:"is_google_classroom"`
	LastSyncedAt      time.Time `json:"last_synced_at"` // zero when never synced

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (c *Class) maxRollNo() int {
	var max int
	for _, st := range c.Students {
		if st.RollNo > max {
			max = st.RollNo
		}
	}
	return max
}

// SyncResult reports the outcome of one import/sync/merge call. Not persisted.
type SyncResult struct {
	Students           []Student `json:"students"`
	InvitationFailures []string  `json:"invitation_failures,omitempty"`
	SyncedAt           time.Time `json:"synced_at"`
}
