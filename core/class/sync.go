package class

import (
	"context"
	"fmt"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/classroom"
	"github.com/trezcool/darasa/core/user"
)

// ListCourses lists the owner's courses on Google Classroom.
func (svc *Service) ListCourses(ctx context.Context, owner user.User) ([]classroom.Course, error) {
	token, err := svc.tokens.Token(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	return svc.gc.ListCourses(ctx, token)
}

// PreviewRoster resolves a course's remote roster the way an import would,
// without creating or touching any class.
func (svc *Service) PreviewRoster(ctx context.Context, owner user.User, courseID string) ([]Student, error) {
	token, err := svc.tokens.Token(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	return svc.fetchRoster(ctx, token, courseID)
}

// ImportCourse creates a new linked class from a Google Classroom course and
// its roster. Import is create-once: a course already imported by this owner
// is rejected with ErrAlreadyImported. Any failure before the final create
// aborts with no class written; only per-student profile lookups degrade to
// a logged skip.
func (svc *Service) ImportCourse(ctx context.Context, owner user.User, courseID string) (Class, error) {
	if err := svc.checkQuota(ctx, owner); err != nil {
		return Class{}, err
	}

	if _, err := svc.repo.GetClass(ctx, GetFilter{OwnerID: owner.ID, GoogleCourseID: courseID}); err == nil {
		return Class{}, ErrAlreadyImported
	} else if err != ErrNotFound {
		return Class{}, err
	}

	token, err := svc.tokens.Token(ctx, owner.ID)
	if err != nil {
		return Class{}, err
	}

	course, err := svc.gc.GetCourse(ctx, token, courseID)
	if err != nil {
		return Class{}, err
	}

	students, err := svc.fetchRoster(ctx, token, courseID)
	if err != nil {
		return Class{}, err
	}

	section := course.Section
	if section == "" {
		section = "Imported"
	}
	subject := course.Description
	if subject == "" {
		subject = "Imported from Google Classroom"
	}

	now := nowFunc().UTC()
	return svc.repo.CreateClass(ctx, Class{
		OwnerID:           owner.ID,
		Name:              course.Name,
		Section:           section,
		Subject:           subject,
		Students:          students,
		GoogleCourseID:    courseID,
		IsGoogleClassroom: true,
		LastSyncedAt:      now,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
}

// SyncStudents refreshes a linked class from its Google Classroom roster.
// The local student list is fully replaced by the freshly fetched, freshly
// numbered remote list: local-only edits made since the last sync are
// discarded (remote wins, by design). A fetch failure aborts with the old
// roster left untouched.
func (svc *Service) SyncStudents(ctx context.Context, owner user.User, classID string) (SyncResult, error) {
	cls, err := svc.GetByID(ctx, owner, classID)
	if err != nil {
		return SyncResult{}, err
	}
	if !cls.IsGoogleClassroom {
		return SyncResult{}, ErrNotLinked
	}

	token, err := svc.tokens.Token(ctx, owner.ID)
	if err != nil {
		return SyncResult{}, err
	}

	students, err := svc.fetchRoster(ctx, token, cls.GoogleCourseID)
	if err != nil {
		return SyncResult{}, err
	}

	now := nowFunc().UTC()
	cls.Students = students
	cls.LastSyncedAt = now
	cls.UpdatedAt = now
	if _, err = svc.repo.UpdateClass(ctx, cls); err != nil {
		return SyncResult{}, err
	}
	return SyncResult{Students: students, SyncedAt: now}, nil
}

// MergeStudents merges a batch into the roster keyed by roll number: an
// incoming entry whose roll number already exists overwrites that entry
// (edit semantics), otherwise it is appended; entries without a roll number
// get the next free one. When propagate is set an invitation is attempted
// per member on the linked course; a member's invitation failure is recorded
// in the result and blocks neither the remaining members nor persistence.
func (svc *Service) MergeStudents(ctx context.Context, owner user.User, classID string, students []Student, propagate bool) (SyncResult, error) {
	cls, err := svc.GetByID(ctx, owner, classID)
	if err != nil {
		return SyncResult{}, err
	}
	if propagate && !cls.IsGoogleClassroom {
		return SyncResult{}, ErrNotLinked
	}

	var token string
	if propagate {
		if token, err = svc.tokens.Token(ctx, owner.ID); err != nil {
			return SyncResult{}, err
		}
	}

	merged := make([]Student, len(cls.Students))
	copy(merged, cls.Students)
	index := make(map[int]int, len(merged)) // roll no -> position
	for i, st := range merged {
		index[st.RollNo] = i
	}

	nextRoll := cls.maxRollNo()
	var failures []string
	for _, st := range students {
		st.Email = core.CleanString(st.Email, true /* lower */)
		if st.RollNo == 0 {
			nextRoll++
			st.RollNo = nextRoll
		} else if st.RollNo > nextRoll {
			nextRoll = st.RollNo
		}

		if pos, ok := index[st.RollNo]; ok {
			merged[pos] = st
		} else {
			index[st.RollNo] = len(merged)
			merged = append(merged, st)
		}

		if propagate {
			if err := svc.gc.CreateInvitation(ctx, token, cls.GoogleCourseID, st.Email); err != nil {
				svc.logger.Warn(fmt.Sprintf("inviting student %s: %v", st.Email, err), err)
				failures = append(failures, st.Email)
			}
		}
	}

	now := nowFunc().UTC()
	cls.Students = merged
	cls.UpdatedAt = now
	if propagate {
		cls.LastSyncedAt = now
	}
	if _, err = svc.repo.UpdateClass(ctx, cls); err != nil {
		return SyncResult{}, err
	}
	return SyncResult{Students: merged, InvitationFailures: failures, SyncedAt: now}, nil
}

// AddStudents appends a batch keyed by email: incoming entries whose email
// is already on the roster are dropped, the rest get roll numbers continuing
// past the current maximum, in input order; prior roll numbers never change.
// Invitations follow the same per-member contract as MergeStudents.
func (svc *Service) AddStudents(ctx context.Context, owner user.User, classID string, students []NewStudent, propagate bool) (SyncResult, error) {
	cls, err := svc.GetByID(ctx, owner, classID)
	if err != nil {
		return SyncResult{}, err
	}
	if propagate && !cls.IsGoogleClassroom {
		return SyncResult{}, ErrNotLinked
	}

	var token string
	if propagate {
		if token, err = svc.tokens.Token(ctx, owner.ID); err != nil {
			return SyncResult{}, err
		}
	}

	existing := make(map[string]bool, len(cls.Students))
	for _, st := range cls.Students {
		existing[st.Email] = true
	}

	rollNo := cls.maxRollNo()
	var failures []string
	for _, ns := range students {
		email := core.CleanString(ns.Email, true /* lower */)
		if email == "" || existing[email] {
			continue
		}
		rollNo++
		cls.Students = append(cls.Students, Student{RollNo: rollNo, Name: core.CleanString(ns.Name), Email: email})
		existing[email] = true

		if propagate {
			if err := svc.gc.CreateInvitation(ctx, token, cls.GoogleCourseID, email); err != nil {
				svc.logger.Warn(fmt.Sprintf("inviting student %s: %v", email, err), err)
				failures = append(failures, email)
			}
		}
	}

	now := nowFunc().UTC()
	cls.UpdatedAt = now
	if propagate {
		cls.LastSyncedAt = now
	}
	if _, err = svc.repo.UpdateClass(ctx, cls); err != nil {
		return SyncResult{}, err
	}
	return SyncResult{Students: cls.Students, InvitationFailures: failures, SyncedAt: now}, nil
}

// RemoveStudent drops the roster entry matching the roll number; the
// remaining roll numbers are left untouched. The returned slice is the
// updated roster.
func (svc *Service) RemoveStudent(ctx context.Context, owner user.User, classID string, rollNo int) ([]Student, error) {
	cls, err := svc.GetByID(ctx, owner, classID)
	if err != nil {
		return nil, err
	}

	pos := -1
	for i, st := range cls.Students {
		if st.RollNo == rollNo {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil, ErrStudentNotFound
	}

	cls.Students = append(cls.Students[:pos], cls.Students[pos+1:]...)
	cls.UpdatedAt = nowFunc().UTC()
	if cls, err = svc.repo.UpdateClass(ctx, cls); err != nil {
		return nil, err
	}
	return cls.Students, nil
}

// fetchRoster pulls the course roster and resolves each entry's profile,
// sequentially, in the roster listing order; roll numbers follow that order
// starting at 1 with no gaps. An entry whose profile cannot be resolved or
// carries no email address is skipped, not an error.
func (svc *Service) fetchRoster(ctx context.Context, token, courseID string) ([]Student, error) {
	entries, err := svc.gc.ListStudents(ctx, token, courseID)
	if err != nil {
		return nil, err
	}

	students := make([]Student, 0, len(entries))
	rollNo := 1
	for _, entry := range entries {
		profile, err := svc.gc.GetProfile(ctx, token, entry.UserID)
		if err != nil {
			svc.logger.Warn(fmt.Sprintf("skipping student %s: profile lookup failed: %v", entry.UserID, err), err)
			continue
		}
		if profile.Email == "" {
			svc.logger.Info(fmt.Sprintf("skipping student %s: no email address", entry.UserID))
			continue
		}
		students = append(students, Student{RollNo: rollNo, Name: profile.Name, Email: profile.Email})
		rollNo++
	}
	return students, nil
}
