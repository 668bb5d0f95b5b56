package domain

// Profile is the stored identity of a user, reused across registrations.
type Profile struct {
	UserID     int64  `db:"user_id"`
	FullName   string `db:"full_name" validate:"required,min=3,max=200"`
	NationalID string `db:"national_id" validate:"required,nationalid"`
	StudentID  string `db:"student_id" validate:"omitempty,numeric"`
	Phone      string `db:"phone" validate:"required,len=10,numeric"`
	IsStudent  *bool  `db:"is_student"`
	Username   string `db:"username"`
}

// Missing lists the identity fields a registration still needs.
func (p Profile) Missing() []string {
	var out []string
	if len([]rune(p.FullName)) < 3 {
		out = append(out, "full_name")
	}
	if p.NationalID == "" {
		out = append(out, "national_id")
	}
	if p.Phone == "" {
		out = append(out, "phone")
	}
	if p.IsStudent != nil && *p.IsStudent && p.StudentID == "" {
		out = append(out, "student_id")
	}
	return out
}

// Empty reports whether no identity field is stored, as for a user who only
// opened the bot.
func (p Profile) Empty() bool {
	return p.FullName == "" && p.NationalID == "" && p.Phone == ""
}

// Complete reports whether the profile can be reused as-is.
func (p Profile) Complete() bool {
	return len(p.Missing()) == 0
}

// Admin is a user allowed into the admin panel.
type Admin struct {
	UserID  int64  `db:"user_id"`
	AddedBy *int64 `db:"added_by"`
	Role    string `db:"role"`
}
