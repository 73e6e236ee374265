package models

// UserType is the membership role stored in member_details.user_type.
type UserType string

const (
	UserTypeMember          UserType = "MEMBER"
	UserTypeAdmin           UserType = "ADMIN"
	UserTypeLVH             UserType = "LVH"
	UserTypeGuestVisitor    UserType = "GUEST-VISITOR"
	UserTypeGuestSubstitute UserType = "GUEST-SUBSTITUTE"
	UserTypeGuestObserver   UserType = "GUEST-OBSERVER"
)

// UserTypes lists every known user type in the order they are shown to the model.
var UserTypes = []UserType{
	UserTypeMember,
	UserTypeAdmin,
	UserTypeLVH,
	UserTypeGuestVisitor,
	UserTypeGuestSubstitute,
	UserTypeGuestObserver,
}

// Member represents a row of member_details
type Member struct {
	ID             int64    `json:"id"`
	Name           string   `json:"member_name"`
	Password       string   `json:"-"`
	Classification string   `json:"classification"`
	CompanyName    string   `json:"company_name"`
	Phone          string   `json:"phone"`
	TeamName       string   `json:"teamname"`
	Powerteam      string   `json:"powerteam"`
	UserType       UserType `json:"user_type"`
	ActiveStatus   string   `json:"activestatus"`
}

// Metric is one (score, maintain, recommend) triple of a weekly score sheet.
type Metric struct {
	Score     int64 `json:"score"`
	Maintain  int64 `json:"maintain"`
	Recommend int64 `json:"recommend"`
}

// MemberScore represents a row of member_scores. It is tied to a Member by
// name equality only (member_details.member_name = member_scores.name).
type MemberScore struct {
	Name           string `json:"name"`
	Powerteam      string `json:"powerteam"`
	TotalScore     int64  `json:"total_score"`
	Referral       Metric `json:"referral"`
	TYFTB          Metric `json:"tyftb"`
	Visitor        Metric `json:"visitor"`
	Testimonial    Metric `json:"testimonial"`
	Training       Metric `json:"training"`
	Absent         Metric `json:"absent"`
	ArrivingOnTime Metric `json:"arrivingontime"`
}

// Row is a single query result keyed by column name.
type Row map[string]any
