package sqlgen

import (
	"strings"

	"github.com/xaenox/bni-assistant/internal/models"
)

// Table describes one table as shown to the model.
type Table struct {
	Name    string
	Columns []string
}

// Schema is everything the model is told about the store.
type Schema struct {
	Tables    []Table
	JoinHint  string
	Hints     []string
	Context   []string
	Examples  []string
	Powerteam []string
}

// RosterSchema is the fixed two-table schema. member_details.password exists
// in the store but is never advertised.
var RosterSchema = Schema{
	Tables: []Table{
		{
			Name: "member_details",
			Columns: []string{
				"id", "member_name", "classification", "company_name", "phone",
				"teamname", "powerteam", "user_type", "activestatus",
			},
		},
		{
			Name: "member_scores",
			Columns: []string{
				"id", "name", "powerteam", "total_score",
				"referral_score", "referral_maintain", "referral_recom",
				"tyftb_score", "tyftb_maintain", "tyftb_recom",
				"visitor_score", "visitor_maintain", "visitor_recom",
				"testimonial_score", "testimonial_maintain", "testimonial_recom",
				"training_score", "training_maintain", "training_recom",
				"absent_score", "absent_maintain", "absent_recom",
				"arrivingontime_score", "arrivingontime_maintain", "arrivingontime_recom",
			},
		},
	},
	JoinHint: "The two tables may be joined using `member_details.member_name = member_scores.name` (exact, case-sensitive match)",
	Hints: []string{
		"`member_scores` contains weekly score metrics for each member",
		"`member_details` contains static member info like classification, phone, powerteam, etc.",
		"'Team1' or Team 1 means BNI Gems members",
		"classification is the member's profession or business type",
		"tyftb means Thank You For The Business",
	},
	Context: []string{
		"Members 30 Second Business Presentation minimum 20 lines",
		"Members Business Testimonials in best practices minimum 50 lines",
	},
	Examples: []string{
		"For questions about Testimonials, read the member_details table only, like: SELECT * FROM member_details",
	},
	Powerteam: []string{"BUSINESS SERVICE", "BUSINESS OWNERS", "CIVIL", "CORPORATE", "RETAILS"},
}

func (s Schema) describe(b *strings.Builder) {
	for _, t := range s.Tables {
		b.WriteString("Table: ")
		b.WriteString(t.Name)
		b.WriteString("\nColumns: ")
		b.WriteString(strings.Join(t.Columns, ", "))
		b.WriteString("\n\n")
	}

	b.WriteString("Details:\n")
	b.WriteString("- ")
	b.WriteString(s.JoinHint)
	b.WriteString("\n")
	for _, h := range s.Hints {
		b.WriteString("- ")
		b.WriteString(h)
		b.WriteString("\n")
	}
	b.WriteString("- member_details.powerteam groups members with similar professions, for example: ")
	b.WriteString(strings.Join(s.Powerteam, ", "))
	b.WriteString(" (values may differ in case)\n")

	types := make([]string, len(models.UserTypes))
	for i, t := range models.UserTypes {
		types[i] = "'" + string(t) + "'"
	}
	b.WriteString("- user_type is only one of ")
	b.WriteString(strings.Join(types, ", "))
	b.WriteString("\n")

	if len(s.Context) > 0 {
		b.WriteString("\nAdditional context:\n")
		for _, c := range s.Context {
			b.WriteString("- ")
			b.WriteString(c)
			b.WriteString("\n")
		}
	}
}
