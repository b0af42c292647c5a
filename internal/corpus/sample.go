package corpus

import "activity-rag/internal/models"

// Sample returns the built-in activity catalogue.
func Sample() []models.Document {
	return []models.Document{
		{
			Code: "ACT-101",
			Body: "Community Yoga Class\n\n" +
				"Overview: A beginner-friendly yoga session focused on flexibility and stress relief.\n\n" +
				"Registration: Register online at /register/act-101. Capacity 25. Drop-ins allowed if spots remain. Fee: $12.\n\n" +
				"Participants: Ages 16+. Bring a mat; loaners available.\n\n" +
				"Location: Willow Center, Room A, 1st floor. Check in at the front desk.",
		},
		{
			Code: "ACT-202",
			Body: "Intro to Pickleball\n\n" +
				"Overview: Learn rules, scoring, and safety; then 2v2 scrimmages.\n\n" +
				"Registration: Required; closes 24 hours prior. Equipment provided. Fee: $15.\n\n" +
				"Participants: Ages 12+. Max 16 players per timeslot.\n\n" +
				"Location: Riverside Gym Court 2. Arrive 10 minutes early.",
		},
		{
			Code: "ACT-303",
			Body: "Trail Cleanup Day\n\n" +
				"Overview: Volunteer cleanup on the Lakeside Loop.\n\n" +
				"Registration: Free; waivers required. Gloves and bags provided.\n\n" +
				"Participants: All ages; minors with guardian. Community service hours available.\n\n" +
				"Location: Meet at Lakeside Trailhead kiosk; carpool recommended.",
		},
	}
}
