package internal

import (
	"time"
)

// CreateTestActivity creates an activity with two teams and one unassigned member
func CreateTestActivity() Activity {
	a := Activity{
		ID:          "act1",
		Title:       "Hike",
		Description: "Saturday trail",
		Materials:   "water",
		Time:        "9am",
		Teams: map[string][]string{
			"team1":        {"b@x.com"},
			"team2":        {},
			UnassignedTeam: {"a@x.com"},
		},
		Members: map[string]Member{
			"a@x.com": {Name: "Ann", PfpURL: "https://img.example/a.png"},
			"b@x.com": {Name: "Bob"},
		},
	}
	a.Normalize()
	return a
}

// CreateTestPoll creates a poll with the given option texts and vote counts
func CreateTestPoll(id, title string, texts []string, counts []int) Poll {
	p := Poll{ID: id, Title: title}
	for i, text := range texts {
		opt := PollOption{ID: "o" + string(rune('1'+i)), Text: text}
		if i < len(counts) {
			opt.VoteCount = counts[i]
			p.TotalVotes += counts[i]
		}
		p.Options = append(p.Options, opt)
	}
	return p
}

// CreateTestMessage creates a user chat message
func CreateTestMessage(id, text string, ts int64) ChatMessage {
	return ChatMessage{
		ID:        id,
		Type:      MessageTypeUser,
		Text:      text,
		Timestamp: ts,
		UserID:    "a@x.com",
		UserName:  "Ann",
	}
}

// CreateTestTranscript creates a transcript with a few messages, a poll and an activity
func CreateTestTranscript(groupID string) *Transcript {
	return &Transcript{
		GroupID:    groupID,
		GroupName:  "Weekend Warriors",
		ExportedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Messages: []ChatMessage{
			CreateTestMessage("m1", "hello", 1000),
			CreateTestMessage("m2", "who%20is%20in%3F", 2000),
			{ID: "m3", Type: MessageTypeSystem, Text: "ANN MOVED BOB TO TEAM1 FOR ACTIVITY 'HIKE'", Timestamp: 3000},
		},
		Polls:      []Poll{CreateTestPoll("p1", "Lunch", []string{"Pizza", "Tacos"}, []int{3, 1})},
		Activities: []Activity{CreateTestActivity()},
	}
}
