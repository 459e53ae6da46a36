package suggest

type toneRule struct {
	keywords []string
	tone     Tone
}

// toneRules are checked in order against the lowercased recent text.
var toneRules = []toneRule{
	{[]string{"meeting", "project", "deadline"}, Professional},
	{[]string{"thanks", "appreciate", "help"}, Friendly},
	{[]string{"emails", "document", "report"}, Formal},
}

type topicRule struct {
	keywords []string
	topic    string
}

// topicRules are not exclusive; every match adds its topic.
var topicRules = []topicRule{
	{[]string{"work", "project"}, "work"},
	{[]string{"meeting", "call"}, "meetings"},
	{[]string{"thanks", "appreciate"}, "gratitude"},
	{[]string{"hello", "hi"}, "greetings"},
	{[]string{"how are you", "doing"}, "wellbeing"},
}

// suggestionRule matches when tone is empty or equal to the context tone
// and keywords is empty or one of them occurs in the last message.
type suggestionRule struct {
	tone     Tone
	keywords []string
	replies  []string
}

var (
	gratitudeReplies = []string{
		"You're welcome! 😊",
		"Anytime!",
		"Happy to help!",
		"No problem at all!",
	}
	wellbeingReplies = []string{
		"I'm doing great, thanks! How about you?",
		"Pretty good! 😊",
		"All good here!",
		"Doing well, thanks for asking!",
	}
)

var suggestionRules = []suggestionRule{
	{Professional, []string{"meeting", "call"}, []string{
		"I'll be there",
		"What time works for you?",
		"I'll prepare the agenda",
		"Looking forward to it",
	}},
	{Professional, []string{"project", "deadline"}, []string{
		"I'll get it done",
		"On track for the deadline",
		"I'll update you soon",
		"Understood, will proceed",
	}},
	{Professional, nil, []string{
		"Understood",
		"I'll look into it",
		"Thanks for the update",
		"Will do",
	}},

	{Friendly, []string{"thank"}, gratitudeReplies},
	{Friendly, []string{"how are you", "doing"}, wellbeingReplies},
	{Friendly, nil, []string{
		"Sounds good! 👍",
		"Perfect!",
		"Awesome! 😊",
		"Great!",
	}},

	{Formal, nil, []string{
		"I understand",
		"I'll review and respond",
		"Thank you for the information",
		"I'll follow up accordingly",
	}},

	{"", []string{"hello", "hi", "hey"}, []string{
		"Hi {name}! 👋",
		"Hello! How are you?",
		"Hey there! 😊",
		"Hi! Nice to hear from you",
	}},
	{"", []string{"how are you", "how's it going"}, wellbeingReplies},
	{"", []string{"project", "work", "meeting"}, []string{
		"Sounds good! 👍",
		"I'll look into it",
		"Thanks for the update",
		"Got it, will do!",
	}},
	{"", []string{"thank"}, gratitudeReplies},
	{"", []string{"okay", "ok", "sure"}, []string{
		"Perfect! 👍",
		"Great!",
		"Sounds good!",
		"Awesome! 😊",
	}},
	{"", nil, []string{
		"Got it! 👍",
		"Thanks for letting me know",
		"I'll get back to you soon",
		"Sounds good!",
		"Perfect, thanks!",
		"Sure thing! 😊",
	}},
}
