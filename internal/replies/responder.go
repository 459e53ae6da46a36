package replies

import (
	"math/rand/v2"
	"strings"
)

type aiRule struct {
	keywords []string
	reply    string
}

// aiRules answer AI chats offline. The first rule whose keyword occurs in
// the lowercased message wins.
var aiRules = []aiRule{
	{[]string{"hello", "hi"}, "Hello! 👋 How are you doing today?"},
	{[]string{"how are you"}, "I'm doing great, thanks for asking! 😊 How about you?"},
	{[]string{"bye", "goodbye"}, "Goodbye! 👋 It was nice chatting with you!"},
	{[]string{"thank"}, "You're welcome! 😊 Is there anything else I can help you with?"},
	{[]string{"weather"}, "I can't check the weather, but I hope it's nice where you are! ☀️"},
	{[]string{"name"}, "I'm your AI chat assistant! 🤖 Nice to meet you!"},
}

var aiFallback = []string{
	"That's interesting! Tell me more about that.",
	"I see what you mean! What are your thoughts on that?",
	"Thanks for sharing that with me! 😊",
	"That sounds fascinating! Can you elaborate?",
	"I'm here to listen and chat! What else is on your mind?",
	"That's a great point! What made you think of that?",
	"I appreciate you sharing that! How do you feel about it?",
	"That's really cool! Tell me more! 😄",
}

// cannedReplies are what a person chat answers with.
var cannedReplies = []string{
	"Got it! 👍",
	"Thanks for letting me know",
	"Okay, sounds good!",
	"I'll get back to you soon",
	"Perfect, thanks!",
	"Sure thing! 😊",
}

// AIResponse returns the rule-based answer to text, falling back to a
// random pick from a fixed list.
func AIResponse(text string, r *rand.Rand) string {
	lower := strings.ToLower(text)
	for _, rule := range aiRules {
		for _, k := range rule.keywords {
			if strings.Contains(lower, k) {
				return rule.reply
			}
		}
	}
	return aiFallback[r.IntN(len(aiFallback))]
}
