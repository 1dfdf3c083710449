package assessment

// Advice is the static editorial bundle attached to a risk level. Content
// lives in the table below so wording changes never touch control flow.
type Advice struct {
	Recommendations string
	detailed        []string
}

// Detailed returns a copy of the ordered advice list.
func (a Advice) Detailed() []string {
	out := make([]string, len(a.detailed))
	copy(out, a.detailed)
	return out
}

var adviceTable = map[RiskLevel]Advice{
	RiskLow: {
		Recommendations: "Your responses suggest you are coping well right now. Keep up the habits that support your wellbeing.",
		detailed: []string{
			"Keep a regular sleep schedule, aiming for seven to nine hours a night.",
			"Stay physically active; even a short daily walk helps mood and focus.",
			"Make time for friends, family, or campus groups you enjoy.",
			"Take short breaks while studying and plan your workload ahead of deadlines.",
			"Check in with yourself regularly and retake this assessment if things change.",
		},
	},
	RiskModerate: {
		Recommendations: "Your responses suggest you may be under noticeable strain. Talking to a counsellor now can stop things from building up.",
		detailed: []string{
			"Consider booking a session with one of our counsellors; early support works best.",
			"Share how you are feeling with someone you trust.",
			"Try a simple routine: consistent sleep, regular meals, and some movement each day.",
			"Break assignments into smaller steps and ask tutors about extensions if you need them.",
			"Practise a relaxation technique such as slow breathing or a short guided meditation.",
			"Limit alcohol and caffeine, which can make anxiety and sleep problems worse.",
		},
	},
	RiskHigh: {
		Recommendations: "Your responses suggest you are going through a very difficult time. Please reach out to a professional as soon as possible.",
		detailed: []string{
			"Contact a counsellor today; you can start a chat or video session from this portal.",
			"If you feel unsafe or have thoughts of harming yourself, call your local emergency number immediately.",
			"Reach a crisis line any time of day or night; they are free and confidential.",
			"Tell a trusted friend, family member, or residence adviser how you are feeling.",
			"Visit your campus health centre or GP and mention the results of this check-in.",
			"Avoid being alone when things feel overwhelming; stay with someone you trust.",
		},
	},
}

// AdviceFor returns the bundle for level. Unknown levels get the zero Advice.
func AdviceFor(level RiskLevel) Advice {
	return adviceTable[level]
}
