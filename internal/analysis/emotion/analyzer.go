package emotion

import "strings"

// keywordBuckets holds the heuristic vocabulary per label. The companion's
// users write mostly Thai with occasional English, so both are covered.
var keywordBuckets = map[Label][]string{
	Idle: {
		"ดีใจ", "มีความสุข", "ความสุข", "สุขมาก", "สนุก", "ชอบ", "รัก", "ขอบคุณ", "เยี่ยม",
		"ดีมาก", "สบายใจ", "ยินดี", "ฮ่า", "happy", "great", "love", "thanks", "thank you",
		"awesome", "glad", "nice", "lol", "haha",
	},
	Smirk: {
		"แซว", "กวนๆ", "ขี้เล่น", "แกล้ง", "เจ้าเล่ห์", "แหม", "เหรอจ๊ะ", "อุ๊ย",
		"heh", "smug", "oh really", "sure you did", "teasing", "wink", "gotcha", "sly",
	},
	Sad: {
		"เศร้า", "เสียใจ", "ร้องไห้", "เหงา", "ท้อ", "ผิดหวัง", "คิดถึง", "น้อยใจ", "หดหู่",
		"ไม่ไหวแล้ว", "sad", "cry", "lonely", "depressed", "miss you", "heartbroken", "upset",
	},
	Surprise: {
		"ตกใจ", "แปลกใจ", "ประหลาดใจ", "ว้าว", "จริงเหรอ", "จริงดิ", "ไม่อยากเชื่อ", "อะไรนะ",
		"เหรอเนี่ย", "โอ้โห", "wow", "no way", "really?", "what?!", "unbelievable", "omg",
	},
	Angry: {
		"โกรธ", "โมโห", "หงุดหงิด", "รำคาญ", "เกลียด", "แย่มาก", "น่ารำคาญ", "เซ็ง", "ฉุน",
		"angry", "furious", "mad", "annoyed", "hate", "pissed", "terrible", "worst",
	},
}

const keywordWeight = 3

// Analyze scores text against the keyword buckets and returns the winning
// label as a candidate. It backs the offline classifier provider; with no
// signal at all it reports the neutral default at low confidence.
func Analyze(text string) Candidate {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return Candidate{Label: Default, Confidence: 0}
	}

	scores := make(map[Label]int, len(keywordBuckets))
	for label, keywords := range keywordBuckets {
		for _, word := range keywords {
			if strings.Contains(normalized, strings.ToLower(word)) {
				scores[label] += keywordWeight
			}
		}
	}

	// Thai chat laughs in number-speak: "555" reads as "hahaha".
	if strings.Contains(normalized, "555") {
		scores[Idle] += keywordWeight
	}

	if bangs := strings.Count(normalized, "!"); bangs > 0 {
		scores[Surprise] += bangs
		if scores[Idle] > 0 {
			scores[Idle] += bangs
		}
	}
	if strings.Contains(normalized, "?!") {
		scores[Surprise] += keywordWeight
	}

	cands := make([]Candidate, 0, len(scores))
	for label, score := range scores {
		if score > 0 {
			cands = append(cands, Candidate{Label: label, Confidence: scoreConfidence(score)})
		}
	}

	top, ok := PickTop(cands)
	if !ok {
		return Candidate{Label: Default, Confidence: 0.3}
	}
	return top
}

// scoreConfidence maps raw keyword scores into [0,1]. One keyword hit lands
// around 0.55; confidence saturates at 0.9 since the heuristic is never as
// trustworthy as the fine-tuned model.
func scoreConfidence(score int) float64 {
	conf := 0.4 + float64(score)*0.05
	if conf > 0.9 {
		conf = 0.9
	}
	return conf
}
