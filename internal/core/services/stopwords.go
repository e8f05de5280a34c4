package services

// stopwords filtered out before keyword extraction. Beyond common English
// function words, the list carries interview filler terms that otherwise
// dominate qualitative transcripts.
var stopwords = map[string]struct{}{
	// Articles, pronouns, determiners.
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "any": {}, "can": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "day": {}, "get": {}, "has": {},
	"him": {}, "his": {}, "how": {}, "its": {}, "new": {}, "now": {},
	"old": {}, "see": {}, "two": {}, "way": {}, "who": {}, "did": {},
	"yes": {}, "they": {}, "them": {}, "this": {}, "that": {}, "then": {},
	"than": {}, "with": {}, "will": {}, "what": {}, "when": {}, "were": {},
	"your": {}, "from": {}, "have": {}, "been": {}, "more": {}, "some": {},
	"like": {}, "just": {}, "into": {}, "over": {}, "also": {}, "only": {},
	"very": {}, "much": {}, "many": {}, "most": {}, "each": {}, "other": {},
	"these": {}, "those": {}, "there": {}, "their": {}, "about": {},
	"would": {}, "could": {}, "should": {}, "which": {}, "where": {},
	"while": {}, "because": {}, "being": {}, "doing": {}, "going": {},
	"something": {}, "things": {}, "thing": {}, "really": {}, "maybe": {},
	"quite": {}, "still": {}, "even": {}, "ever": {}, "never": {},
	"always": {}, "often": {}, "sometimes": {}, "here": {}, "again": {},
	"after": {}, "before": {}, "between": {}, "through": {}, "during": {},
	"under": {}, "around": {}, "both": {}, "down": {}, "well": {},

	// Interview filler.
	"yeah": {}, "okay": {}, "right": {}, "know": {}, "mean": {},
	"think": {}, "guess": {}, "said": {}, "says": {}, "sort": {},
	"kind": {}, "stuff": {}, "actually": {}, "basically": {},
	"interviewer": {}, "interviewee": {}, "respondent": {},
	"question": {}, "answer": {},
}
